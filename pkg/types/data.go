package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Wa4h1h/go-tftpd/pkg/utils"
)

type Data struct {
	Payload  []byte
	BlockNum uint16
}

func (d *Data) OpCode() OpCode {
	return OpCodeDATA
}

// Final reports whether d is the last block of a transfer.
func (d *Data) Final() bool {
	return len(d.Payload) < MaxPayloadSize
}

func (d *Data) MarshalBinary() ([]byte, error) {
	if len(d.Payload) > MaxPayloadSize {
		return nil, utils.ErrDataPayloadTooBig
	}

	b := new(bytes.Buffer)
	b.Grow(HeaderSize + len(d.Payload))

	if err := binary.Write(b, binary.BigEndian, OpCodeDATA); err != nil {
		return nil, fmt.Errorf("error while writing opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &d.BlockNum); err != nil {
		return nil, fmt.Errorf("error while writing block#: %w", err)
	}

	b.Write(d.Payload)

	return b.Bytes(), nil
}

// UnmarshalBinary copies the payload so data can be reused by the caller.
func (d *Data) UnmarshalBinary(data []byte) error {
	if _, err := expectOpCode(data, OpCodeDATA); err != nil {
		return err
	}

	if len(data) < HeaderSize {
		return truncated("data packet needs %d bytes, got %d", HeaderSize, len(data))
	}

	if len(data)-HeaderSize > MaxPayloadSize {
		return malformed("payload of %d bytes exceeds %d", len(data)-HeaderSize, MaxPayloadSize)
	}

	d.BlockNum = binary.BigEndian.Uint16(data[2:4])
	d.Payload = append([]byte(nil), data[HeaderSize:]...)

	return nil
}
