package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type Ack struct {
	BlockNum uint16
}

func (a *Ack) OpCode() OpCode {
	return OpCodeACK
}

func (a *Ack) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	b.Grow(HeaderSize)

	if err := binary.Write(b, binary.BigEndian, OpCodeACK); err != nil {
		return nil, fmt.Errorf("error while writing opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &a.BlockNum); err != nil {
		return nil, fmt.Errorf("error while writing block#: %w", err)
	}

	return b.Bytes(), nil
}

func (a *Ack) UnmarshalBinary(data []byte) error {
	if _, err := expectOpCode(data, OpCodeACK); err != nil {
		return err
	}

	if len(data) != HeaderSize {
		return malformed("ack packet must be %d bytes, got %d", HeaderSize, len(data))
	}

	a.BlockNum = binary.BigEndian.Uint16(data[2:4])

	return nil
}
