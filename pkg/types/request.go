package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Wa4h1h/go-tftpd/pkg/utils"
)

type Request struct {
	Filename string
	Mode     string
	Opcode   OpCode
}

func (r *Request) OpCode() OpCode {
	return r.Opcode
}

// TransferMode is the parsed form of r.Mode.
func (r *Request) TransferMode() Mode {
	return ParseMode(r.Mode)
}

func (r *Request) MarshalBinary() ([]byte, error) {
	if r.Opcode != OpCodeRRQ && r.Opcode != OpCodeWRQ {
		return nil, utils.ErrWrongOpCode
	}

	if len(r.Filename) > MaxFilenameLen || bytes.IndexByte([]byte(r.Filename), 0) >= 0 {
		return nil, utils.ErrFilenameInvalid
	}

	if len(r.Mode) > MaxModeLen || bytes.IndexByte([]byte(r.Mode), 0) >= 0 {
		return nil, utils.ErrModeInvalid
	}

	b := new(bytes.Buffer)
	rqLen := 2 + len(r.Filename) + 1 + len(r.Mode) + 1

	b.Grow(rqLen)

	if err := binary.Write(b, binary.BigEndian, &r.Opcode); err != nil {
		return nil, fmt.Errorf("error while writing opcode: %w", err)
	}

	b.WriteString(r.Filename)
	b.WriteByte(0)
	b.WriteString(r.Mode)
	b.WriteByte(0)

	return b.Bytes(), nil
}

// UnmarshalBinary accepts trailing bytes after the mode terminator; option
// negotiation is not supported so they are ignored.
func (r *Request) UnmarshalBinary(data []byte) error {
	op, err := expectOpCode(data, OpCodeRRQ, OpCodeWRQ)
	if err != nil {
		return err
	}

	filename, rest, err := cString(data[2:], MaxFilenameLen, "filename")
	if err != nil {
		return err
	}

	mode, _, err := cString(rest, MaxModeLen, "mode")
	if err != nil {
		return err
	}

	r.Opcode = op
	r.Filename = filename
	r.Mode = mode

	return nil
}
