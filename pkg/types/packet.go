package types

import (
	"bytes"
	"encoding"
	"encoding/binary"
)

// Packet is one of the five wire packet kinds.
type Packet interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	OpCode() OpCode
}

// Decode parses a raw datagram into the packet kind selected by its opcode.
func Decode(data []byte) (Packet, error) {
	op, err := readOpCode(data)
	if err != nil {
		return nil, err
	}

	var p Packet

	switch op {
	case OpCodeRRQ, OpCodeWRQ:
		p = &Request{}
	case OpCodeDATA:
		p = &Data{}
	case OpCodeACK:
		p = &Ack{}
	case OpCodeError:
		p = &Error{}
	default:
		return nil, &DecodeError{Kind: UnknownOpcode, Reason: op.String()}
	}

	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	return p, nil
}

// Encode is a shorthand for p.MarshalBinary.
func Encode(p Packet) ([]byte, error) {
	return p.MarshalBinary()
}

func readOpCode(data []byte) (OpCode, error) {
	var op OpCode

	if len(data) < 2 {
		return op, truncated("need 2 bytes for opcode, got %d", len(data))
	}

	if err := binary.Read(bytes.NewReader(data[:2]), binary.BigEndian, &op); err != nil {
		return op, truncated("reading opcode: %s", err.Error())
	}

	return op, nil
}

func expectOpCode(data []byte, want ...OpCode) (OpCode, error) {
	op, err := readOpCode(data)
	if err != nil {
		return op, err
	}

	for _, w := range want {
		if op == w {
			return op, nil
		}
	}

	return op, malformed("unexpected opcode %s", op)
}

// cString returns the bytes before the first NUL in data and the rest after it.
func cString(data []byte, maxLen int, field string) (string, []byte, error) {
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return "", nil, malformed("%s is not NUL terminated", field)
	}

	if end > maxLen {
		return "", nil, malformed("%s exceeds %d bytes", field, maxLen)
	}

	return string(data[:end]), data[end+1:], nil
}
