package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Wa4h1h/go-tftpd/pkg/utils"
)

type Error struct {
	ErrMsg    string
	ErrorCode ErrCode
}

// NewError builds an error packet, using the code's default text when msg is empty.
func NewError(code ErrCode, msg string) *Error {
	if msg == "" {
		msg = code.Message()
	}

	return &Error{ErrorCode: code, ErrMsg: msg}
}

func (e *Error) OpCode() OpCode {
	return OpCodeError
}

func (e *Error) Error() string {
	return fmt.Sprintf("tftp error %d: %s", e.ErrorCode, e.ErrMsg)
}

func (e *Error) MarshalBinary() ([]byte, error) {
	if len(e.ErrMsg) > MaxErrMsgLen || bytes.IndexByte([]byte(e.ErrMsg), 0) >= 0 {
		return nil, utils.ErrErrMsgInvalid
	}

	b := new(bytes.Buffer)
	b.Grow(HeaderSize + len(e.ErrMsg) + 1)

	if err := binary.Write(b, binary.BigEndian, OpCodeError); err != nil {
		return nil, fmt.Errorf("error while writing opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &e.ErrorCode); err != nil {
		return nil, fmt.Errorf("error while writing error code: %w", err)
	}

	b.WriteString(e.ErrMsg)
	b.WriteByte(0)

	return b.Bytes(), nil
}

// UnmarshalBinary reads the message up to its NUL terminator. A message
// without terminator is taken as the whole remainder, and no message at all
// is empty.
func (e *Error) UnmarshalBinary(data []byte) error {
	if _, err := expectOpCode(data, OpCodeError); err != nil {
		return err
	}

	if len(data) < HeaderSize {
		return truncated("error packet needs %d bytes, got %d", HeaderSize, len(data))
	}

	msg := data[HeaderSize:]
	if end := bytes.IndexByte(msg, 0); end >= 0 {
		msg = msg[:end]
	}

	if len(msg) > MaxErrMsgLen {
		return malformed("error message exceeds %d bytes", MaxErrMsgLen)
	}

	e.ErrorCode = ErrCode(binary.BigEndian.Uint16(data[2:4]))
	e.ErrMsg = string(msg)

	return nil
}
