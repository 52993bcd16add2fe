package types

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated     = errors.New("error: truncated packet")
	ErrMalformed     = errors.New("error: malformed packet")
	ErrUnknownOpcode = errors.New("error: unknown operation code")
)

type DecodeKind uint8

const (
	Truncated DecodeKind = iota + 1
	Malformed
	UnknownOpcode
)

func (k DecodeKind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case Malformed:
		return "malformed"
	case UnknownOpcode:
		return "unknown opcode"
	default:
		return "unknown"
	}
}

// DecodeError is returned for any datagram that does not parse into a packet.
type DecodeError struct {
	Kind   DecodeKind
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error: %s packet: %s", e.Kind, e.Reason)
}

func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrTruncated:
		return e.Kind == Truncated
	case ErrMalformed:
		return e.Kind == Malformed
	case ErrUnknownOpcode:
		return e.Kind == UnknownOpcode
	}

	return false
}

func truncated(format string, args ...any) error {
	return &DecodeError{Kind: Truncated, Reason: fmt.Sprintf(format, args...)}
}

func malformed(format string, args ...any) error {
	return &DecodeError{Kind: Malformed, Reason: fmt.Sprintf(format, args...)}
}
