package types

import "fmt"

type OpCode uint16

const (
	OpCodeRRQ OpCode = iota + 1
	OpCodeWRQ
	OpCodeDATA
	OpCodeACK
	OpCodeError
)

func (o OpCode) String() string {
	switch o {
	case OpCodeRRQ:
		return "RRQ"
	case OpCodeWRQ:
		return "WRQ"
	case OpCodeDATA:
		return "DATA"
	case OpCodeACK:
		return "ACK"
	case OpCodeError:
		return "ERROR"
	default:
		return fmt.Sprintf("OpCode(%d)", uint16(o))
	}
}

type ErrCode uint16

const (
	ErrNotDefined ErrCode = iota
	ErrFileNotFound
	ErrAccessViolation
	ErrDiskFull
	ErrIllegalTftpOp
	ErrUnknownTransferId
	ErrFileAlreadyExists
	ErrNoSuchUser
)

// Message returns the default human-readable text sent for the code.
func (c ErrCode) Message() string {
	switch c {
	case ErrNotDefined:
		return "undefined error"
	case ErrFileNotFound:
		return "file not found"
	case ErrAccessViolation:
		return "access violation"
	case ErrDiskFull:
		return "disk full or allocation exceeded"
	case ErrIllegalTftpOp:
		return "illegal tftp operation"
	case ErrUnknownTransferId:
		return "unknown transfer id"
	case ErrFileAlreadyExists:
		return "file already exists"
	case ErrNoSuchUser:
		return "no such user"
	default:
		return "unknown error"
	}
}

const (
	MaxBlocks      = 65535
	MaxPayloadSize = 512
	DatagramSize   = 516
	HeaderSize     = 4
	MaxFilenameLen = 254
	MaxModeLen     = 9
	MaxErrMsgLen   = 511
)

const (
	DefaultPort       = 69
	DefaultTimeout    = 5
	DefaultMaxRetries = 5
)

const DefaultClientTimeout = 5
