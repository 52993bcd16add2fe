package utils

import "errors"

var (
	ErrStartingServer        = errors.New("error: starting the udp server")
	ErrWrongOpCode           = errors.New("error: invalid operation code")
	ErrDataPayloadTooBig     = errors.New("error: payload exceeds 512 bytes")
	ErrFilenameInvalid       = errors.New("error: filename is empty, too long or contains NUL")
	ErrModeInvalid           = errors.New("error: mode is too long or contains NUL")
	ErrErrMsgInvalid         = errors.New("error: error message is too long or contains NUL")
	ErrPacketMarshall        = errors.New("error: can not marshall packet")
	ErrPacketCanNotBeSent    = errors.New("error: packet can not be sent")
	ErrTransferTimedOut      = errors.New("error: transfer timed out")
	ErrPeerReportedError     = errors.New("error: peer reported an error")
	ErrUnknownTransferID     = errors.New("error: datagram from unknown transfer id")
	ErrUnexpectedPacket      = errors.New("error: unexpected packet")
	ErrOutOfOrderBlock       = errors.New("error: block out of order")
	ErrFileTooLarge          = errors.New("error: file too large to be transferred over tftp")
	ErrCanNotSetWriteTimeout = errors.New("error: can not set write timeout")
	ErrCanNotSetReadTimeout  = errors.New("error: can not set read timeout")
	ErrNotConnected          = errors.New("error: client is not connected")
	ErrServerClosed          = errors.New("error: server closed")
)
