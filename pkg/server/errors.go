package server

import (
	"fmt"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
)

// RejectionError is returned by Accept when a datagram on the well-known
// port does not start a session. Reply tells the dispatcher whether an
// error packet goes back to the sender.
type RejectionError struct {
	Code  types.ErrCode
	Msg   string
	Err   error
	Reply bool
}

func (e *RejectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request rejected (%d %s): %s", e.Code, e.Msg, e.Err.Error())
	}

	return fmt.Sprintf("request rejected (%d %s)", e.Code, e.Msg)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func (e *RejectionError) Packet() *types.Error {
	return types.NewError(e.Code, e.Msg)
}

// TransferError ends a running session. Notify is false when the peer must
// not get an error packet, as when the peer itself reported the error.
type TransferError struct {
	Code   types.ErrCode
	Msg    string
	Err    error
	Notify bool
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer failed (%d %s): %s", e.Code, e.Msg, e.Err.Error())
	}

	return fmt.Sprintf("transfer failed (%d %s)", e.Code, e.Msg)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Packet() *types.Error {
	return types.NewError(e.Code, e.Msg)
}
