package server

import (
	"fmt"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
)

// upload greenlights the client with ack 0, then appends every data block in
// order and acknowledges it, until a short block ends the transfer.
func (s *Session) upload() error {
	var acked uint16

	for {
		data, err := s.receiveBlock(acked)
		if err != nil {
			return err
		}

		acked = data.BlockNum
		s.stats.Blocks++
		s.stats.Bytes += int64(len(data.Payload))

		if s.cfg.Trace {
			s.l.Debugf("received block#=%d, received #bytes=%d", acked, len(data.Payload))
		}

		if data.Final() {
			if err := s.write(ackPacket(acked)); err != nil {
				s.l.Errorf("error while sending final ack: %s", err.Error())
			}

			s.l.Debugf("received %d blocks, received %d bytes", s.stats.Blocks, s.stats.Bytes)

			return nil
		}

		if acked == types.MaxBlocks {
			return &TransferError{
				Code:   types.ErrDiskFull,
				Msg:    "file too large to be transferred over tftp",
				Err:    utils.ErrFileTooLarge,
				Notify: true,
			}
		}
	}
}

// receiveBlock sends the ack for block acked and waits for block acked+1.
// A repeat of block acked is answered with the same ack and not written.
func (s *Session) receiveBlock(acked uint16) (*types.Data, error) {
	var received *types.Data

	ack := ackPacket(acked)

	err := s.exchange(ack, func(p types.Packet) (verdict, error) {
		data, ok := p.(*types.Data)
		if !ok {
			return pending, unexpected(p)
		}

		switch data.BlockNum {
		case acked + 1:
			if _, err := s.dst.Write(data.Payload); err != nil {
				return pending, &TransferError{
					Code:   types.ErrDiskFull,
					Msg:    types.ErrDiskFull.Message(),
					Err:    fmt.Errorf("error while writing block %d: %w", data.BlockNum, err),
					Notify: true,
				}
			}

			received = data

			return accepted, nil
		case acked:
			s.stats.Duplicates++
			s.l.Warnf("received duplicate block %d, acknowledging again", acked)

			return pending, s.write(ack)
		default:
			return pending, &TransferError{
				Code:   types.ErrIllegalTftpOp,
				Msg:    fmt.Sprintf("block %d out of order, expected %d", data.BlockNum, acked+1),
				Err:    utils.ErrOutOfOrderBlock,
				Notify: true,
			}
		}
	})

	return received, err
}

func ackPacket(blockNum uint16) []byte {
	ack := &types.Ack{BlockNum: blockNum}

	b, _ := ack.MarshalBinary()

	return b
}
