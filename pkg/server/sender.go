package server

import (
	"errors"
	"fmt"
	"io"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
)

// download streams the file in 512-byte blocks. A file whose size is a
// multiple of 512 ends with an empty block.
func (s *Session) download() error {
	block := make([]byte, types.MaxPayloadSize)

	var blockNum uint16 = 1

	for {
		n, err := io.ReadFull(s.src, block)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return &TransferError{
				Code:   types.ErrNotDefined,
				Msg:    "error while reading file",
				Err:    err,
				Notify: true,
			}
		}

		if err := s.sendBlock(block[:n], blockNum); err != nil {
			return err
		}

		s.stats.Blocks++
		s.stats.Bytes += int64(n)

		if s.cfg.Trace {
			s.l.Debugf("sent block#=%d, sent #bytes=%d", blockNum, n)
		}

		if n < types.MaxPayloadSize {
			s.l.Debugf("sent %d blocks, sent %d bytes", s.stats.Blocks, s.stats.Bytes)

			return nil
		}

		if blockNum == types.MaxBlocks {
			return &TransferError{
				Code:   types.ErrNotDefined,
				Msg:    "file too large to be transferred over tftp",
				Err:    utils.ErrFileTooLarge,
				Notify: true,
			}
		}

		blockNum++
	}
}

// sendBlock delivers one data block and waits for its ack. Acks for other
// blocks are discarded without restarting the timeout.
func (s *Session) sendBlock(payload []byte, blockNum uint16) error {
	data := &types.Data{
		BlockNum: blockNum,
		Payload:  payload,
	}

	b, err := data.MarshalBinary()
	if err != nil {
		return &TransferError{
			Code:   types.ErrNotDefined,
			Msg:    "server can not create data packet",
			Err:    fmt.Errorf("%w: %w", utils.ErrPacketMarshall, err),
			Notify: true,
		}
	}

	return s.exchange(b, func(p types.Packet) (verdict, error) {
		ack, ok := p.(*types.Ack)
		if !ok {
			return pending, unexpected(p)
		}

		if ack.BlockNum != blockNum {
			s.l.Debugf("ack block# %d != expected block# %d, discarding", ack.BlockNum, blockNum)

			return pending, nil
		}

		return accepted, nil
	})
}
