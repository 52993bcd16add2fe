package server

import "time"

// Stats accounts for one transfer. It is owned by its session and read
// once the session has torn down.
type Stats struct {
	Start           time.Time
	End             time.Time
	Bytes           int64
	Blocks          int
	Retransmissions int
	Duplicates      int
}

func (s *Stats) Duration() time.Duration {
	if s.Start.IsZero() || s.End.Before(s.Start) {
		return 0
	}

	return s.End.Sub(s.Start)
}

// Throughput returns bytes per second. ok is false when the transfer moved
// no bytes or took no measurable time.
func (s *Stats) Throughput() (bps float64, ok bool) {
	d := s.Duration()
	if d <= 0 || s.Bytes == 0 {
		return 0, false
	}

	return float64(s.Bytes) / max(d.Seconds(), time.Nanosecond.Seconds()), true
}
