package types

import "strings"

type Mode uint8

const (
	ModeNetascii Mode = iota
	ModeOctet
)

// ParseMode maps a request mode token to a Mode. Matching is case-insensitive
// and anything unrecognized falls back to octet.
func ParseMode(s string) Mode {
	switch {
	case strings.EqualFold(s, "netascii"):
		return ModeNetascii
	case strings.EqualFold(s, "octet"):
		return ModeOctet
	default:
		return ModeOctet
	}
}

func (m Mode) String() string {
	if m == ModeNetascii {
		return "netascii"
	}

	return "octet"
}
