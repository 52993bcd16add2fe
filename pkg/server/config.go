package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
)

type Config struct {
	// Addr is the well-known host:port requests arrive on.
	Addr string
	// Timeout bounds every wait for the peer's next packet. Zero selects the default.
	Timeout time.Duration
	// MaxRetries is how many times one unit is re-sent after the first attempt.
	// Zero selects the default.
	MaxRetries int
	// TOS marks the traffic class of transfer sockets; 0 leaves it unset.
	TOS int
	// Trace logs every block exchanged.
	Trace bool
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = fmt.Sprintf(":%d", types.DefaultPort)
	}

	if c.Timeout == 0 {
		c.Timeout = types.DefaultTimeout * time.Second
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = types.DefaultMaxRetries
	}

	return c
}

func (c Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Errorf("invalid listen address %q: %w", c.Addr, err))
	}

	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}

	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries must not be negative"))
	}

	if c.TOS < 0 || c.TOS > 255 {
		errs = append(errs, fmt.Errorf("tos %d out of range 0-255", c.TOS))
	}

	return errors.Join(errs...)
}
