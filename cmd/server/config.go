package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/server"
)

// buildConfig turns flag values into a server config. Zero timeout or
// retries are refused here since server.Config reads zero as "use the
// default".
func buildConfig(bind string, port, timeout, retries, tos int, trace bool) (server.Config, error) {
	var errs []error

	if port < 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 0-65535", port))
	}

	if timeout < 1 {
		errs = append(errs, fmt.Errorf("timeout must be at least 1 second, got %d", timeout))
	}

	if retries < 1 {
		errs = append(errs, fmt.Errorf("retries must be at least 1, got %d", retries))
	}

	cfg := server.Config{
		Addr:       net.JoinHostPort(bind, strconv.Itoa(port)),
		Timeout:    time.Duration(timeout) * time.Second,
		MaxRetries: retries,
		TOS:        tos,
		Trace:      trace,
	}

	errs = append(errs, cfg.Validate())

	if err := errors.Join(errs...); err != nil {
		return server.Config{}, err
	}

	return cfg, nil
}
