package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// UserHomeDirPath returns ~/tftp, creating it when missing.
func UserHomeDirPath() string {
	p, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("error while getting user home dir: %w", err))
	}

	tftpBaseDir := filepath.Join(p, "tftp")

	if err := EnsureDir(tftpBaseDir); err != nil {
		panic(err)
	}

	return tftpBaseDir
}

// EnsureDir creates dir (and parents) when it does not exist yet.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("error checking if dir exists: %w", err)
		}

		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("error while creating dir %s: %w", dir, err)
		}
	}

	return nil
}
