// Package storage is the file root served by the tftp server. Every path is
// resolved inside that root; names that would leave it are refused.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var ErrOutsideRoot = fmt.Errorf("error: path escapes the file root: %w", fs.ErrPermission)

type Dir struct {
	root *os.Root
	path string
}

func OpenDir(path string) (*Dir, error) {
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, fmt.Errorf("error while opening file root %s: %w", path, err)
	}

	return &Dir{root: root, path: path}, nil
}

func (d *Dir) Path() string {
	return d.path
}

// Open opens name for reading.
func (d *Dir) Open(name string) (fs.File, error) {
	p, err := local(name)
	if err != nil {
		return nil, err
	}

	f, err := d.root.Open(p)
	if err != nil {
		return nil, fmt.Errorf("error while opening %s: %w", name, err)
	}

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		_ = f.Close()

		return nil, fmt.Errorf("error while opening %s: is a directory: %w", name, fs.ErrPermission)
	}

	return f, nil
}

// Create creates name for writing and fails with fs.ErrExist when it is
// already there.
func (d *Dir) Create(name string) (io.WriteCloser, error) {
	p, err := local(name)
	if err != nil {
		return nil, err
	}

	f, err := d.root.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error while creating %s: %w", name, err)
	}

	return f, nil
}

func (d *Dir) Remove(name string) error {
	p, err := local(name)
	if err != nil {
		return err
	}

	if err := d.root.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error while removing %s: %w", name, err)
	}

	return nil
}

func (d *Dir) Close() error {
	return d.root.Close()
}

func local(name string) (string, error) {
	p := filepath.FromSlash(name)
	if !filepath.IsLocal(p) {
		return "", ErrOutsideRoot
	}

	return p, nil
}
