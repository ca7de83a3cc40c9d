// Package staging keeps private copies of picked or recorded videos so uploads never read a transient source.
package staging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Area struct {
	dir string
}

// New uses dir as the staging area, creating it if needed. An empty dir creates a fresh one under the system temp dir.
func New(dir string) (*Area, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "video-staging-")
		if err != nil {
			return nil, fmt.Errorf("failed to create staging dir: %w", err)
		}
		return &Area{dir: tmp}, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Area{dir: abs}, nil
}

func (a *Area) Dir() string {
	return a.dir
}

// Stage copies src into its own subdirectory, preserving the base name, and returns the copy's path.
func (a *Area) Stage(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", src)
	}

	slot := filepath.Join(a.dir, uuid.NewString())
	if err := os.Mkdir(slot, 0o700); err != nil {
		return "", fmt.Errorf("failed to create staging slot: %w", err)
	}
	dst := filepath.Join(slot, filepath.Base(src))
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		os.RemoveAll(slot)
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.RemoveAll(slot)
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.RemoveAll(slot)
		return "", err
	}
	slog.Debug("Staged video", "src", src, "dst", dst, "size", info.Size())
	return dst, nil
}

// Release removes a staged copy. Paths outside the staging area are ignored.
func (a *Area) Release(path string) error {
	slot := filepath.Dir(path)
	if filepath.Dir(slot) != a.dir {
		return nil
	}
	return os.RemoveAll(slot)
}

// Close removes the staging area and everything left in it.
func (a *Area) Close() error {
	return os.RemoveAll(a.dir)
}
