package keystore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/sessionkey"
)

const keyFileMode = 0o600

// File stores each session key as a raw file named after the song id.
type File struct {
	dir string
}

// NewFile returns a File store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: key directory is required", drm.ErrInput)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", drm.ErrInput, err)
	}
	return &File{dir: dir}, nil
}

// Path returns the key file path for id.
func (s *File) Path(id drm.SongID) string {
	return filepath.Join(s.dir, id.String()+".key")
}

// Locator names where the key for id is kept.
func (s *File) Locator(id drm.SongID) string {
	return s.Path(id)
}

func (s *File) Put(_ context.Context, id drm.SongID, key []byte) error {
	return WriteKeyFile(s.Path(id), key)
}

func (s *File) Get(_ context.Context, id drm.SongID) ([]byte, error) {
	key, err := ReadKeyFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", drm.ErrKeyNotFound, id)
	}
	return key, err
}

func (s *File) Close() error { return nil }

// WriteKeyFile writes a raw session key readable only by its owner.
func WriteKeyFile(path string, key []byte) error {
	if err := sessionkey.Validate(key); err != nil {
		return fmt.Errorf("%w: %v", drm.ErrInput, err)
	}
	if err := os.WriteFile(path, key, keyFileMode); err != nil {
		return fmt.Errorf("%w: failed to write key file: %v", drm.ErrInput, err)
	}
	return nil
}

// ReadKeyFile reads a raw session key. A missing file matches fs.ErrNotExist.
func ReadKeyFile(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key file: %w", drm.ErrInput, err)
	}
	if err := sessionkey.Validate(key); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", drm.ErrInput, path, err)
	}
	return key, nil
}
