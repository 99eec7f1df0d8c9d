package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// FileStore keeps images in a directory of a billy filesystem.
type FileStore struct {
	fs  billy.Filesystem
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(fs billy.Filesystem, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory %s: %w", dir, err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (s *FileStore) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return s.fs.Join(s.dir, name), nil
}

func (s *FileStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := util.WriteFile(s.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", name, err)
	}
	return data, nil
}

func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	if _, err := s.fs.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat image %s: %w", name, err)
	}
	return true, nil
}

// Delete removes the file. Removing a missing file reports ErrNotFound.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete image %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
