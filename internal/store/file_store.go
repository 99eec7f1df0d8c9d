package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"
)

const listConcurrency = 10

// FileStore keeps one indented JSON file per receipt under dir.
type FileStore struct {
	fs     billy.Filesystem
	dir    string
	logger *slog.Logger
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(fs billy.Filesystem, dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipts directory %s: %w", dir, err)
	}
	return &FileStore{fs: fs, dir: dir, logger: logger}, nil
}

func (s *FileStore) path(id string) string {
	return s.fs.Join(s.dir, id+".json")
}

// Save writes the full record. The file is written under a temporary name
// and renamed into place so readers never see a partial record.
func (s *FileStore) Save(ctx context.Context, r *models.Receipt) error {
	if !ValidID(r.ID) {
		return apperr.Validation(fmt.Sprintf("invalid receipt id %q", r.ID))
	}
	data, err := json.MarshalIndent(r.Raw(), "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.CodeStorage, "failed to encode receipt", err)
	}
	if err := writeFileAtomically(s.fs, s.dir, s.path(r.ID), data); err != nil {
		return apperr.Wrap(apperr.CodeStorage, "failed to save receipt", err)
	}
	return nil
}

// Get loads and migrates one record.
func (s *FileStore) Get(ctx context.Context, id string) (*models.Receipt, error) {
	if !ValidID(id) {
		return nil, nil
	}
	raw, err := s.read(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to read receipt", err)
	}
	return Normalize(*raw), nil
}

// List loads every record, newest first. Files that fail to parse are
// logged and skipped.
func (s *FileStore) List(ctx context.Context) ([]*models.Receipt, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.Receipt{}, nil
		}
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to list receipts", err)
	}

	var (
		mu       sync.Mutex
		receipts = make([]*models.Receipt, 0, len(entries))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := s.read(s.fs.Join(s.dir, name))
			if err != nil {
				s.logger.Error("Failed to parse receipt file, skipping.", "file", name, "error", err)
				return nil
			}
			mu.Lock()
			receipts = append(receipts, Normalize(*raw))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to list receipts", err)
	}

	SortNewestFirst(receipts)
	return receipts, nil
}

// Delete removes the record's file. It reports false when there was none.
func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	if err := s.fs.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.CodeStorage, "failed to delete receipt", err)
	}
	return true, nil
}

func (s *FileStore) read(path string) (*models.RawReceipt, error) {
	data, err := util.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}
	var raw models.RawReceipt
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &raw, nil
}

// writeFileAtomically writes data to a temp file in dir and renames it to path.
func writeFileAtomically(fs billy.Filesystem, dir, path string, data []byte) error {
	tmp, err := util.TempFile(fs, dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("failed to finalize %s: %w", tmpName, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
