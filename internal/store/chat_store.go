package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"
)

const chatFilePrefix = "chat-"

// ChatStore keeps strategy-assistant sessions as chat-<id>.json files.
type ChatStore struct {
	fs     billy.Filesystem
	dir    string
	logger *slog.Logger
}

func NewChatStore(fs billy.Filesystem, dir string, logger *slog.Logger) (*ChatStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chat directory %s: %w", dir, err)
	}
	return &ChatStore{fs: fs, dir: dir, logger: logger}, nil
}

func (s *ChatStore) path(id string) string {
	return s.fs.Join(s.dir, chatFilePrefix+id+".json")
}

func (s *ChatStore) Save(ctx context.Context, session *models.ChatSession) error {
	if !ValidID(session.ID) {
		return apperr.Validation("invalid chat session id")
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.CodeStorage, "failed to encode chat session", err)
	}
	if err := writeFileAtomically(s.fs, s.dir, s.path(session.ID), data); err != nil {
		return apperr.Wrap(apperr.CodeStorage, "failed to save chat session", err)
	}
	return nil
}

// Get returns (nil, nil) for an unknown session.
func (s *ChatStore) Get(ctx context.Context, id string) (*models.ChatSession, error) {
	if !ValidID(id) {
		return nil, nil
	}
	session, err := s.read(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to read chat session", err)
	}
	return session, nil
}

// List returns every session, most recently updated first.
func (s *ChatStore) List(ctx context.Context) ([]*models.ChatSession, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.ChatSession{}, nil
		}
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to list chat sessions", err)
	}

	var (
		mu       sync.Mutex
		sessions = []*models.ChatSession{}
	)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, chatFilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		g.Go(func() error {
			session, err := s.read(s.fs.Join(s.dir, name))
			if err != nil {
				s.logger.Error("Failed to parse chat session file, skipping.", "file", name, "error", err)
				return nil
			}
			mu.Lock()
			sessions = append(sessions, session)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(sessions, func(i, j int) bool {
		ti, tj := updatedAt(sessions[i]), updatedAt(sessions[j])
		if ti.Equal(tj) {
			return sessions[i].ID < sessions[j].ID
		}
		return ti.After(tj)
	})
	return sessions, nil
}

// updatedAt parses the session's last update; unparsable stamps sort last.
func updatedAt(session *models.ChatSession) time.Time {
	t, err := time.Parse(time.RFC3339Nano, session.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *ChatStore) read(path string) (*models.ChatSession, error) {
	data, err := util.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}
	var session models.ChatSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &session, nil
}
