package store

import (
	"context"
	"testing"

	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatStore(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	s, err := NewChatStore(fs, "data", nil)
	require.NoError(t, err)

	older := &models.ChatSession{
		ID:        "s1",
		Messages:  []models.ChatMessage{{ID: "m1", Sender: models.SenderUser, Content: "hello"}},
		CreatedAt: "2025-01-01T00:00:00Z",
		UpdatedAt: "2025-01-01T00:00:00Z",
	}
	newer := &models.ChatSession{ID: "s2", CreatedAt: "2025-01-02T00:00:00Z", UpdatedAt: "2025-01-03T00:00:00Z"}
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	_, err = fs.Stat("data/chat-s1.json")
	require.NoError(t, err)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Messages[0].Content)

	missing, err := s.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].ID)
	assert.Equal(t, "s1", list[1].ID)
}

func TestChatStoreListIgnoresReceipts(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	chats, err := NewChatStore(fs, "data", nil)
	require.NoError(t, err)
	receipts, err := NewFileStore(fs, "data", nil)
	require.NoError(t, err)

	require.NoError(t, receipts.Save(ctx, &models.Receipt{ID: "r1", OriginalImageURL: "/a"}))
	require.NoError(t, chats.Save(ctx, &models.ChatSession{ID: "s1"}))

	list, err := chats.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].ID)
}

func TestChatStoreListOrdersByTime(t *testing.T) {
	ctx := context.Background()
	s, err := NewChatStore(memfs.New(), "data", nil)
	require.NoError(t, err)

	// Sub-second stamps drop trailing zeros, so string order disagrees with time order.
	for _, session := range []*models.ChatSession{
		{ID: "whole", UpdatedAt: "2025-03-10T12:00:00Z"},
		{ID: "half", UpdatedAt: "2025-03-10T12:00:00.5Z"},
		{ID: "later", UpdatedAt: "2025-03-10T12:00:01.25Z"},
		{ID: "broken", UpdatedAt: "yesterday"},
	} {
		require.NoError(t, s.Save(ctx, session))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	var ids []string
	for _, session := range list {
		ids = append(ids, session.ID)
	}
	assert.Equal(t, []string{"later", "half", "whole", "broken"}, ids)
}
