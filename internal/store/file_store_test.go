package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestFileStore(t *testing.T) (*FileStore, *models.Receipt) {
	t.Helper()
	s, err := NewFileStore(memfs.New(), "data/receipts", nil)
	require.NoError(t, err)
	return s, &models.Receipt{
		ID:               "r1",
		StoreName:        strPtr("Corner Shop"),
		Date:             strPtr("2025-01-01"),
		Items:            []models.ReceiptItem{{Name: "Milk"}},
		OriginalImageURL: "/uploads/receipts/r1.jpg",
		DisplayVersion:   models.DisplayOriginal,
		CreatedAt:        "2025-01-01T09:00:00Z",
	}
}

func TestFileStoreSaveGet(t *testing.T) {
	ctx := context.Background()
	s, r := newTestFileStore(t)

	require.NoError(t, s.Save(ctx, r))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Corner Shop", *got.StoreName)
	assert.Equal(t, r.OriginalImageURL, got.DisplayImageURL())
	assert.Equal(t, []models.ReceiptItem{{Name: "Milk"}}, got.Items)

	data, err := util.ReadFile(s.fs, "data/receipts/r1.json")
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "/uploads/receipts/r1.jpg", raw["displayImageUrl"])
	assert.Contains(t, string(data), "\n  \"id\"", "records are written indented")
}

func TestFileStoreGetMissing(t *testing.T) {
	s, _ := newTestFileStore(t)

	got, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get(context.Background(), "../etc/passwd")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreSaveRejectsUnsafeID(t *testing.T) {
	s, r := newTestFileStore(t)
	r.ID = "../escape"

	err := s.Save(context.Background(), r)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestFileStoreGetMigratesLegacyRecord(t *testing.T) {
	s, _ := newTestFileStore(t)
	legacy := `{"id":"old","storeName":null,"date":"2023-05-05","imageUrl":"/uploads/receipts/old.png","createdAt":"2023-05-05T00:00:00Z"}`
	require.NoError(t, util.WriteFile(s.fs, "data/receipts/old.json", []byte(legacy), 0o644))

	got, err := s.Get(context.Background(), "old")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/uploads/receipts/old.png", got.OriginalImageURL)
	assert.Equal(t, "/uploads/receipts/old.png", got.DisplayImageURL())
	assert.Equal(t, models.DisplayOriginal, got.DisplayVersion)
	assert.NotNil(t, got.Items)
}

func TestFileStoreListOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestFileStore(t)

	records := []*models.Receipt{
		{ID: "jan", Date: strPtr("2025-01-01"), OriginalImageURL: "/a", CreatedAt: "2025-03-01T00:00:00Z"},
		{ID: "feb", Date: strPtr("2025-02-01"), OriginalImageURL: "/b", CreatedAt: "2025-01-01T00:00:00Z"},
		{ID: "junk", Date: strPtr("someday"), OriginalImageURL: "/c", CreatedAt: "not a time"},
		{ID: "nodate", OriginalImageURL: "/d", CreatedAt: "2025-01-15T12:00:00Z"},
	}
	for _, r := range records {
		require.NoError(t, s.Save(ctx, r))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"feb", "nodate", "jan", "junk"}, ids)
}

func TestFileStoreListSkipsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	s, r := newTestFileStore(t)
	require.NoError(t, s.Save(ctx, r))
	require.NoError(t, util.WriteFile(s.fs, "data/receipts/broken.json", []byte("{not json"), 0o644))
	require.NoError(t, util.WriteFile(s.fs, "data/receipts/notes.txt", []byte("ignored"), 0o644))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
}

func TestFileStoreListEmpty(t *testing.T) {
	s, _ := newTestFileStore(t)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, r := newTestFileStore(t)
	require.NoError(t, s.Save(ctx, r))

	deleted, err := s.Delete(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = s.Delete(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s, r := newTestFileStore(t)
	require.NoError(t, s.Save(ctx, r))

	r.OptimizedImageURL = "/uploads/receipts/r1-optimized.jpg"
	r.DisplayVersion = models.DisplayOptimized
	require.NoError(t, s.Save(ctx, r))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.DisplayOptimized, got.DisplayVersion)
	assert.Equal(t, "/uploads/receipts/r1-optimized.jpg", got.DisplayImageURL())

	entries, err := s.fs.ReadDir("data/receipts")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
