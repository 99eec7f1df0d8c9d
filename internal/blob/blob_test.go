package blob

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameFromURL(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "/uploads/receipts/1700000000000-abc.jpg", want: "1700000000000-abc.jpg"},
		{ref: "/uploads/receipts/r1-optimized-1-x.webp", want: "r1-optimized-1-x.webp"},
		{ref: "/uploads/receipts/../secrets.json", wantErr: true},
		{ref: "/uploads/receipts/a/b.jpg", wantErr: true},
		{ref: "/uploads/receipts/", wantErr: true},
		{ref: "/elsewhere/a.jpg", wantErr: true},
		{ref: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := NameFromURL(tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ref, URL(got))
		})
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	s, err := NewFileStore(fs, "uploads/receipts")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "a.jpg", []byte("jpeg"), "image/jpeg"))

	ok, err := s.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Get(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	_, err = fs.Stat("uploads/receipts/a.jpg")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "r1-optimized-1-x.png", []byte("png"), "image/png"))
	require.NoError(t, s.Put(ctx, "r1-optimized-2-y.png", []byte("png"), "image/png"))
	names, err := s.List(ctx, "r1-optimized-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1-optimized-1-x.png", "r1-optimized-2-y.png"}, names)

	require.NoError(t, s.Delete(ctx, "a.jpg"))
	ok, err = s.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "a.jpg"), ErrNotFound)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(memfs.New(), "uploads")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Put(context.Background(), "../x.jpg", nil, ""), ErrInvalidName)
	_, err = s.Get(context.Background(), "sub/x.jpg")
	assert.ErrorIs(t, err, ErrInvalidName)
}
