package store

import (
	"testing"

	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMigrate(t *testing.T) {
	tests := []struct {
		name         string
		raw          models.RawReceipt
		wantOriginal string
		wantDisplay  string
	}{
		{
			name:         "legacy imageUrl becomes original and display",
			raw:          models.RawReceipt{ID: "a", ImageURL: "/uploads/receipts/a.jpg"},
			wantOriginal: "/uploads/receipts/a.jpg",
			wantDisplay:  "/uploads/receipts/a.jpg",
		},
		{
			name:         "existing original wins over legacy field",
			raw:          models.RawReceipt{ID: "b", ImageURL: "/old.jpg", OriginalImageURL: "/new.jpg"},
			wantOriginal: "/new.jpg",
			wantDisplay:  "/new.jpg",
		},
		{
			name: "display is kept when present",
			raw: models.RawReceipt{
				ID:                "c",
				OriginalImageURL:  "/o.jpg",
				OptimizedImageURL: "/p.jpg",
				DisplayImageURL:   "/p.jpg",
			},
			wantOriginal: "/o.jpg",
			wantDisplay:  "/p.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Migrate(tt.raw)
			assert.Equal(t, tt.wantOriginal, got.OriginalImageURL)
			assert.Equal(t, tt.wantDisplay, got.DisplayImageURL)
			assert.NotNil(t, got.Items)

			assert.Equal(t, got, Migrate(got), "migration must be idempotent")
		})
	}
}

func TestNormalizeDisplayVersion(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawReceipt
		want models.DisplayVersion
	}{
		{
			name: "no optimized image",
			raw:  models.RawReceipt{OriginalImageURL: "/o.jpg"},
			want: models.DisplayOriginal,
		},
		{
			name: "display url points at optimized",
			raw:  models.RawReceipt{OriginalImageURL: "/o.jpg", OptimizedImageURL: "/p.jpg", DisplayImageURL: "/p.jpg"},
			want: models.DisplayOptimized,
		},
		{
			name: "display url points at original",
			raw:  models.RawReceipt{OriginalImageURL: "/o.jpg", OptimizedImageURL: "/p.jpg", DisplayImageURL: "/o.jpg"},
			want: models.DisplayOriginal,
		},
		{
			name: "display url points at neither",
			raw:  models.RawReceipt{OriginalImageURL: "/o.jpg", OptimizedImageURL: "/p.jpg", DisplayImageURL: "/x.jpg"},
			want: models.DisplayOriginal,
		},
		{
			name: "explicit tag",
			raw:  models.RawReceipt{OriginalImageURL: "/o.jpg", OptimizedImageURL: "/p.jpg", DisplayVersion: models.DisplayOptimized},
			want: models.DisplayOptimized,
		},
		{
			name: "optimized tag without optimized image",
			raw:  models.RawReceipt{OriginalImageURL: "/o.jpg", DisplayVersion: models.DisplayOptimized},
			want: models.DisplayOriginal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(tt.raw)
			assert.Equal(t, tt.want, r.DisplayVersion)

			display := r.DisplayImageURL()
			assert.True(t, display == r.OriginalImageURL || display == r.OptimizedImageURL)
		})
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	raw := models.RawReceipt{ID: "legacy", ImageURL: "/uploads/receipts/legacy.jpg", CreatedAt: "2024-03-01T10:00:00Z"}

	once := Normalize(raw)
	twice := Normalize(once.Raw())

	assert.Equal(t, once, twice)
	assert.Equal(t, "/uploads/receipts/legacy.jpg", twice.OriginalImageURL)
	assert.Equal(t, "/uploads/receipts/legacy.jpg", twice.DisplayImageURL())
}
