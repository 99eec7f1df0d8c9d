// Package store persists receipt records and strategy chat sessions.
package store

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/cesarano/2026-Strategy/internal/models"
)

// ReceiptStore is durable keyed storage of receipt records. Get returns
// (nil, nil) when the id is unknown. Get and List return migrated records.
type ReceiptStore interface {
	Save(ctx context.Context, r *models.Receipt) error
	Get(ctx context.Context, id string) (*models.Receipt, error)
	List(ctx context.Context) ([]*models.Receipt, error)
	Delete(ctx context.Context, id string) (bool, error)
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidID reports whether id is safe to use as a storage key.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

var sortLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// sortTime returns the instant a receipt sorts by: its date, falling back to
// createdAt. ok is false when neither parses.
func sortTime(r *models.Receipt) (t time.Time, ok bool) {
	value := r.CreatedAt
	if r.Date != nil && *r.Date != "" {
		value = *r.Date
	}
	for _, layout := range sortLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortNewestFirst orders receipts by date (or createdAt) descending.
// Receipts whose date cannot be parsed sort last, by id for stability.
func SortNewestFirst(receipts []*models.Receipt) {
	sort.SliceStable(receipts, func(i, j int) bool {
		ti, okI := sortTime(receipts[i])
		tj, okJ := sortTime(receipts[j])
		switch {
		case okI && okJ:
			if ti.Equal(tj) {
				return receipts[i].ID < receipts[j].ID
			}
			return ti.After(tj)
		case okI != okJ:
			return okI
		default:
			return receipts[i].ID < receipts[j].ID
		}
	})
}
