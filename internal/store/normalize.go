package store

import "github.com/cesarano/2026-Strategy/internal/models"

// Migrate upgrades a record persisted before the dual-image fields existed.
// A legacy imageUrl becomes the original image, and a missing display
// reference falls back to the original. Migrating twice is the same as
// migrating once.
func Migrate(raw models.RawReceipt) models.RawReceipt {
	if raw.OriginalImageURL == "" && raw.ImageURL != "" {
		raw.OriginalImageURL = raw.ImageURL
	}
	if raw.DisplayImageURL == "" {
		raw.DisplayImageURL = raw.OriginalImageURL
	}
	if raw.Items == nil {
		raw.Items = []models.ReceiptItem{}
	}
	return raw
}

// Normalize migrates raw and converts it to a Receipt. The display tag is
// taken from displayVersion when present and valid, otherwise inferred from
// displayImageUrl. A display reference matching neither image resolves to
// the original.
func Normalize(raw models.RawReceipt) *models.Receipt {
	raw = Migrate(raw)

	version := models.DisplayOriginal
	switch {
	case raw.DisplayVersion == models.DisplayOptimized && raw.OptimizedImageURL != "":
		version = models.DisplayOptimized
	case raw.DisplayVersion == "" && raw.OptimizedImageURL != "" && raw.DisplayImageURL == raw.OptimizedImageURL:
		version = models.DisplayOptimized
	}

	return &models.Receipt{
		ID:                raw.ID,
		StoreName:         raw.StoreName,
		Date:              raw.Date,
		TotalAmount:       raw.TotalAmount,
		Currency:          raw.Currency,
		Category:          raw.Category,
		Items:             raw.Items,
		OriginalImageURL:  raw.OriginalImageURL,
		OptimizedImageURL: raw.OptimizedImageURL,
		DisplayVersion:    version,
		CreatedAt:         raw.CreatedAt,
		UpdatedAt:         raw.UpdatedAt,
	}
}
