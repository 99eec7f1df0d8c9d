package models

import (
	"encoding/json"
	"fmt"
)

// DisplayVersion selects which of a receipt's two images is shown.
type DisplayVersion string

const (
	DisplayOriginal  DisplayVersion = "original"
	DisplayOptimized DisplayVersion = "optimized"
)

// ParseDisplayVersion validates a version token received from a client.
func ParseDisplayVersion(s string) (DisplayVersion, error) {
	switch v := DisplayVersion(s); v {
	case DisplayOriginal, DisplayOptimized:
		return v, nil
	default:
		return "", fmt.Errorf("invalid display version %q: must be %q or %q", s, DisplayOriginal, DisplayOptimized)
	}
}

// ReceiptItem is one line of a receipt. Price is nil when it could not be read.
type ReceiptItem struct {
	Name     string   `json:"name" firestore:"name" validate:"required"`
	Price    *float64 `json:"price" firestore:"price"`
	Quantity *int     `json:"quantity,omitempty" firestore:"quantity,omitempty" validate:"omitempty,min=1"`
}

// Receipt is the in-memory form of a receipt record. The displayed image is
// kept as a tag over the two file references, never as a third path, so it
// always resolves to one of them.
type Receipt struct {
	ID          string
	StoreName   *string
	Date        *string
	TotalAmount *float64
	Currency    *string
	Category    *string
	Items       []ReceiptItem

	OriginalImageURL  string
	OptimizedImageURL string
	DisplayVersion    DisplayVersion

	CreatedAt string
	UpdatedAt string
}

// DisplayImageURL resolves the display tag to a file reference.
func (r *Receipt) DisplayImageURL() string {
	if r.DisplayVersion == DisplayOptimized && r.OptimizedImageURL != "" {
		return r.OptimizedImageURL
	}
	return r.OriginalImageURL
}

// Raw returns the persisted shape of r.
func (r *Receipt) Raw() RawReceipt {
	items := r.Items
	if items == nil {
		items = []ReceiptItem{}
	}
	version := r.DisplayVersion
	if version != DisplayOptimized || r.OptimizedImageURL == "" {
		version = DisplayOriginal
	}
	return RawReceipt{
		ID:                r.ID,
		StoreName:         r.StoreName,
		Date:              r.Date,
		TotalAmount:       r.TotalAmount,
		Currency:          r.Currency,
		Category:          r.Category,
		Items:             items,
		OriginalImageURL:  r.OriginalImageURL,
		OptimizedImageURL: r.OptimizedImageURL,
		DisplayImageURL:   r.DisplayImageURL(),
		DisplayVersion:    version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// MarshalJSON emits the persisted shape, which includes the resolved
// displayImageUrl the UI reads.
func (r *Receipt) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Raw())
}

// RawReceipt is a receipt exactly as it is stored on disk or in Firestore.
// Records written before the dual-image fields existed only carry ImageURL.
type RawReceipt struct {
	ID          string        `json:"id" firestore:"id"`
	StoreName   *string       `json:"storeName" firestore:"storeName"`
	Date        *string       `json:"date" firestore:"date"`
	TotalAmount *float64      `json:"totalAmount" firestore:"totalAmount"`
	Currency    *string       `json:"currency" firestore:"currency"`
	Category    *string       `json:"category" firestore:"category"`
	Items       []ReceiptItem `json:"items" firestore:"items"`

	ImageURL          string         `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	OriginalImageURL  string         `json:"originalImageUrl,omitempty" firestore:"originalImageUrl,omitempty"`
	OptimizedImageURL string         `json:"optimizedImageUrl,omitempty" firestore:"optimizedImageUrl,omitempty"`
	DisplayImageURL   string         `json:"displayImageUrl,omitempty" firestore:"displayImageUrl,omitempty"`
	DisplayVersion    DisplayVersion `json:"displayVersion,omitempty" firestore:"displayVersion,omitempty"`

	CreatedAt string `json:"createdAt" firestore:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// ExtractedReceipt holds the fields the AI model returned. Every field is
// optional; nil means the model did not provide it.
type ExtractedReceipt struct {
	StoreName   *string
	Date        *string
	TotalAmount *float64
	Currency    *string
	Category    *string
	Items       []ReceiptItem
}
