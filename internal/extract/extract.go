// Package extract turns a receipt photograph into structured fields using a
// generative model.
package extract

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/shopspring/decimal"
)

// Extractor reads the fields of a receipt image. Any failure is returned as
// an *apperr.Error with CodeExtraction.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*models.ExtractedReceipt, error)
}

// StripFences removes a leading ```json or ``` fence and a trailing ``` fence.
func StripFences(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// rawItem and rawReceipt mirror the JSON the model is asked for. Numbers are
// decoded leniently since models sometimes quote them or add a currency sign.
type rawItem struct {
	Name     *string `json:"name"`
	Price    amount  `json:"price"`
	Quantity amount  `json:"quantity"`
}

type rawReceipt struct {
	StoreName   *string   `json:"storeName"`
	Date        *string   `json:"date"`
	TotalAmount amount    `json:"totalAmount"`
	Currency    *string   `json:"currency"`
	Category    *string   `json:"category"`
	Items       []rawItem `json:"items"`
}

// amount accepts a JSON number, a numeric string such as "$12.50" or
// "1,299.00", or null. Values that cannot be read are treated as null.
type amount struct {
	value *decimal.Decimal
}

func (a *amount) UnmarshalJSON(b []byte) error {
	a.value = nil
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var quoted string
		if err := json.Unmarshal(b, &quoted); err != nil {
			return err
		}
		s = cleanNumber(quoted)
		if s == "" {
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	a.value = &d
	return nil
}

func cleanNumber(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (a amount) float() *float64 {
	if a.value == nil {
		return nil
	}
	f := a.value.Round(2).InexactFloat64()
	return &f
}

func (a amount) quantity() *int {
	if a.value == nil {
		return nil
	}
	q := a.value.Round(0).IntPart()
	if q < 1 || q > math.MaxInt32 {
		return nil
	}
	n := int(q)
	return &n
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006/01/02", "02.01.2006"}

// ParseResponse decodes the model's text into an ExtractedReceipt.
func ParseResponse(text string) (*models.ExtractedReceipt, error) {
	clean := StripFences(text)
	if clean == "" {
		return nil, apperr.New(apperr.CodeExtraction, "model returned an empty response")
	}

	var raw rawReceipt
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, apperr.Wrap(apperr.CodeExtraction, "model returned invalid JSON", err)
	}

	out := &models.ExtractedReceipt{
		StoreName:   nonEmpty(raw.StoreName),
		Date:        normalizeDate(nonEmpty(raw.Date)),
		TotalAmount: raw.TotalAmount.float(),
		Currency:    normalizeCurrency(nonEmpty(raw.Currency)),
		Category:    nonEmpty(raw.Category),
	}
	for _, item := range raw.Items {
		name := nonEmpty(item.Name)
		if name == nil {
			continue
		}
		out.Items = append(out.Items, models.ReceiptItem{
			Name:     *name,
			Price:    item.Price.float(),
			Quantity: item.Quantity.quantity(),
		})
	}
	return out, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeDate rewrites recognised layouts to YYYY-MM-DD and leaves other
// values untouched.
func normalizeDate(s *string) *string {
	if s == nil {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			formatted := t.Format("2006-01-02")
			return &formatted
		}
	}
	return s
}

func normalizeCurrency(s *string) *string {
	if s == nil {
		return nil
	}
	upper := strings.ToUpper(*s)
	return &upper
}
