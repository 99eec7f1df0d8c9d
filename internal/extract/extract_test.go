package extract

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "no fence", in: `  {"a":1}  `, want: `{"a":1}`},
		{name: "trailing only", in: "{\"a\":1}```", want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestParseResponse(t *testing.T) {
	text := "```json\n" + `{
		"storeName": "Fresh Mart",
		"date": "2025/02/14",
		"totalAmount": "$1,299.50",
		"currency": "usd",
		"category": "Groceries",
		"items": [
			{"name": "Apples", "price": 3.2, "quantity": 2},
			{"name": "Bread", "price": "2.10"},
			{"name": "", "price": 1},
			{"name": "Mystery", "price": "n/a", "quantity": 0}
		]
	}` + "\n```"

	got, err := ParseResponse(text)
	require.NoError(t, err)

	require.NotNil(t, got.StoreName)
	assert.Equal(t, "Fresh Mart", *got.StoreName)
	require.NotNil(t, got.Date)
	assert.Equal(t, "2025-02-14", *got.Date)
	require.NotNil(t, got.TotalAmount)
	assert.InDelta(t, 1299.50, *got.TotalAmount, 0.001)
	require.NotNil(t, got.Currency)
	assert.Equal(t, "USD", *got.Currency)

	require.Len(t, got.Items, 3)
	assert.Equal(t, "Apples", got.Items[0].Name)
	require.NotNil(t, got.Items[0].Quantity)
	assert.Equal(t, 2, *got.Items[0].Quantity)
	assert.InDelta(t, 2.10, *got.Items[1].Price, 0.001)
	assert.Nil(t, got.Items[1].Quantity)
	assert.Nil(t, got.Items[2].Price)
	assert.Nil(t, got.Items[2].Quantity)
}

func TestParseResponseNulls(t *testing.T) {
	got, err := ParseResponse(`{"storeName": null, "date": "", "totalAmount": null, "items": null}`)
	require.NoError(t, err)
	assert.Nil(t, got.StoreName)
	assert.Nil(t, got.Date)
	assert.Nil(t, got.TotalAmount)
	assert.Nil(t, got.Currency)
	assert.Empty(t, got.Items)
}

func TestParseResponseErrors(t *testing.T) {
	for _, text := range []string{"", "```json\n```", "I could not read this receipt.", `{"storeName": 5}`} {
		_, err := ParseResponse(text)
		assert.True(t, apperr.Is(err, apperr.CodeExtraction), "input %q", text)
	}
}

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}}},
	}
}

func TestVertexExtractor(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"storeName": "Cafe", "totalAmount": 4.5}`)}
	e := newVertexExtractor(gen, nil)

	got, err := e.Extract(context.Background(), []byte("image-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Cafe", *got.StoreName)

	require.Len(t, gen.parts, 2)
	blob, ok := gen.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, []byte("image-bytes"), blob.Data)
}

func TestVertexExtractorFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "model error", gen: &fakeGenerator{err: errors.New("quota exceeded")}},
		{name: "no candidates", gen: &fakeGenerator{resp: &genai.GenerateContentResponse{}}},
		{name: "not json", gen: &fakeGenerator{resp: textResponse("sorry")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newVertexExtractor(tt.gen, nil).Extract(context.Background(), []byte("x"), "image/jpeg")
			assert.True(t, apperr.Is(err, apperr.CodeExtraction))
		})
	}
}

func TestNewVertexExtractorRequiresModel(t *testing.T) {
	_, err := NewVertexExtractor(nil, nil)
	assert.ErrorIs(t, err, ErrNoModel)
}
