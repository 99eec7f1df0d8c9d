package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/gcp"
	"github.com/cesarano/2026-Strategy/internal/models"
)

// ErrNoModel is returned by NewVertexExtractor when no model is configured.
var ErrNoModel = errors.New("extract: a generative model is required")

// contentGenerator is the subset of *genai.GenerativeModel the extractor uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexExtractor sends the receipt image inline to a Gemini model on Vertex AI.
type VertexExtractor struct {
	model  contentGenerator
	prompt string
	logger *slog.Logger
}

// NewVertexExtractor wraps a model configured for JSON output, normally
// gcp.VertexClient.ReceiptModel.
func NewVertexExtractor(model *genai.GenerativeModel, logger *slog.Logger) (*VertexExtractor, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	return newVertexExtractor(model, logger), nil
}

func newVertexExtractor(model contentGenerator, logger *slog.Logger) *VertexExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &VertexExtractor{model: model, prompt: gcp.ReceiptUserPrompt, logger: logger}
}

func (e *VertexExtractor) Extract(ctx context.Context, image []byte, mimeType string) (*models.ExtractedReceipt, error) {
	logCtx := e.logger.With("mimeType", mimeType, "bytes", len(image))

	resp, err := e.model.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: image}, genai.Text(e.prompt))
	if err != nil {
		logCtx.Error("Call to Vertex AI for receipt extraction failed", "error", err)
		return nil, apperr.Wrap(apperr.CodeExtraction, "failed to extract receipt data", err)
	}

	text := responseText(resp)
	receipt, err := ParseResponse(text)
	if err != nil {
		logCtx.Error("Failed to parse extraction response", "error", err, "responseBody", text)
		return nil, err
	}
	logCtx.Info("Receipt fields extracted.", "items", len(receipt.Items))
	return receipt, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
