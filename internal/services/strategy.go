package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/cesarano/2026-Strategy/internal/store"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ChatStore persists strategy sessions. Get returns (nil, nil) when unknown.
type ChatStore interface {
	Save(ctx context.Context, session *models.ChatSession) error
	Get(ctx context.Context, id string) (*models.ChatSession, error)
	List(ctx context.Context) ([]*models.ChatSession, error)
}

// Responder produces the assistant's reply given the prior conversation and
// the parts of the new user turn.
type Responder interface {
	Respond(ctx context.Context, history []*genai.Content, parts []genai.Part) (string, error)
}

// VertexResponder answers through a genai chat session.
type VertexResponder struct {
	Model *genai.GenerativeModel
}

func (v *VertexResponder) Respond(ctx context.Context, history []*genai.Content, parts []genai.Part) (string, error) {
	cs := v.Model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("model returned an empty reply (finish reason %s)", resp.Candidates[0].FinishReason)
	}
	return b.String(), nil
}

// StrategyService runs the strategy-assistant conversation and keeps its history.
type StrategyService struct {
	chats     ChatStore
	responder Responder
	modelName string
	logger    *slog.Logger
	now       func() time.Time
	locks     *keyedMutex
}

func NewStrategyService(chats ChatStore, responder Responder, modelName string, logger *slog.Logger) *StrategyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StrategyService{
		chats:     chats,
		responder: responder,
		modelName: modelName,
		logger:    logger,
		now:       time.Now,
		locks:     newKeyedMutex(),
	}
}

// Chat sends the prompt, with any attached files and context, to the model
// and appends both turns to the session. A new session is started when
// req.SessionID is empty or unknown.
func (s *StrategyService) Chat(ctx context.Context, req *models.StrategyChatRequest) (*models.StrategyChatResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperr.Validation("prompt is required")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !store.ValidID(sessionID) {
		return nil, apperr.Validation("invalid session id")
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	logCtx := s.logger.With("sessionId", sessionID)

	session, err := s.chats.Get(ctx, sessionID)
	if err != nil {
		logCtx.Error("Failed to load chat session", "error", err)
		return nil, err
	}
	ts := s.now().UTC().Format(time.RFC3339Nano)
	if session == nil {
		session = &models.ChatSession{ID: sessionID, Messages: []models.ChatMessage{}, CreatedAt: ts}
	}

	parts, fileMeta := s.buildParts(logCtx, req)

	reply, err := s.responder.Respond(ctx, history(session.Messages), parts)
	if err != nil {
		logCtx.Error("Call to Vertex AI for strategy chat failed", "error", err)
		return nil, apperr.Wrap(apperr.CodeGeneration, "failed to generate a reply", err)
	}

	metadata := map[string]any{
		"timestamp":      ts,
		"model":          s.modelName,
		"filesProcessed": len(req.Files),
	}
	if len(fileMeta) > 0 {
		metadata["files"] = fileMeta
	}

	aiMessage := models.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    models.SenderAI,
		Content:   reply,
		Timestamp: ts,
		Metadata:  metadata,
	}
	session.Messages = append(session.Messages,
		models.ChatMessage{ID: uuid.NewString(), Sender: models.SenderUser, Content: req.Prompt, Timestamp: ts},
		aiMessage,
	)
	session.UpdatedAt = ts

	if err := s.chats.Save(ctx, session); err != nil {
		logCtx.Error("Failed to save chat session", "error", err)
		return nil, err
	}

	logCtx.Info("Strategy reply generated.", "messages", len(session.Messages), "files", len(req.Files))
	return &models.StrategyChatResponse{SessionID: sessionID, Reply: aiMessage, Metadata: metadata}, nil
}

// Sessions lists every stored session, most recently updated first.
func (s *StrategyService) Sessions(ctx context.Context) ([]*models.ChatSession, error) {
	sessions, err := s.chats.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list chat sessions", "error", err)
		return nil, err
	}
	return sessions, nil
}

func (s *StrategyService) Session(ctx context.Context, id string) (*models.ChatSession, error) {
	session, err := s.chats.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.NotFound("session not found")
	}
	return session, nil
}

// buildParts turns the request into model parts. PDFs and images are sent
// inline, text files are quoted into the prompt, and anything else is noted
// as unsupported.
func (s *StrategyService) buildParts(logCtx *slog.Logger, req *models.StrategyChatRequest) ([]genai.Part, []map[string]any) {
	var (
		parts    []genai.Part
		quoted   []string
		fileMeta []map[string]any
	)
	for i, f := range req.Files {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("uploaded-file-%d", i+1)
		}
		mimeType := f.MIMEType
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = mimetype.Detect(f.Data).String()
		}
		meta := map[string]any{"name": name, "mimeType": mimeType, "bytes": len(f.Data)}

		switch {
		case strings.HasPrefix(mimeType, "application/pdf"):
			pages, err := pdfPageCount(f.Data)
			if err != nil {
				logCtx.Warn("Attached PDF could not be read", "file", name, "error", err)
				quoted = append(quoted, fmt.Sprintf("[Error reading file: %s]", name))
				meta["error"] = "unreadable pdf"
				break
			}
			meta["pages"] = pages
			parts = append(parts, genai.Blob{MIMEType: "application/pdf", Data: f.Data})
		case strings.HasPrefix(mimeType, "image/"):
			parts = append(parts, genai.Blob{MIMEType: mimeType, Data: f.Data})
		case strings.HasPrefix(mimeType, "text/"):
			quoted = append(quoted, fmt.Sprintf("--- Start of file: %s ---\n%s\n--- End of file ---", name, string(f.Data)))
		default:
			quoted = append(quoted, fmt.Sprintf("[Unsupported file type: %s]", name))
			meta["error"] = "unsupported type"
		}
		fileMeta = append(fileMeta, meta)
	}

	prompt := req.Prompt
	if len(quoted) > 0 {
		prompt += "\n\nContext from attached files:\n" + strings.Join(quoted, "\n\n")
	}
	if len(req.Context) > 0 {
		if ctxJSON, err := json.MarshalIndent(req.Context, "", "  "); err == nil {
			prompt += "\n\nAdditional Context:\n" + string(ctxJSON)
		}
	}
	return append(parts, genai.Text(prompt)), fileMeta
}

func pdfPageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// history converts stored messages to genai chat history.
func history(messages []models.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Sender == models.SenderAI {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return out
}
