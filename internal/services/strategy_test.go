package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/cesarano/2026-Strategy/internal/store"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	reply   string
	err     error
	history []*genai.Content
	parts   []genai.Part
}

func (f *fakeResponder) Respond(_ context.Context, history []*genai.Content, parts []genai.Part) (string, error) {
	f.history = history
	f.parts = parts
	return f.reply, f.err
}

func newTestStrategy(t *testing.T, responder Responder) *StrategyService {
	t.Helper()
	chats, err := store.NewChatStore(memfs.New(), "data", nil)
	require.NoError(t, err)
	svc := NewStrategyService(chats, responder, "test-model", nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC) }
	return svc
}

func lastText(t *testing.T, parts []genai.Part) string {
	t.Helper()
	require.NotEmpty(t, parts)
	txt, ok := parts[len(parts)-1].(genai.Text)
	require.True(t, ok, "the prompt is the final part")
	return string(txt)
}

func TestStrategyChatNewSession(t *testing.T) {
	ctx := context.Background()
	responder := &fakeResponder{reply: "Focus on three goals."}
	svc := newTestStrategy(t, responder)

	resp, err := svc.Chat(ctx, &models.StrategyChatRequest{Prompt: "Plan my year", Context: map[string]any{"team": "solo"}})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Focus on three goals.", resp.Reply.Content)
	assert.Equal(t, models.SenderAI, resp.Reply.Sender)
	assert.Equal(t, "test-model", resp.Metadata["model"])
	assert.Equal(t, 0, resp.Metadata["filesProcessed"])

	assert.Empty(t, responder.history)
	prompt := lastText(t, responder.parts)
	assert.Contains(t, prompt, "Plan my year")
	assert.Contains(t, prompt, "Additional Context:")
	assert.Contains(t, prompt, `"team": "solo"`)

	session, err := svc.Session(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, models.SenderUser, session.Messages[0].Sender)
	assert.Equal(t, "Plan my year", session.Messages[0].Content)
	assert.Equal(t, "2026-01-05T09:30:00Z", session.UpdatedAt)
}

func TestStrategyChatContinuesSession(t *testing.T) {
	ctx := context.Background()
	responder := &fakeResponder{reply: "first"}
	svc := newTestStrategy(t, responder)

	first, err := svc.Chat(ctx, &models.StrategyChatRequest{Prompt: "hello"})
	require.NoError(t, err)

	responder.reply = "second"
	second, err := svc.Chat(ctx, &models.StrategyChatRequest{SessionID: first.SessionID, Prompt: "and then?"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	require.Len(t, responder.history, 2)
	assert.Equal(t, "user", responder.history[0].Role)
	assert.Equal(t, "model", responder.history[1].Role)

	sessions, err := svc.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Messages, 4)
}

func TestStrategyChatFiles(t *testing.T) {
	responder := &fakeResponder{reply: "ok"}
	svc := newTestStrategy(t, responder)

	resp, err := svc.Chat(context.Background(), &models.StrategyChatRequest{
		Prompt: "Summarise",
		Files: []models.ChatFile{
			{Name: "notes.txt", MIMEType: "text/plain", Data: []byte("Revenue up 10%")},
			{Name: "broken.pdf", MIMEType: "application/pdf", Data: []byte("not really a pdf")},
			{Name: "chart.png", MIMEType: "image/png", Data: []byte("png-bytes")},
			{Name: "archive.zip", MIMEType: "application/zip", Data: []byte("PK")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Metadata["filesProcessed"])

	require.Len(t, responder.parts, 2)
	blob, ok := responder.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)

	prompt := lastText(t, responder.parts)
	assert.Contains(t, prompt, "--- Start of file: notes.txt ---\nRevenue up 10%\n--- End of file ---")
	assert.Contains(t, prompt, "[Error reading file: broken.pdf]")
	assert.Contains(t, prompt, "[Unsupported file type: archive.zip]")
}

func TestStrategyChatErrors(t *testing.T) {
	ctx := context.Background()

	svc := newTestStrategy(t, &fakeResponder{reply: "x"})
	_, err := svc.Chat(ctx, &models.StrategyChatRequest{Prompt: "  "})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = svc.Chat(ctx, &models.StrategyChatRequest{Prompt: "hi", SessionID: "../../etc"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = svc.Session(ctx, "unknown")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	failing := newTestStrategy(t, &fakeResponder{err: errors.New("deadline exceeded")})
	_, err = failing.Chat(ctx, &models.StrategyChatRequest{Prompt: "hi", SessionID: "s1"})
	assert.True(t, apperr.Is(err, apperr.CodeGeneration))

	_, err = failing.Session(ctx, "s1")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "nothing is persisted when the model fails")
}
