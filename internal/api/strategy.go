package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/cesarano/2026-Strategy/internal/services"
)

// MaxChatUploadBytes bounds the total size of a multipart chat request.
const MaxChatUploadBytes = 32 << 20

type strategyHandler struct {
	svc *services.StrategyService
}

// NewStrategyHandler routes the strategy-assistant chat API.
func NewStrategyHandler(svc *services.StrategyService) http.Handler {
	h := &strategyHandler{svc: svc}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ai/chat", h.chat)
	mux.HandleFunc("GET /api/ai/sessions", h.sessions)
	mux.HandleFunc("GET /api/ai/sessions/{id}", h.session)
	return mux
}

// chat accepts either a JSON StrategyChatRequest or a multipart form with
// prompt, sessionId, context (a JSON string) and files.
func (h *strategyHandler) chat(w http.ResponseWriter, r *http.Request) {
	var (
		req *models.StrategyChatRequest
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		req = &models.StrategyChatRequest{}
		err = decodeJSON(w, r, req)
	} else {
		req, err = parseChatForm(w, r)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseChatForm(w http.ResponseWriter, r *http.Request) (*models.StrategyChatRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxChatUploadBytes)
	if err := r.ParseMultipartForm(MaxChatUploadBytes); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "could not parse form", err)
	}

	req := &models.StrategyChatRequest{
		Prompt:    r.FormValue("prompt"),
		SessionID: r.FormValue("sessionId"),
	}
	if raw := r.FormValue("context"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Context); err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, "Invalid JSON in context", err)
		}
	}

	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, "could not read attached file", err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, "could not read attached file", err)
		}
		req.Files = append(req.Files, models.ChatFile{
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return req, nil
}

func (h *strategyHandler) sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.Sessions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *strategyHandler) session(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
