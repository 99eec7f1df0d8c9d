// Package api exposes the receipt and strategy services over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// writeError answers with the status and user-facing message of err. The
// full error is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, models.ErrorResponse{Error: apperr.MessageOf(err), Code: string(apperr.CodeOf(err))})
}

// decodeJSON reads a JSON body into dst. Unknown fields are ignored and an
// empty body leaves dst unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(apperr.CodeValidation, "could not parse JSON body", err)
	}
	return nil
}
