package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/cesarano/2026-Strategy/internal/services"
	"github.com/cesarano/2026-Strategy/internal/transform"
)

// MaxUploadBytes bounds a receipt image upload.
const MaxUploadBytes = 20 << 20

type receiptsHandler struct {
	svc *services.ReceiptService
}

// NewReceiptsHandler routes the receipts API and the uploaded image files.
func NewReceiptsHandler(svc *services.ReceiptService) http.Handler {
	h := &receiptsHandler{svc: svc}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/receipts", h.list)
	mux.HandleFunc("POST /api/receipts", h.create)
	mux.HandleFunc("GET /api/receipts/{id}", h.get)
	mux.HandleFunc("PUT /api/receipts/{id}", h.update)
	mux.HandleFunc("DELETE /api/receipts/{id}", h.delete)
	mux.HandleFunc("POST /api/receipts/{id}/crop-enhance", h.enhance)
	mux.HandleFunc("POST /api/receipts/{id}/set-display-image", h.setDisplayImage)
	mux.HandleFunc("GET /api/receipts/{id}/download-image", h.downloadImage)
	mux.HandleFunc("GET /uploads/receipts/{file}", h.serveImage)
	return mux
}

func (h *receiptsHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.List(r.Context()))
}

func (h *receiptsHandler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("receiptImage")
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.CodeValidation, "No image file provided", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.CodeValidation, "could not read uploaded image", err))
		return
	}

	receipt, err := h.svc.Create(r.Context(), data, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *receiptsHandler) get(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *receiptsHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch models.ReceiptPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := h.svc.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *receiptsHandler) delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, apperr.NotFound("Receipt not found"))
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Receipt deleted successfully"})
}

func (h *receiptsHandler) enhance(w http.ResponseWriter, r *http.Request) {
	var opts transform.Options
	if err := decodeJSON(w, r, &opts); err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := h.svc.Enhance(r.Context(), r.PathValue("id"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.EnhanceResponse{
		Message:         "Image processed successfully",
		DisplayImageURL: receipt.DisplayImageURL(),
	})
}

func (h *receiptsHandler) setDisplayImage(w http.ResponseWriter, r *http.Request) {
	var req models.SetDisplayImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := h.svc.SetDisplayVersion(r.Context(), r.PathValue("id"), req.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SetDisplayImageResponse{
		Message:         fmt.Sprintf("Display image set to %s", receipt.DisplayVersion),
		DisplayImageURL: receipt.DisplayImageURL(),
	})
}

func (h *receiptsHandler) downloadImage(w http.ResponseWriter, r *http.Request) {
	data, mimeType, name, err := h.svc.DisplayImage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	writeImage(w, data, mimeType)
}

func (h *receiptsHandler) serveImage(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := h.svc.Image(r.Context(), r.PathValue("file"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	writeImage(w, data, mimeType)
}

func writeImage(w http.ResponseWriter, data []byte, mimeType string) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
