package handler

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/handler/dto"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/service"
)

// FileService manages imported files.
type FileService interface {
	Import(ctx context.Context, userID string, input service.ImportInput) (*model.File, error)
	Get(ctx context.Context, userID, id string) (*model.File, error)
	Open(ctx context.Context, userID, id string) (*service.Content, error)
	Delete(ctx context.Context, userID, id string) error
}

// FileHandler handles HTTP requests for file operations.
type FileHandler struct {
	svc    FileService
	logger *slog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(svc FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		svc:    svc,
		logger: logger,
	}
}

// Import handles POST /api/files/import.
func (h *FileHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	file, err := h.svc.Import(r.Context(), auth.UserIDFromContext(r.Context()), service.ImportInput{
		DataroomID:   req.DataroomID,
		GoogleFileID: req.GoogleFileID,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("file_imported",
		"file_id", file.ID,
		"dataroom_id", file.DataroomID,
	)
	writeJSON(w, http.StatusCreated, file)
}

// Get handles GET /api/files/{id}.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	file, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// Download handles GET /api/files/{id}/download.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	content, err := h.svc.Open(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	defer content.Body.Close()

	w.Header().Set("Content-Type", content.File.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": content.File.Name,
	}))
	if content.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Body); err != nil {
		// Headers are gone; all we can do is log.
		h.logger.Warn("download_interrupted",
			"file_id", content.File.ID,
			"error", err,
		)
	}
}

// Delete handles DELETE /api/files/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("file_deleted", "file_id", id)
	writeMessage(w, "File deleted successfully")
}
