package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/service"
)

// DriveService lists a user's Google Drive.
type DriveService interface {
	ListFiles(ctx context.Context, userID string, input service.ListFilesInput) (*model.DriveFilePage, error)
}

// DriveHandler proxies Google Drive listings.
type DriveHandler struct {
	svc    DriveService
	logger *slog.Logger
}

// NewDriveHandler creates a new DriveHandler.
func NewDriveHandler(svc DriveService, logger *slog.Logger) *DriveHandler {
	return &DriveHandler{
		svc:    svc,
		logger: logger,
	}
}

// ListFiles handles GET /api/drive/files.
func (h *DriveHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Unparseable sizes fall back to the default.
	pageSize := 0
	if s := query.Get("page_size"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			pageSize = parsed
		}
	}

	page, err := h.svc.ListFiles(r.Context(), auth.UserIDFromContext(r.Context()), service.ListFilesInput{
		PageSize:  pageSize,
		PageToken: query.Get("page_token"),
		Query:     query.Get("q"),
		FolderID:  query.Get("folder_id"),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}
