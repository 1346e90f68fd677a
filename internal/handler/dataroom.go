package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/handler/dto"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/service"
)

// DataroomService manages a user's datarooms.
type DataroomService interface {
	Create(ctx context.Context, userID string, input service.CreateDataroomInput) (*model.Dataroom, error)
	List(ctx context.Context, userID string) ([]*model.Dataroom, error)
	Get(ctx context.Context, userID, id string) (*model.Dataroom, []*model.File, error)
	ListFiles(ctx context.Context, userID, id string) ([]*model.File, error)
	Update(ctx context.Context, userID, id string, input service.UpdateDataroomInput) (*model.Dataroom, error)
	Delete(ctx context.Context, userID, id string) error
}

// DataroomHandler handles HTTP requests for dataroom operations.
type DataroomHandler struct {
	svc    DataroomService
	logger *slog.Logger
}

// NewDataroomHandler creates a new DataroomHandler.
func NewDataroomHandler(svc DataroomService, logger *slog.Logger) *DataroomHandler {
	return &DataroomHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/datarooms.
func (h *DataroomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if rooms == nil {
		rooms = []*model.Dataroom{}
	}
	writeJSON(w, http.StatusOK, dto.DataroomListResponse{Datarooms: rooms})
}

// Create handles POST /api/datarooms.
func (h *DataroomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDataroomRequest
	// A missing body is reported as a missing name by the service.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeDecodeError(w, err)
		return
	}

	room, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), service.CreateDataroomInput{
		Name:           req.Name,
		Description:    req.Description.Value,
		DescriptionSet: req.Description.Present,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("dataroom_created",
		"dataroom_id", room.ID,
		"user_id", room.UserID,
	)
	writeJSON(w, http.StatusCreated, room)
}

// Get handles GET /api/datarooms/{id}.
func (h *DataroomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, files, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDataroomDetail(room, files))
}

// Update handles PUT /api/datarooms/{id}.
func (h *DataroomHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateDataroomRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeDecodeError(w, err)
		return
	}

	room, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), service.UpdateDataroomInput{
		Name:           req.Name,
		Description:    req.Description.Value,
		DescriptionSet: req.Description.Present,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("dataroom_updated", "dataroom_id", room.ID)
	writeJSON(w, http.StatusOK, room)
}

// Delete handles DELETE /api/datarooms/{id}.
func (h *DataroomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("dataroom_deleted", "dataroom_id", id)
	writeMessage(w, "Dataroom deleted successfully")
}

// ListFiles handles GET /api/datarooms/{id}/files.
func (h *DataroomHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListFiles(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if files == nil {
		files = []*model.File{}
	}
	writeJSON(w, http.StatusOK, dto.FileListResponse{Files: files})
}
