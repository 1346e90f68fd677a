package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dataroom/dataroom/internal/metrics"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/repository"
	"github.com/dataroom/dataroom/internal/storage"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const maxDataroomNameLength = 255

// DataroomService handles dataroom business logic.
type DataroomService struct {
	rooms   DataroomStore
	files   FileStore
	blobs   storage.Store
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewDataroomService creates a new DataroomService.
func NewDataroomService(rooms DataroomStore, files FileStore, blobs storage.Store, logger *slog.Logger, recorder metrics.Recorder) *DataroomService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DataroomService{
		rooms:   rooms,
		files:   files,
		blobs:   blobs,
		logger:  logger,
		metrics: recorder,
	}
}

// CreateDataroomInput defines input for creating a dataroom. An absent
// description is stored as ""; an explicit null is stored as null.
type CreateDataroomInput struct {
	Name           string
	Description    *string
	DescriptionSet bool
}

func validateName(name *string) error {
	return validation.Validate(name,
		validation.Required.Error("Name is required"),
		validation.RuneLength(1, maxDataroomNameLength).Error("Name must be at most 255 characters"),
	)
}

// Create creates a dataroom owned by userID.
func (s *DataroomService) Create(ctx context.Context, userID string, input CreateDataroomInput) (*model.Dataroom, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateName(&name); err != nil {
		return nil, &ValidationError{Message: validationMessage(err), Err: err}
	}

	description := new(string)
	if input.DescriptionSet {
		description = input.Description
	}

	now := time.Now().UTC()
	room := &model.Dataroom{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.rooms.CreateDataroom(ctx, room); err != nil {
		return nil, err
	}

	s.metrics.IncDataroomCreated()
	return room, nil
}

// List returns the user's datarooms, newest first.
func (s *DataroomService) List(ctx context.Context, userID string) ([]*model.Dataroom, error) {
	return s.rooms.ListDatarooms(ctx, userID)
}

// Get returns a dataroom with its imported files.
func (s *DataroomService) Get(ctx context.Context, userID, id string) (*model.Dataroom, []*model.File, error) {
	room, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	files, err := s.files.ListImportedFiles(ctx, room.ID)
	if err != nil {
		return nil, nil, err
	}
	return room, files, nil
}

// ListFiles returns the imported files of a dataroom, newest first.
func (s *DataroomService) ListFiles(ctx context.Context, userID, id string) ([]*model.File, error) {
	room, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.files.ListImportedFiles(ctx, room.ID)
}

// UpdateDataroomInput is a partial update. A nil or blank Name keeps the
// current name; DescriptionSet replaces the description, nil clearing it.
type UpdateDataroomInput struct {
	Name           *string
	Description    *string
	DescriptionSet bool
}

// Update applies a partial update.
func (s *DataroomService) Update(ctx context.Context, userID, id string, input UpdateDataroomInput) (*model.Dataroom, error) {
	upd := model.DataroomUpdate{
		Description:    input.Description,
		DescriptionSet: input.DescriptionSet,
	}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			if err := validateName(&name); err != nil {
				return nil, &ValidationError{Message: validationMessage(err), Err: err}
			}
			upd.Name = &name
		}
	}

	room, err := s.rooms.UpdateDataroom(ctx, id, userID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrDataroomNotFound) {
			return nil, ErrDataroomNotFound
		}
		return nil, err
	}
	return room, nil
}

// Delete removes the dataroom with all its files and their stored content.
// Blob removal is best effort once the rows are gone.
func (s *DataroomService) Delete(ctx context.Context, userID, id string) error {
	paths, err := s.rooms.DeleteDataroom(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrDataroomNotFound) {
			return ErrDataroomNotFound
		}
		return err
	}

	for _, p := range paths {
		if err := s.blobs.Delete(ctx, p); err != nil {
			s.logger.Warn("failed to delete stored file",
				slog.String("dataroom_id", id),
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}

	s.metrics.IncDataroomDeleted()
	return nil
}

func (s *DataroomService) get(ctx context.Context, userID, id string) (*model.Dataroom, error) {
	room, err := s.rooms.GetDataroom(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrDataroomNotFound) {
			return nil, ErrDataroomNotFound
		}
		return nil, err
	}
	return room, nil
}
