package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/metrics"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/repository"
	"github.com/dataroom/dataroom/internal/storage"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultImportLockTTL covers a full download of a large file.
const DefaultImportLockTTL = 3 * time.Minute

// ImportError is an import that failed outside Google, such as a storage
// or database failure.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return "Failed to import file: " + e.Err.Error()
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// FileService imports Drive files into datarooms and serves them back.
type FileService struct {
	rooms   DataroomStore
	files   FileStore
	drive   *DriveService
	google  GoogleDrive
	blobs   storage.Store
	locker  ImportLocker
	lockTTL time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder
}

// FileServiceDeps groups FileService collaborators. Locker may be nil, in
// which case only the database guards against duplicate imports.
type FileServiceDeps struct {
	Rooms   DataroomStore
	Files   FileStore
	Drive   *DriveService
	Google  GoogleDrive
	Blobs   storage.Store
	Locker  ImportLocker
	LockTTL time.Duration
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// NewFileService creates a new FileService.
func NewFileService(deps FileServiceDeps) *FileService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.LockTTL == 0 {
		deps.LockTTL = DefaultImportLockTTL
	}
	return &FileService{
		rooms:   deps.Rooms,
		files:   deps.Files,
		drive:   deps.Drive,
		google:  deps.Google,
		blobs:   deps.Blobs,
		locker:  deps.Locker,
		lockTTL: deps.LockTTL,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
}

// ImportInput identifies the Drive file to copy and its destination.
type ImportInput struct {
	DataroomID   string `json:"dataroom_id"`
	GoogleFileID string `json:"google_file_id"`
}

// Validate checks that both identifiers are present.
func (in ImportInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.DataroomID, validation.Required),
		validation.Field(&in.GoogleFileID, validation.Required),
	)
}

// Import copies a Drive file into a dataroom.
func (s *FileService) Import(ctx context.Context, userID string, input ImportInput) (*model.File, error) {
	input.DataroomID = strings.TrimSpace(input.DataroomID)
	input.GoogleFileID = strings.TrimSpace(input.GoogleFileID)
	if err := input.Validate(); err != nil {
		return nil, &ValidationError{Message: "dataroom_id and google_file_id are required", Err: err}
	}

	room, err := s.rooms.GetDataroom(ctx, input.DataroomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrDataroomNotFound) {
			return nil, ErrDataroomNotFound
		}
		return nil, err
	}

	if s.locker != nil {
		release, ok, err := s.locker.AcquireImportLock(ctx, room.ID, input.GoogleFileID, s.lockTTL)
		if err != nil {
			// Redis trouble should not block imports; the unique index still holds.
			s.logger.Warn("import lock unavailable", slog.String("error", err.Error()))
		} else {
			if !ok {
				return nil, ErrImportInProgress
			}
			defer release()
		}
	}

	if _, err := s.files.FindImportedFile(ctx, room.ID, input.GoogleFileID); err == nil {
		return nil, ErrFileAlreadyImported
	} else if !errors.Is(err, repository.ErrFileNotFound) {
		return nil, err
	}

	token, err := s.drive.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	file, err := s.copyFromDrive(ctx, userID, room, input.GoogleFileID, token)
	if err != nil {
		s.metrics.ObserveImport(metrics.StatusFailed, time.Since(start), 0)
		if errors.Is(err, ErrFileAlreadyImported) || google.CodeOf(err) != "" {
			return nil, err
		}
		s.logger.Error("import failed",
			slog.String("dataroom_id", room.ID),
			slog.String("google_file_id", input.GoogleFileID),
			slog.String("error", err.Error()),
		)
		return nil, &ImportError{Err: err}
	}

	var size int64
	if file.SizeBytes != nil {
		size = *file.SizeBytes
	}
	s.metrics.ObserveImport(metrics.StatusSuccess, time.Since(start), size)
	return file, nil
}

func (s *FileService) copyFromDrive(ctx context.Context, userID string, room *model.Dataroom, googleFileID, token string) (*model.File, error) {
	meta, err := s.google.GetFileMetadata(ctx, token, googleFileID)
	if err != nil {
		return nil, err
	}

	mimeType := meta.MimeType
	file := &model.File{
		ID:           uuid.NewString(),
		DataroomID:   room.ID,
		UserID:       userID,
		GoogleFileID: &googleFileID,
		Name:         meta.Name,
		MimeType:     &mimeType,
		OriginalURL:  meta.WebViewLink,
		Status:       model.FileStatusImported,
		ImportedAt:   time.Now().UTC(),
	}

	key := BlobKey(userID, room.ID, meta.MimeType)
	n, err := s.transfer(ctx, token, meta, key)
	if err != nil {
		s.recordFailure(ctx, file)
		return nil, err
	}

	file.StoragePath = key
	file.SizeBytes = &n
	if err := s.files.CreateFile(ctx, file); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned blob", slog.String("path", key), slog.String("error", delErr.Error()))
		}
		if errors.Is(err, repository.ErrFileAlreadyImported) {
			return nil, ErrFileAlreadyImported
		}
		return nil, err
	}
	return file, nil
}

// transfer streams the Drive content straight into the blob store.
func (s *FileService) transfer(ctx context.Context, token string, meta *model.DriveFileMetadata, key string) (int64, error) {
	body, err := s.google.Download(ctx, token, meta.ID, meta.MimeType)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	contentType := meta.MimeType
	if exported, ok := model.ExportMimeType(meta.MimeType); ok {
		contentType = exported
	}

	// Exported documents have no size up front.
	size := int64(-1)
	if _, exported := model.ExportMimeType(meta.MimeType); !exported && meta.Size != nil {
		size = *meta.Size
	}

	n, err := s.blobs.Put(ctx, key, body, size, contentType)
	if err != nil {
		return 0, fmt.Errorf("store file: %w", err)
	}
	return n, nil
}

// recordFailure keeps a trace of a failed import. It never blocks the
// caller's error from surfacing.
func (s *FileService) recordFailure(ctx context.Context, file *model.File) {
	failed := *file
	failed.Status = model.FileStatusFailed
	failed.StoragePath = ""
	if err := s.files.CreateFile(ctx, &failed); err != nil {
		s.logger.Warn("failed to record failed import",
			slog.String("google_file_id", *file.GoogleFileID),
			slog.String("error", err.Error()),
		)
	}
}

// BlobKey names the stored content of a new import:
// <user>/<dataroom>/<ulid><ext>.
func BlobKey(userID, dataroomID, mimeType string) string {
	return path.Join(userID, dataroomID, ulid.Make().String()+model.ExtensionForMimeType(mimeType))
}

// Get returns a visible file owned by userID.
func (s *FileService) Get(ctx context.Context, userID, id string) (*model.File, error) {
	f, err := s.files.GetFile(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if !f.IsVisible() {
		return nil, ErrFileNotFound
	}
	return f, nil
}

// Content is an open download.
type Content struct {
	File *model.File
	Body io.ReadCloser
	Size int64
}

// Open returns the stored content of a file. The caller must close Body.
func (s *FileService) Open(ctx context.Context, userID, id string) (*Content, error) {
	f, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if f.StoragePath == "" {
		return nil, ErrFileNotStored
	}

	body, size, err := s.blobs.Open(ctx, f.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFileContentMissing
		}
		return nil, err
	}

	s.metrics.IncDownload(size)
	return &Content{File: f, Body: body, Size: size}, nil
}

// Delete removes the stored content and marks the file deleted.
func (s *FileService) Delete(ctx context.Context, userID, id string) error {
	f, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if f.StoragePath != "" {
		if err := s.blobs.Delete(ctx, f.StoragePath); err != nil {
			s.logger.Warn("failed to delete stored file",
				slog.String("file_id", f.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.files.SetFileStatus(ctx, f.ID, userID, model.FileStatusDeleted); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	s.metrics.IncFileDeleted()
	return nil
}
