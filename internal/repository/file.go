package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dataroom/dataroom/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for file repository operations.
var (
	ErrFileNotFound        = errors.New("file not found")
	ErrFileAlreadyImported = errors.New("file already imported to dataroom")
)

const fileColumns = `id, dataroom_id, user_id, google_file_id, name, mime_type, size_bytes, storage_path, original_url, status, imported_at`

// CreateFile inserts a file record. A second imported row for the same
// (dataroom, google_file_id) returns ErrFileAlreadyImported.
func (r *Repository) CreateFile(ctx context.Context, f *model.File) error {
	var storagePath *string
	if f.StoragePath != "" {
		storagePath = &f.StoragePath
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		f.ID,
		f.DataroomID,
		f.UserID,
		f.GoogleFileID,
		f.Name,
		f.MimeType,
		f.SizeBytes,
		storagePath,
		f.OriginalURL,
		f.Status,
		f.ImportedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_files_dataroom_google_imported") {
			return ErrFileAlreadyImported
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetFile retrieves a file owned by userID in any status.
func (r *Repository) GetFile(ctx context.Context, id, userID string) (*model.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2`

	f, err := scanFile(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// FindImportedFile returns the live copy of googleFileID in the dataroom.
func (r *Repository) FindImportedFile(ctx context.Context, dataroomID, googleFileID string) (*model.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE dataroom_id = $1 AND google_file_id = $2 AND status = 'imported'`

	f, err := scanFile(r.pool.QueryRow(ctx, query, dataroomID, googleFileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to find imported file: %w", err)
	}
	return f, nil
}

// ListImportedFiles returns the dataroom's imported files, newest first.
func (r *Repository) ListImportedFiles(ctx context.Context, dataroomID string) ([]*model.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE dataroom_id = $1 AND status = 'imported'
		ORDER BY imported_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, dataroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := make([]*model.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}
	return files, nil
}

// SetFileStatus changes the status of a file owned by userID.
func (r *Repository) SetFileStatus(ctx context.Context, id, userID string, status model.FileStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE files SET status = $3 WHERE id = $1 AND user_id = $2`,
		id, userID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func scanFile(row pgx.Row) (*model.File, error) {
	var f model.File
	var storagePath *string
	err := row.Scan(
		&f.ID,
		&f.DataroomID,
		&f.UserID,
		&f.GoogleFileID,
		&f.Name,
		&f.MimeType,
		&f.SizeBytes,
		&storagePath,
		&f.OriginalURL,
		&f.Status,
		&f.ImportedAt,
	)
	if err != nil {
		return nil, err
	}
	if storagePath != nil {
		f.StoragePath = *storagePath
	}
	return &f, nil
}
