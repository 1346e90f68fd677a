package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dataroom/dataroom/internal/model"
	"github.com/jackc/pgx/v5"
)

// ErrDataroomNotFound is returned when a dataroom does not exist or belongs
// to another user.
var ErrDataroomNotFound = errors.New("dataroom not found")

const dataroomSelect = `
	SELECT d.id, d.user_id, d.name, d.description, d.created_at, d.updated_at,
		(SELECT COUNT(*) FROM files f WHERE f.dataroom_id = d.id AND f.status = 'imported') AS file_count
	FROM datarooms d
`

// CreateDataroom inserts a new dataroom.
func (r *Repository) CreateDataroom(ctx context.Context, room *model.Dataroom) error {
	return insertDataroom(ctx, r.pool, room)
}

func insertDataroom(ctx context.Context, q querier, room *model.Dataroom) error {
	_, err := q.Exec(ctx, `
		INSERT INTO datarooms (id, user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		room.ID,
		room.UserID,
		room.Name,
		room.Description,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataroom: %w", err)
	}
	return nil
}

// GetDataroom retrieves a dataroom owned by userID.
func (r *Repository) GetDataroom(ctx context.Context, id, userID string) (*model.Dataroom, error) {
	query := dataroomSelect + ` WHERE d.id = $1 AND d.user_id = $2`

	room, err := scanDataroom(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDataroomNotFound
		}
		return nil, fmt.Errorf("failed to get dataroom: %w", err)
	}
	return room, nil
}

// ListDatarooms returns the user's datarooms, newest first.
func (r *Repository) ListDatarooms(ctx context.Context, userID string) ([]*model.Dataroom, error) {
	query := dataroomSelect + ` WHERE d.user_id = $1 ORDER BY d.created_at DESC, d.id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datarooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]*model.Dataroom, 0)
	for rows.Next() {
		room, err := scanDataroom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataroom: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datarooms: %w", err)
	}

	return rooms, nil
}

// UpdateDataroom applies a partial update and returns the stored result.
func (r *Repository) UpdateDataroom(ctx context.Context, id, userID string, upd model.DataroomUpdate) (*model.Dataroom, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE datarooms
		SET name = COALESCE($3, name),
			description = CASE WHEN $4 THEN $5 ELSE description END,
			updated_at = $6
		WHERE id = $1 AND user_id = $2
	`, id, userID, upd.Name, upd.DescriptionSet, upd.Description, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update dataroom: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDataroomNotFound
	}

	return r.GetDataroom(ctx, id, userID)
}

// DeleteDataroom removes the dataroom and its file rows. It returns the
// storage paths of every file that had content so the caller can remove
// the blobs.
func (r *Repository) DeleteDataroom(ctx context.Context, id, userID string) ([]string, error) {
	var paths []string

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var owned bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM datarooms WHERE id = $1 AND user_id = $2)`,
			id, userID,
		).Scan(&owned); err != nil {
			return fmt.Errorf("failed to check dataroom: %w", err)
		}
		if !owned {
			return ErrDataroomNotFound
		}

		rows, err := tx.Query(ctx, `
			SELECT storage_path FROM files
			WHERE dataroom_id = $1 AND storage_path IS NOT NULL AND storage_path <> ''
		`, id)
		if err != nil {
			return fmt.Errorf("failed to list dataroom files: %w", err)
		}
		paths, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("failed to scan storage path: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM datarooms WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
			return fmt.Errorf("failed to delete dataroom: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func scanDataroom(row pgx.Row) (*model.Dataroom, error) {
	var room model.Dataroom
	err := row.Scan(
		&room.ID,
		&room.UserID,
		&room.Name,
		&room.Description,
		&room.CreatedAt,
		&room.UpdatedAt,
		&room.FileCount,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
