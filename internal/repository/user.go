package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dataroom/dataroom/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

const userColumns = `id, email, name, created_at, updated_at`

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// CreateUserWithDataroom inserts a new user and its first dataroom in one
// transaction.
func (r *Repository) CreateUserWithDataroom(ctx context.Context, user *model.User, room *model.Dataroom) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, user.ID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err, "users_email_key") {
				return ErrEmailExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		room.UserID = user.ID
		if err := insertDataroom(ctx, tx, room); err != nil {
			return err
		}
		return nil
	})
}

// GetOrCreateUser gets a user by email or creates one together with room.
// The returned bool is true when the user was created by this call.
func (r *Repository) GetOrCreateUser(ctx context.Context, user *model.User, room *model.Dataroom) (*model.User, bool, error) {
	existing, err := r.GetUserByEmail(ctx, user.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	// Create new user
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
		room.UpdatedAt = now
	}
	if err := r.CreateUserWithDataroom(ctx, user, room); err != nil {
		// Handle race condition - another request may have created it
		if errors.Is(err, ErrEmailExists) {
			existing, err := r.GetUserByEmail(ctx, user.Email)
			return existing, false, err
		}
		return nil, false, err
	}

	return user, true, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
