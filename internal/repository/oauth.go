package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dataroom/dataroom/internal/model"
	"github.com/jackc/pgx/v5"
)

// ErrOAuthAccountNotFound is returned when a user has no linked provider account.
var ErrOAuthAccountNotFound = errors.New("oauth account not found")

// GetOAuthAccount returns the user's account for provider.
func (r *Repository) GetOAuthAccount(ctx context.Context, userID, provider string) (*model.OAuthAccount, error) {
	query := `
		SELECT id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, scope, created_at, updated_at
		FROM oauth_accounts
		WHERE user_id = $1 AND provider = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var acct model.OAuthAccount
	var access, refresh, scope *string
	err := r.pool.QueryRow(ctx, query, userID, provider).Scan(
		&acct.ID,
		&acct.UserID,
		&acct.Provider,
		&acct.ProviderAccountID,
		&access,
		&refresh,
		&acct.ExpiresAt,
		&scope,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOAuthAccountNotFound
		}
		return nil, fmt.Errorf("failed to get oauth account: %w", err)
	}

	if acct.AccessToken, err = r.openToken(access); err != nil {
		return nil, fmt.Errorf("failed to open access token: %w", err)
	}
	if acct.RefreshToken, err = r.openToken(refresh); err != nil {
		return nil, fmt.Errorf("failed to open refresh token: %w", err)
	}
	if scope != nil {
		acct.Scope = *scope
	}
	return &acct, nil
}

// HasOAuthAccount reports whether the user has linked provider.
func (r *Repository) HasOAuthAccount(ctx context.Context, userID, provider string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM oauth_accounts WHERE user_id = $1 AND provider = $2)`,
		userID, provider,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check oauth account: %w", err)
	}
	return exists, nil
}

// UpsertOAuthAccount inserts the account or updates tokens of the existing
// (provider, provider_account_id) row. An empty RefreshToken keeps the
// stored one. acct is updated with the persisted id, owner and timestamps.
func (r *Repository) UpsertOAuthAccount(ctx context.Context, acct *model.OAuthAccount) error {
	access, err := r.sealToken(acct.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}
	refresh, err := r.sealToken(acct.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to seal refresh token: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO oauth_accounts (id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, scope, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (provider, provider_account_id) DO UPDATE SET
			access_token  = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, oauth_accounts.refresh_token),
			expires_at    = EXCLUDED.expires_at,
			scope         = EXCLUDED.scope,
			updated_at    = EXCLUDED.updated_at
		RETURNING id, user_id, created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		acct.ID,
		acct.UserID,
		acct.Provider,
		acct.ProviderAccountID,
		access,
		refresh,
		acct.ExpiresAt,
		acct.Scope,
		now,
	).Scan(&acct.ID, &acct.UserID, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert oauth account: %w", err)
	}
	return nil
}

// UpdateOAuthTokens stores a refreshed access token. An empty refreshToken
// keeps the stored one.
func (r *Repository) UpdateOAuthTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	access, err := r.sealToken(accessToken)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}
	refresh, err := r.sealToken(refreshToken)
	if err != nil {
		return fmt.Errorf("failed to seal refresh token: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE oauth_accounts
		SET access_token = $2,
			refresh_token = COALESCE($3, refresh_token),
			expires_at = $4,
			updated_at = NOW()
		WHERE id = $1
	`, id, access, refresh, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update oauth tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOAuthAccountNotFound
	}
	return nil
}

// sealToken returns nil for an empty token so it is stored as NULL.
func (r *Repository) sealToken(token string) (*string, error) {
	if token == "" {
		return nil, nil
	}
	if r.sealer == nil {
		return &token, nil
	}
	sealed, err := r.sealer.Seal(token)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

func (r *Repository) openToken(stored *string) (string, error) {
	if stored == nil || *stored == "" {
		return "", nil
	}
	if r.sealer == nil {
		return *stored, nil
	}
	return r.sealer.Open(*stored)
}
