package model

import "time"

// ProviderGoogle is the only OAuth provider.
const ProviderGoogle = "google"

// OAuthAccount links a user to a Google identity and holds its tokens.
// Tokens are plaintext here; the repository seals them at rest.
type OAuthAccount struct {
	ID                string
	UserID            string
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	Scope             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AccessTokenValid reports whether the access token is still usable for at
// least margin past now.
func (a *OAuthAccount) AccessTokenValid(now time.Time, margin time.Duration) bool {
	if a.AccessToken == "" || a.ExpiresAt == nil {
		return false
	}
	return a.ExpiresAt.After(now.Add(margin))
}
