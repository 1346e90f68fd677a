package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/cache"
	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/metrics"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/google/uuid"
)

// OAuthStateTTL bounds how long a sign-in may take.
const OAuthStateTTL = 10 * time.Minute

// AuthService runs Google sign-in and session lifecycle.
type AuthService struct {
	users    UserStore
	oauth    OAuthStore
	states   StateStore
	sessions SessionStore
	google   GoogleOAuth
	verifier IDTokenVerifier
	tokens   *auth.TokenManager
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// AuthServiceDeps groups AuthService collaborators. Verifier may be nil, in
// which case id_tokens are not checked.
type AuthServiceDeps struct {
	Users    UserStore
	OAuth    OAuthStore
	States   StateStore
	Sessions SessionStore
	Google   GoogleOAuth
	Verifier IDTokenVerifier
	Tokens   *auth.TokenManager
	Logger   *slog.Logger
	Metrics  metrics.Recorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AuthService{
		users:    deps.Users,
		oauth:    deps.OAuth,
		states:   deps.States,
		sessions: deps.Sessions,
		google:   deps.Google,
		verifier: deps.Verifier,
		tokens:   deps.Tokens,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// StartLogin returns the Google consent URL for a new sign-in attempt.
func (s *AuthService) StartLogin(ctx context.Context, redirectURI string) (string, error) {
	if s.google.ClientID() == "" {
		return "", ErrGoogleNotConfigured
	}

	state, err := auth.GenerateState()
	if err != nil {
		return "", err
	}
	if err := s.states.SaveOAuthState(ctx, state, redirectURI, OAuthStateTTL); err != nil {
		return "", err
	}
	return s.google.AuthCodeURL(state, redirectURI), nil
}

// LoginResult is a completed sign-in.
type LoginResult struct {
	Token   string
	User    *model.User
	Created bool
}

// CompleteLogin handles the OAuth callback: it exchanges the code, finds or
// creates the user with a default dataroom, stores the Google tokens and
// issues a session token.
func (s *AuthService) CompleteLogin(ctx context.Context, state, code string) (*LoginResult, error) {
	result, err := s.completeLogin(ctx, state, code)
	if err != nil {
		s.metrics.IncLogin(metrics.StatusFailed)
		return nil, err
	}
	s.metrics.IncLogin(metrics.StatusSuccess)
	return result, nil
}

func (s *AuthService) completeLogin(ctx context.Context, state, code string) (*LoginResult, error) {
	redirectURI, err := s.states.ConsumeOAuthState(ctx, state)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	tok, err := s.google.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	info, err := s.google.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	if tok.IDToken != "" && s.verifier != nil {
		if _, err := s.verifier.Verify(tok.IDToken, info.Sub); err != nil {
			return nil, err
		}
	}

	candidate := &model.User{ID: uuid.NewString(), Email: info.Email}
	if name := strings.TrimSpace(info.Name); name != "" {
		candidate.Name = &name
	}
	description := model.DefaultDataroomDescription
	room := &model.Dataroom{
		ID:          uuid.NewString(),
		Name:        model.DefaultDataroomName,
		Description: &description,
	}

	user, created, err := s.users.GetOrCreateUser(ctx, candidate, room)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	expiresAt := tok.Expiry.UTC()
	acct := &model.OAuthAccount{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Provider:          model.ProviderGoogle,
		ProviderAccountID: info.Sub,
		AccessToken:       tok.AccessToken,
		RefreshToken:      tok.RefreshToken,
		ExpiresAt:         &expiresAt,
		Scope:             strings.Join(google.Scopes, " "),
	}
	if err := s.oauth.UpsertOAuthAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to store oauth account: %w", err)
	}

	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed in",
		slog.String("user_id", user.ID),
		slog.Bool("created", created),
	)
	return &LoginResult{Token: token, User: user, Created: created}, nil
}

// GoogleConnected reports whether the user has a linked Google account.
func (s *AuthService) GoogleConnected(ctx context.Context, userID string) (bool, error) {
	return s.oauth.HasOAuthAccount(ctx, userID, model.ProviderGoogle)
}

// Logout revokes the caller's session token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, ac *model.AuthContext) error {
	if ac.TokenID != "" {
		if err := s.sessions.RevokeToken(ctx, ac.TokenID, ac.ExpiresAt); err != nil {
			return err
		}
	}
	if ac.Token != "" {
		if err := s.sessions.DeleteAuthUser(ctx, ac.Token); err != nil {
			s.logger.Warn("failed to evict cached session", slog.String("error", err.Error()))
		}
	}
	return nil
}
