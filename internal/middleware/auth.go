package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/repository"
)

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// SessionCache holds revoked token ids and users resolved from tokens.
type SessionCache interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	GetAuthUser(ctx context.Context, token string) (*model.User, error)
	SetAuthUser(ctx context.Context, token string, user *model.User, tokenExpiresAt time.Time) error
}

// UserLookup loads users by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Tokens   TokenVerifier
	Sessions SessionCache
	Users    UserLookup
}

// Auth returns a middleware that authenticates API requests.
// It verifies the bearer session token, resolves the user and injects the
// auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeAuthError(w, "Missing or invalid authorization header")
				return
			}

			claims, err := cfg.Tokens.Verify(token)
			if err != nil {
				logAuthFailure(cfg.Logger, r, "invalid_token")
				writeAuthError(w, "Invalid or expired token")
				return
			}

			revoked, err := cfg.Sessions.IsTokenRevoked(ctx, claims.ID)
			if err != nil {
				// Redis trouble keeps signed-in users working until the token expires.
				cfg.Logger.Warn("revocation check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(ctx)),
				)
			}
			if revoked {
				logAuthFailure(cfg.Logger, r, "revoked_token")
				writeAuthError(w, "Invalid or expired token")
				return
			}

			expiresAt := claims.ExpiresAt.Time
			user, err := cfg.Sessions.GetAuthUser(ctx, token)
			cacheHit := err == nil && user != nil && user.ID == claims.UserID
			if !cacheHit {
				user, err = cfg.Users.GetUserByID(ctx, claims.UserID)
				if err != nil {
					if errors.Is(err, repository.ErrUserNotFound) {
						logAuthFailure(cfg.Logger, r, "unknown_user")
						writeAuthError(w, "User not found")
						return
					}
					cfg.Logger.Error("database error during auth",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(ctx)),
					)
					writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
					return
				}
				_ = cfg.Sessions.SetAuthUser(ctx, token, user, expiresAt)
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", user.ID),
				slog.Bool("cache_hit", cacheHit),
				slog.String("request_id", GetRequestID(ctx)),
			)

			ctx = auth.ContextWithAuth(ctx, &model.AuthContext{
				User:      user,
				TokenID:   claims.ID,
				ExpiresAt: expiresAt,
				Token:     token,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
func writeAuthError(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}
