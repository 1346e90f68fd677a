package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/handler/dto"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/service"
)

// callbackPath is where Google sends the user back to this service.
const callbackPath = "/auth/google/callback"

// AuthService is the sign-in behaviour AuthHandler depends on.
type AuthService interface {
	StartLogin(ctx context.Context, redirectURI string) (string, error)
	CompleteLogin(ctx context.Context, state, code string) (*service.LoginResult, error)
	GoogleConnected(ctx context.Context, userID string) (bool, error)
	Logout(ctx context.Context, ac *model.AuthContext) error
}

// AuthConfig holds the OAuth settings AuthHandler exposes or derives from.
type AuthConfig struct {
	FrontendOrigin    string
	RedirectURI       string
	ClientID          string
	HasClientSecret   bool
	DebugEnabled      bool
	TrustProxyHeaders bool
}

// AuthHandler handles Google sign-in and session endpoints.
type AuthHandler struct {
	svc    AuthService
	cfg    AuthConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService, cfg AuthConfig, logger *slog.Logger) *AuthHandler {
	cfg.FrontendOrigin = strings.TrimRight(cfg.FrontendOrigin, "/")
	return &AuthHandler{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}
}

// Start handles GET /auth/google/start.
func (h *AuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	consentURL, err := h.svc.StartLogin(r.Context(), h.redirectURI(r))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, consentURL, http.StatusFound)
}

// Callback handles GET /auth/google/callback. Every outcome redirects to the
// frontend with either a token or an error code.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if e := query.Get("error"); e != "" {
		h.redirectToFrontend(w, r, "error", e)
		return
	}
	code := query.Get("code")
	if code == "" {
		h.redirectToFrontend(w, r, "error", "no_code")
		return
	}
	state := query.Get("state")
	if state == "" {
		h.redirectToFrontend(w, r, "error", "invalid_state")
		return
	}

	result, err := h.svc.CompleteLogin(r.Context(), state, code)
	if err != nil {
		reason := callbackErrorCode(err)
		if reason == "server_error" {
			h.logger.Error("oauth_callback_failed", "error", err)
		} else {
			h.logger.Warn("oauth_callback_rejected", "reason", reason, "error", err)
		}
		h.redirectToFrontend(w, r, "error", reason)
		return
	}

	h.logger.Info("user_signed_in",
		"user_id", result.User.ID,
		"created", result.Created,
	)
	h.redirectToFrontend(w, r, "token", result.Token)
}

func callbackErrorCode(err error) string {
	if errors.Is(err, service.ErrInvalidState) {
		return "invalid_state"
	}
	if code := google.CodeOf(err); code != "" {
		return code
	}
	return "server_error"
}

// Debug handles GET /auth/debug. Only routed in development.
func (h *AuthHandler) Debug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.AuthDebugResponse{
		ClientID:    h.cfg.ClientID,
		RedirectURI: h.cfg.RedirectURI,
		HasSecret:   h.cfg.HasClientSecret,
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "User not found")
		return
	}

	connected, err := h.svc.GoogleConnected(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MeResponse{
		User:            user,
		GoogleConnected: connected,
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac := auth.AuthFromContext(r.Context())
	if ac == nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Missing or invalid authorization header")
		return
	}

	if err := h.svc.Logout(r.Context(), ac); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_logged_out", "user_id", ac.User.ID)
	writeMessage(w, "Logged out successfully")
}

// redirectURI returns the configured OAuth redirect URI or derives one from
// the request host.
func (h *AuthHandler) redirectURI(r *http.Request) string {
	if h.cfg.RedirectURI != "" {
		return h.cfg.RedirectURI
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if h.cfg.TrustProxyHeaders {
		if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
			scheme = p
		}
		if fh := r.Header.Get("X-Forwarded-Host"); fh != "" {
			host = fh
		}
	}
	return scheme + "://" + host + callbackPath
}

func (h *AuthHandler) redirectToFrontend(w http.ResponseWriter, r *http.Request, key, value string) {
	target := h.cfg.FrontendOrigin + "/auth/callback?" + url.Values{key: {value}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}
