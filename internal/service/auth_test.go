package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/metrics"
	"github.com/dataroom/dataroom/internal/model"
)

type stubVerifier struct {
	err  error
	subs []string
}

func (v *stubVerifier) Verify(idToken, wantSub string) (*google.IDTokenClaims, error) {
	v.subs = append(v.subs, wantSub)
	if v.err != nil {
		return nil, v.err
	}
	return &google.IDTokenClaims{}, nil
}

type authEnv struct {
	svc      *AuthService
	store    *memStore
	google   *fakeGoogle
	states   *fakeStates
	sessions *fakeSessions
	tokens   *auth.TokenManager
	verifier *stubVerifier
	rec      *metrics.InMemoryRecorder
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	env := &authEnv{
		store: newMemStore(),
		google: &fakeGoogle{
			clientID: "client-id",
			token: &google.Token{
				AccessToken:  "access",
				RefreshToken: "refresh",
				Expiry:       time.Now().Add(time.Hour),
				IDToken:      "id-token",
			},
			info: &google.UserInfo{Sub: "google-sub", Email: "alice@example.com", Name: "Alice"},
		},
		states:   newFakeStates(),
		sessions: &fakeSessions{},
		tokens:   auth.NewTokenManager("0123456789abcdef0123", time.Hour),
		verifier: &stubVerifier{},
		rec:      metrics.NewInMemory(),
	}
	env.svc = NewAuthService(AuthServiceDeps{
		Users:    env.store,
		OAuth:    env.store,
		States:   env.states,
		Sessions: env.sessions,
		Google:   env.google,
		Verifier: env.verifier,
		Tokens:   env.tokens,
		Logger:   discardLogger,
		Metrics:  env.rec,
	})
	return env
}

func (e *authEnv) start(t *testing.T) string {
	t.Helper()
	raw, err := e.svc.StartLogin(context.Background(), "http://localhost:8080/auth/google/callback")
	if err != nil {
		t.Fatalf("StartLogin() error = %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	return u.Query().Get("state")
}

func TestAuthService_StartLoginRequiresClientID(t *testing.T) {
	t.Parallel()
	env := newAuthEnv(t)
	env.google.clientID = ""

	if _, err := env.svc.StartLogin(context.Background(), "http://cb"); !errors.Is(err, ErrGoogleNotConfigured) {
		t.Errorf("expected ErrGoogleNotConfigured, got %v", err)
	}
}

func TestAuthService_CompleteLoginCreatesUser(t *testing.T) {
	t.Parallel()
	env := newAuthEnv(t)
	ctx := context.Background()

	state := env.start(t)
	if len(state) != auth.StateLen {
		t.Fatalf("state length = %d", len(state))
	}

	res, err := env.svc.CompleteLogin(ctx, state, "code")
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if !res.Created || res.User.Email != "alice@example.com" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.User.Name == nil || *res.User.Name != "Alice" {
		t.Errorf("Name = %v", res.User.Name)
	}

	claims, err := env.tokens.Verify(res.Token)
	if err != nil || claims.UserID != res.User.ID {
		t.Fatalf("issued token invalid: %v", err)
	}

	rooms, _ := env.store.ListDatarooms(ctx, res.User.ID)
	if len(rooms) != 1 || rooms[0].Name != model.DefaultDataroomName {
		t.Fatalf("expected default dataroom, got %d", len(rooms))
	}
	if rooms[0].Description == nil || *rooms[0].Description != model.DefaultDataroomDescription {
		t.Errorf("default description = %v", rooms[0].Description)
	}

	acct, err := env.store.GetOAuthAccount(ctx, res.User.ID, model.ProviderGoogle)
	if err != nil {
		t.Fatalf("GetOAuthAccount() error = %v", err)
	}
	if acct.ProviderAccountID != "google-sub" || acct.RefreshToken != "refresh" {
		t.Errorf("unexpected account %+v", acct)
	}
	if len(env.verifier.subs) != 1 || env.verifier.subs[0] != "google-sub" {
		t.Errorf("id_token not verified against sub: %v", env.verifier.subs)
	}
	if env.rec.Snapshot().LoginsSucceeded != 1 {
		t.Errorf("LoginsSucceeded = %d", env.rec.Snapshot().LoginsSucceeded)
	}

	// State values are single use.
	if _, err := env.svc.CompleteLogin(ctx, state, "code"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on replay, got %v", err)
	}
}

func TestAuthService_SecondLoginKeepsRefreshToken(t *testing.T) {
	t.Parallel()
	env := newAuthEnv(t)
	ctx := context.Background()

	first, err := env.svc.CompleteLogin(ctx, env.start(t), "code")
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}

	env.google.token = &google.Token{AccessToken: "access-2", Expiry: time.Now().Add(time.Hour)}
	second, err := env.svc.CompleteLogin(ctx, env.start(t), "code")
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if second.Created || second.User.ID != first.User.ID {
		t.Errorf("expected existing user, got created=%v", second.Created)
	}

	acct, _ := env.store.GetOAuthAccount(ctx, first.User.ID, model.ProviderGoogle)
	if acct.AccessToken != "access-2" || acct.RefreshToken != "refresh" {
		t.Errorf("tokens = %q/%q", acct.AccessToken, acct.RefreshToken)
	}
}

func TestAuthService_CompleteLoginFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(env *authEnv)
		wantCode string
	}{
		{
			name: "exchange rejected",
			setup: func(env *authEnv) {
				env.google.exchangeErr = &google.Error{Code: google.CodeTokenExchangeFailed, Message: "bad code"}
			},
			wantCode: google.CodeTokenExchangeFailed,
		},
		{
			name: "id token mismatch",
			setup: func(env *authEnv) {
				env.verifier.err = &google.Error{Code: google.CodeIDTokenInvalid, Message: "subject does not match"}
			},
			wantCode: google.CodeIDTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newAuthEnv(t)
			tt.setup(env)

			_, err := env.svc.CompleteLogin(context.Background(), env.start(t), "code")
			if google.CodeOf(err) != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
			if env.rec.Snapshot().LoginsFailed != 1 {
				t.Errorf("LoginsFailed = %d", env.rec.Snapshot().LoginsFailed)
			}
			if len(env.store.users) != 0 {
				t.Error("no user should be created on failure")
			}
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()
	env := newAuthEnv(t)

	exp := time.Now().Add(time.Hour)
	err := env.svc.Logout(context.Background(), &model.AuthContext{TokenID: "jti-1", ExpiresAt: exp, Token: "tok"})
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if got, ok := env.sessions.revoked["jti-1"]; !ok || !got.Equal(exp) {
		t.Errorf("token not revoked until expiry: %v", env.sessions.revoked)
	}
	if len(env.sessions.evicted) != 1 {
		t.Errorf("expected cached session evicted")
	}
}

func TestAuthService_GoogleConnected(t *testing.T) {
	t.Parallel()
	env := newAuthEnv(t)
	ctx := context.Background()

	res, err := env.svc.CompleteLogin(ctx, env.start(t), "code")
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}

	ok, err := env.svc.GoogleConnected(ctx, res.User.ID)
	if err != nil || !ok {
		t.Errorf("GoogleConnected() = %v, %v", ok, err)
	}
	ok, _ = env.svc.GoogleConnected(ctx, "someone-else")
	if ok {
		t.Error("expected not connected")
	}
}
