package client

import (
	"context"
	"log/slog"
	"sync"
)

// SessionState is a snapshot of the signed-in state.
type SessionState struct {
	User            *User
	GoogleConnected bool
	Loading         bool
}

// IsAuthenticated reports whether a user is signed in.
func (s SessionState) IsAuthenticated() bool {
	return s.User != nil
}

// Session mirrors the signed-in user from /auth/me. It is safe for
// concurrent use.
type Session struct {
	client *Client

	mu       sync.Mutex
	state    SessionState
	onChange func(SessionState)
}

// NewSession creates a Session on top of c.
func NewSession(c *Client) *Session {
	return &Session{client: c}
}

// OnChange registers fn to run after every state transition. fn runs
// without the session lock held.
func (s *Session) OnChange(fn func(SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionState {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Session) update(fn func(*SessionState)) {
	s.mu.Lock()
	fn(&s.state)
	st := s.snapshotLocked()
	listener := s.onChange
	s.mu.Unlock()

	if listener != nil {
		listener(st)
	}
}

// Init loads the session once at startup.
func (s *Session) Init(ctx context.Context) {
	s.update(func(st *SessionState) { st.Loading = true })
	s.Refresh(ctx)
	s.update(func(st *SessionState) { st.Loading = false })
}

// Refresh reloads the user. Without a token the state is cleared; when
// /auth/me fails the state is cleared and the token removed.
func (s *Session) Refresh(ctx context.Context) {
	if !s.client.HasToken() {
		s.clear()
		return
	}

	me, err := s.client.Me(ctx)
	if err != nil {
		s.client.logger.Warn("failed to fetch user", slog.String("error", err.Error()))
		if clearErr := s.client.tokens.ClearToken(); clearErr != nil {
			s.client.logger.Warn("failed to clear token", slog.String("error", clearErr.Error()))
		}
		s.clear()
		return
	}

	s.update(func(st *SessionState) {
		st.User = me.User
		st.GoogleConnected = me.GoogleConnected
	})
}

// Login stores token and loads the user it belongs to.
func (s *Session) Login(ctx context.Context, token string) error {
	if err := s.client.tokens.SetToken(token); err != nil {
		return err
	}
	s.Refresh(ctx)
	return nil
}

// Logout revokes the session server-side, ignoring failures, and clears
// local state.
func (s *Session) Logout(ctx context.Context) {
	if err := s.client.Logout(ctx); err != nil {
		s.client.logger.Warn("logout error", slog.String("error", err.Error()))
	}
	s.clear()
}

func (s *Session) clear() {
	s.update(func(st *SessionState) {
		st.User = nil
		st.GoogleConnected = false
	})
}
