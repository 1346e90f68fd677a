package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dataroom/dataroom/internal/cache"
	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/repository"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// memStore is an in-memory stand-in for the Postgres repository.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	rooms    map[string]*model.Dataroom
	files    map[string]*model.File
	accounts map[string]*model.OAuthAccount
	updates  int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*model.User),
		rooms:    make(map[string]*model.Dataroom),
		files:    make(map[string]*model.File),
		accounts: make(map[string]*model.OAuthAccount),
	}
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) GetOrCreateUser(ctx context.Context, user *model.User, room *model.Dataroom) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return u, false, nil
		}
	}
	m.users[user.ID] = user
	room.UserID = user.ID
	m.rooms[room.ID] = room
	return user, true, nil
}

func (m *memStore) GetOAuthAccount(ctx context.Context, userID, provider string) (*model.OAuthAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.UserID == userID && a.Provider == provider {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrOAuthAccountNotFound
}

func (m *memStore) HasOAuthAccount(ctx context.Context, userID, provider string) (bool, error) {
	_, err := m.GetOAuthAccount(ctx, userID, provider)
	return err == nil, nil
}

func (m *memStore) UpsertOAuthAccount(ctx context.Context, acct *model.OAuthAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := acct.Provider + ":" + acct.ProviderAccountID
	if existing, ok := m.accounts[key]; ok {
		acct.ID = existing.ID
		acct.UserID = existing.UserID
		if acct.RefreshToken == "" {
			acct.RefreshToken = existing.RefreshToken
		}
	}
	cp := *acct
	m.accounts[key] = &cp
	return nil
}

func (m *memStore) UpdateOAuthTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			a.AccessToken = accessToken
			if refreshToken != "" {
				a.RefreshToken = refreshToken
			}
			a.ExpiresAt = &expiresAt
			m.updates++
			return nil
		}
	}
	return repository.ErrOAuthAccountNotFound
}

func (m *memStore) CreateDataroom(ctx context.Context, room *model.Dataroom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *room
	m.rooms[room.ID] = &cp
	return nil
}

func (m *memStore) GetDataroom(ctx context.Context, id, userID string) (*model.Dataroom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok || r.UserID != userID {
		return nil, repository.ErrDataroomNotFound
	}
	cp := *r
	cp.FileCount = m.countImported(id)
	return &cp, nil
}

func (m *memStore) countImported(roomID string) int {
	n := 0
	for _, f := range m.files {
		if f.DataroomID == roomID && f.Status == model.FileStatusImported {
			n++
		}
	}
	return n
}

func (m *memStore) ListDatarooms(ctx context.Context, userID string) ([]*model.Dataroom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]*model.Dataroom, 0)
	for _, r := range m.rooms {
		if r.UserID == userID {
			cp := *r
			cp.FileCount = m.countImported(r.ID)
			rooms = append(rooms, &cp)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	return rooms, nil
}

func (m *memStore) UpdateDataroom(ctx context.Context, id, userID string, upd model.DataroomUpdate) (*model.Dataroom, error) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	if !ok || r.UserID != userID {
		m.mu.Unlock()
		return nil, repository.ErrDataroomNotFound
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.DescriptionSet {
		r.Description = upd.Description
	}
	m.mu.Unlock()
	return m.GetDataroom(ctx, id, userID)
}

func (m *memStore) DeleteDataroom(ctx context.Context, id, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok || r.UserID != userID {
		return nil, repository.ErrDataroomNotFound
	}
	var paths []string
	for fid, f := range m.files {
		if f.DataroomID == id {
			if f.StoragePath != "" {
				paths = append(paths, f.StoragePath)
			}
			delete(m.files, fid)
		}
	}
	delete(m.rooms, id)
	return paths, nil
}

func (m *memStore) CreateFile(ctx context.Context, f *model.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Status == model.FileStatusImported {
		for _, existing := range m.files {
			if existing.DataroomID == f.DataroomID && existing.Status == model.FileStatusImported &&
				existing.GoogleFileID != nil && f.GoogleFileID != nil && *existing.GoogleFileID == *f.GoogleFileID {
				return repository.ErrFileAlreadyImported
			}
		}
	}
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (m *memStore) GetFile(ctx context.Context, id, userID string) (*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID {
		return nil, repository.ErrFileNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) FindImportedFile(ctx context.Context, dataroomID, googleFileID string) (*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.DataroomID == dataroomID && f.Status == model.FileStatusImported &&
			f.GoogleFileID != nil && *f.GoogleFileID == googleFileID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, repository.ErrFileNotFound
}

func (m *memStore) ListImportedFiles(ctx context.Context, dataroomID string) ([]*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	files := make([]*model.File, 0)
	for _, f := range m.files {
		if f.DataroomID == dataroomID && f.Status == model.FileStatusImported {
			cp := *f
			files = append(files, &cp)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ImportedAt.After(files[j].ImportedAt) })
	return files, nil
}

func (m *memStore) SetFileStatus(ctx context.Context, id, userID string, status model.FileStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID {
		return repository.ErrFileNotFound
	}
	f.Status = status
	return nil
}

func (m *memStore) filesWithStatus(status model.FileStatus) []*model.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.File
	for _, f := range m.files {
		if f.Status == status {
			out = append(out, f)
		}
	}
	return out
}

// fakeGoogle serves canned Google responses.
type fakeGoogle struct {
	clientID string

	token       *google.Token
	exchangeErr error
	info        *google.UserInfo

	refreshed  *google.Token
	refreshErr error
	refreshes  int

	page        *model.DriveFilePage
	listErr     error
	lastList    google.ListOptions
	meta        *model.DriveFileMetadata
	metaErr     error
	content     string
	downloadErr error
}

func (f *fakeGoogle) ClientID() string { return f.clientID }

func (f *fakeGoogle) AuthCodeURL(state, redirectURI string) string {
	return "https://accounts.example/auth?state=" + state + "&redirect_uri=" + redirectURI
}

func (f *fakeGoogle) Exchange(ctx context.Context, code, redirectURI string) (*google.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeGoogle) UserInfo(ctx context.Context, accessToken string) (*google.UserInfo, error) {
	return f.info, nil
}

func (f *fakeGoogle) Refresh(ctx context.Context, refreshToken string) (*google.Token, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeGoogle) ListFiles(ctx context.Context, accessToken string, opts google.ListOptions) (*model.DriveFilePage, error) {
	f.lastList = opts
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.page, nil
}

func (f *fakeGoogle) GetFileMetadata(ctx context.Context, accessToken, fileID string) (*model.DriveFileMetadata, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeGoogle) Download(ctx context.Context, accessToken, fileID, mimeType string) (io.ReadCloser, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

// fakeStates is an in-memory OAuth state store.
type fakeStates struct {
	mu     sync.Mutex
	states map[string]string
}

func newFakeStates() *fakeStates {
	return &fakeStates{states: make(map[string]string)}
}

func (f *fakeStates) SaveOAuthState(ctx context.Context, state, redirectURI string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = redirectURI
	return nil
}

func (f *fakeStates) ConsumeOAuthState(ctx context.Context, state string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uri, ok := f.states[state]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	delete(f.states, state)
	return uri, nil
}

// fakeSessions records revocations.
type fakeSessions struct {
	revoked map[string]time.Time
	evicted []string
}

func (f *fakeSessions) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if f.revoked == nil {
		f.revoked = make(map[string]time.Time)
	}
	f.revoked[tokenID] = expiresAt
	return nil
}

func (f *fakeSessions) DeleteAuthUser(ctx context.Context, token string) error {
	f.evicted = append(f.evicted, token)
	return nil
}

// fakeLocker grants or refuses import locks.
type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (f *fakeLocker) AcquireImportLock(ctx context.Context, dataroomID, googleFileID string, ttl time.Duration) (func(), bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held {
		return func() {}, false, nil
	}
	return func() { f.released++ }, true, nil
}

var errBoom = errors.New("boom")

func strPtr(s string) *string { return &s }
