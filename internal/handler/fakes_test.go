package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/service"
)

func strPtr(s string) *string { return &s }

var testUser = &model.User{
	ID:        "user-1",
	Email:     "alice@example.com",
	Name:      strPtr("Alice"),
	CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
}

// withTestUser authenticates every request as testUser.
func withTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.ContextWithAuth(r.Context(), &model.AuthContext{
			User:      testUser,
			TokenID:   "jti-1",
			ExpiresAt: time.Now().Add(time.Hour),
			Token:     "session-token",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter(register func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(withTestUser)
	register(r)
	return r
}

type fakeAuthService struct {
	startURL  string
	startErr  error
	redirect  string
	result    *service.LoginResult
	loginErr  error
	connected bool
	logoutErr error
	loggedOut *model.AuthContext
	gotState  string
	gotCode   string
}

func (f *fakeAuthService) StartLogin(ctx context.Context, redirectURI string) (string, error) {
	f.redirect = redirectURI
	return f.startURL, f.startErr
}

func (f *fakeAuthService) CompleteLogin(ctx context.Context, state, code string) (*service.LoginResult, error) {
	f.gotState, f.gotCode = state, code
	return f.result, f.loginErr
}

func (f *fakeAuthService) GoogleConnected(ctx context.Context, userID string) (bool, error) {
	return f.connected, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, ac *model.AuthContext) error {
	f.loggedOut = ac
	return f.logoutErr
}

type fakeDriveService struct {
	page  *model.DriveFilePage
	err   error
	input service.ListFilesInput
}

func (f *fakeDriveService) ListFiles(ctx context.Context, userID string, input service.ListFilesInput) (*model.DriveFilePage, error) {
	f.input = input
	return f.page, f.err
}

type fakeDataroomService struct {
	rooms  map[string]*model.Dataroom
	files  []*model.File
	create service.CreateDataroomInput
	update service.UpdateDataroomInput
	err    error
}

func newFakeDataroomService(rooms ...*model.Dataroom) *fakeDataroomService {
	f := &fakeDataroomService{rooms: make(map[string]*model.Dataroom)}
	for _, r := range rooms {
		f.rooms[r.ID] = r
	}
	return f
}

func (f *fakeDataroomService) Create(ctx context.Context, userID string, input service.CreateDataroomInput) (*model.Dataroom, error) {
	f.create = input
	if f.err != nil {
		return nil, f.err
	}
	return &model.Dataroom{ID: "room-new", UserID: userID, Name: input.Name, Description: input.Description}, nil
}

func (f *fakeDataroomService) List(ctx context.Context, userID string) ([]*model.Dataroom, error) {
	var out []*model.Dataroom
	for _, r := range f.rooms {
		out = append(out, r)
	}
	return out, f.err
}

func (f *fakeDataroomService) lookup(id string) (*model.Dataroom, error) {
	if f.err != nil {
		return nil, f.err
	}
	room, ok := f.rooms[id]
	if !ok {
		return nil, service.ErrDataroomNotFound
	}
	return room, nil
}

func (f *fakeDataroomService) Get(ctx context.Context, userID, id string) (*model.Dataroom, []*model.File, error) {
	room, err := f.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	return room, f.files, nil
}

func (f *fakeDataroomService) ListFiles(ctx context.Context, userID, id string) ([]*model.File, error) {
	if _, err := f.lookup(id); err != nil {
		return nil, err
	}
	return f.files, nil
}

func (f *fakeDataroomService) Update(ctx context.Context, userID, id string, input service.UpdateDataroomInput) (*model.Dataroom, error) {
	f.update = input
	room, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && *input.Name != "" {
		room.Name = *input.Name
	}
	if input.DescriptionSet {
		room.Description = input.Description
	}
	return room, nil
}

func (f *fakeDataroomService) Delete(ctx context.Context, userID, id string) error {
	if _, err := f.lookup(id); err != nil {
		return err
	}
	delete(f.rooms, id)
	return nil
}

type fakeFileService struct {
	file     *model.File
	content  []byte
	err      error
	imported service.ImportInput
	deleted  string
}

func (f *fakeFileService) Import(ctx context.Context, userID string, input service.ImportInput) (*model.File, error) {
	f.imported = input
	if f.err != nil {
		return nil, f.err
	}
	return f.file, nil
}

func (f *fakeFileService) Get(ctx context.Context, userID, id string) (*model.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.file == nil || f.file.ID != id {
		return nil, service.ErrFileNotFound
	}
	return f.file, nil
}

func (f *fakeFileService) Open(ctx context.Context, userID, id string) (*service.Content, error) {
	file, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &service.Content{
		File: file,
		Body: io.NopCloser(bytes.NewReader(f.content)),
		Size: int64(len(f.content)),
	}, nil
}

func (f *fakeFileService) Delete(ctx context.Context, userID, id string) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	f.deleted = id
	return nil
}
