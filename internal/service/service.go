// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Service errors.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDataroomNotFound    = errors.New("dataroom not found")
	ErrFileNotFound        = errors.New("file not found")
	ErrFileAlreadyImported = errors.New("file already imported")
	ErrImportInProgress    = errors.New("import already in progress")
	ErrGoogleNotConnected  = errors.New("google account not connected")
	ErrGoogleNotConfigured = errors.New("google oauth not configured")
	ErrInvalidState        = errors.New("invalid oauth state")
	ErrFileNotStored       = errors.New("file content not stored")
	ErrFileContentMissing  = errors.New("file content missing from storage")
)

// ValidationError is a rejected request with a user-facing message.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// validationMessage returns the first field message of an ozzo error.
func validationMessage(err error) string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if errs[k] != nil {
			return errs[k].Error()
		}
	}
	return err.Error()
}

// UserStore persists users.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetOrCreateUser(ctx context.Context, user *model.User, room *model.Dataroom) (*model.User, bool, error)
}

// OAuthStore persists linked Google accounts.
type OAuthStore interface {
	GetOAuthAccount(ctx context.Context, userID, provider string) (*model.OAuthAccount, error)
	HasOAuthAccount(ctx context.Context, userID, provider string) (bool, error)
	UpsertOAuthAccount(ctx context.Context, acct *model.OAuthAccount) error
	UpdateOAuthTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
}

// DataroomStore persists datarooms.
type DataroomStore interface {
	CreateDataroom(ctx context.Context, room *model.Dataroom) error
	GetDataroom(ctx context.Context, id, userID string) (*model.Dataroom, error)
	ListDatarooms(ctx context.Context, userID string) ([]*model.Dataroom, error)
	UpdateDataroom(ctx context.Context, id, userID string, upd model.DataroomUpdate) (*model.Dataroom, error)
	DeleteDataroom(ctx context.Context, id, userID string) ([]string, error)
}

// FileStore persists imported file records.
type FileStore interface {
	CreateFile(ctx context.Context, f *model.File) error
	GetFile(ctx context.Context, id, userID string) (*model.File, error)
	FindImportedFile(ctx context.Context, dataroomID, googleFileID string) (*model.File, error)
	ListImportedFiles(ctx context.Context, dataroomID string) ([]*model.File, error)
	SetFileStatus(ctx context.Context, id, userID string, status model.FileStatus) error
}

// GoogleOAuth runs the Google sign-in flow.
type GoogleOAuth interface {
	ClientID() string
	AuthCodeURL(state, redirectURI string) string
	Exchange(ctx context.Context, code, redirectURI string) (*google.Token, error)
	UserInfo(ctx context.Context, accessToken string) (*google.UserInfo, error)
}

// GoogleDrive reads from Google Drive on behalf of a user.
type GoogleDrive interface {
	Refresh(ctx context.Context, refreshToken string) (*google.Token, error)
	ListFiles(ctx context.Context, accessToken string, opts google.ListOptions) (*model.DriveFilePage, error)
	GetFileMetadata(ctx context.Context, accessToken, fileID string) (*model.DriveFileMetadata, error)
	Download(ctx context.Context, accessToken, fileID, mimeType string) (io.ReadCloser, error)
}

// IDTokenVerifier checks Google id_tokens.
type IDTokenVerifier interface {
	Verify(idToken, wantSub string) (*google.IDTokenClaims, error)
}

// StateStore keeps single-use OAuth state values.
type StateStore interface {
	SaveOAuthState(ctx context.Context, state, redirectURI string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (string, error)
}

// SessionStore tracks revoked session tokens and cached callers.
type SessionStore interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	DeleteAuthUser(ctx context.Context, token string) error
}

// ImportLocker serializes imports of one Drive file into one dataroom.
type ImportLocker interface {
	AcquireImportLock(ctx context.Context, dataroomID, googleFileID string, ttl time.Duration) (release func(), ok bool, err error)
}
