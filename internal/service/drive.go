package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/metrics"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/repository"
)

const (
	defaultDrivePageSize = 20
	maxDrivePageSize     = 100

	// tokenRefreshMargin refreshes access tokens that expire soon.
	tokenRefreshMargin = 5 * time.Minute
)

// DriveService lists a user's Drive files and keeps their Google access
// token fresh.
type DriveService struct {
	oauth         OAuthStore
	google        GoogleDrive
	defaultFolder string
	logger        *slog.Logger
	metrics       metrics.Recorder
	now           func() time.Time
}

// NewDriveService creates a new DriveService.
func NewDriveService(oauth OAuthStore, g GoogleDrive, defaultFolder string, logger *slog.Logger, recorder metrics.Recorder) *DriveService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveService{
		oauth:         oauth,
		google:        g,
		defaultFolder: defaultFolder,
		logger:        logger,
		metrics:       recorder,
		now:           time.Now,
	}
}

// AccessToken returns a usable Google access token for the user, refreshing
// it when it is missing or about to expire.
func (s *DriveService) AccessToken(ctx context.Context, userID string) (string, error) {
	acct, err := s.oauth.GetOAuthAccount(ctx, userID, model.ProviderGoogle)
	if err != nil {
		if errors.Is(err, repository.ErrOAuthAccountNotFound) {
			return "", ErrGoogleNotConnected
		}
		return "", err
	}
	return s.ensureFresh(ctx, acct)
}

func (s *DriveService) ensureFresh(ctx context.Context, acct *model.OAuthAccount) (string, error) {
	if acct.AccessTokenValid(s.now(), tokenRefreshMargin) {
		return acct.AccessToken, nil
	}

	tok, err := s.google.Refresh(ctx, acct.RefreshToken)
	if err != nil {
		s.metrics.IncTokenRefresh(metrics.StatusFailed)
		s.logger.Warn("google token refresh failed",
			slog.String("user_id", acct.UserID),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	s.metrics.IncTokenRefresh(metrics.StatusSuccess)

	if err := s.oauth.UpdateOAuthTokens(ctx, acct.ID, tok.AccessToken, tok.RefreshToken, tok.Expiry.UTC()); err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}
	return tok.AccessToken, nil
}

// ListFilesInput narrows a Drive listing.
type ListFilesInput struct {
	PageSize  int
	PageToken string
	Query     string
	// FolderID overrides the configured default folder.
	FolderID string
}

// ListFiles returns one page of the user's Drive files.
func (s *DriveService) ListFiles(ctx context.Context, userID string, input ListFilesInput) (*model.DriveFilePage, error) {
	token, err := s.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	folder := input.FolderID
	if folder == "" {
		folder = s.defaultFolder
	}

	start := time.Now()
	page, err := s.google.ListFiles(ctx, token, google.ListOptions{
		PageSize:  ClampPageSize(input.PageSize),
		PageToken: input.PageToken,
		Query:     input.Query,
		FolderID:  folder,
	})
	if err != nil {
		s.metrics.ObserveDriveList(metrics.StatusFailed, time.Since(start))
		return nil, err
	}
	s.metrics.ObserveDriveList(metrics.StatusSuccess, time.Since(start))
	return page, nil
}

// ClampPageSize applies the default page size and caps it at the maximum.
func ClampPageSize(n int) int {
	if n <= 0 {
		return defaultDrivePageSize
	}
	if n > maxDrivePageSize {
		return maxDrivePageSize
	}
	return n
}
