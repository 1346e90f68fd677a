// Package google talks to Google OAuth, userinfo and the Drive v3 API.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Default Google endpoints.
const (
	DefaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	DefaultTokenURL    = "https://oauth2.googleapis.com/token"
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	DefaultDriveURL    = "https://www.googleapis.com/drive/v3"
)

// Scopes requested at sign-in.
var Scopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/drive.readonly",
}

// Config holds Google client settings. Empty URLs use Google's endpoints.
type Config struct {
	ClientID     string
	ClientSecret string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	DriveURL    string

	RequestTimeout  time.Duration
	DownloadTimeout time.Duration

	// Retry policy for 429, 5xx and transport errors.
	RetryInitialInterval time.Duration
	MaxRetries           uint64
}

func (c *Config) setDefaults() {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.UserInfoURL == "" {
		c.UserInfoURL = DefaultUserInfoURL
	}
	if c.DriveURL == "" {
		c.DriveURL = DefaultDriveURL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = 120 * time.Second
	}
	if c.RetryInitialInterval == 0 {
		c.RetryInitialInterval = 250 * time.Millisecond
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Client calls Google APIs. Every call runs inside a circuit breaker and
// retries transient failures with exponential backoff.
type Client struct {
	cfg      Config
	http     *http.Client
	download *http.Client
	cb       *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// New creates a Client.
func New(cfg Config, logger *slog.Logger) *Client {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	cbSettings := gobreaker.Settings{
		Name:        "google-api",
		MaxRequests: 5,                // Max requests allowed in half-open state
		Interval:    30 * time.Second, // Cyclic period of the closed state
		Timeout:     60 * time.Second, // Time after which circuit switches from open to half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		IsSuccessful: func(err error) bool {
			// The caller's mistakes and cancellations say nothing about Google's health.
			return err == nil || isClientError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Client{
		cfg:      cfg,
		http:     NewHTTPClient(cfg.RequestTimeout),
		download: NewHTTPClient(cfg.DownloadTimeout),
		cb:       gobreaker.NewCircuitBreaker(cbSettings),
		logger:   logger,
	}
}

// WithHTTPClient replaces both HTTP clients. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	c.download = hc
	return c
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitialInterval
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = c.cfg.RequestTimeout
	return backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)
}

// do sends the request built by build and returns a 200 response whose body
// the caller must close. Non-200 responses become *upstreamError.
func (c *Client) do(ctx context.Context, hc *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return backoff.RetryWithData(func() (*http.Response, error) {
			req, err := build()
			if err != nil {
				return nil, backoff.Permanent(err)
			}

			resp, err := hc.Do(req)
			if err != nil {
				if ctx.Err() != nil {
					return nil, backoff.Permanent(ctx.Err())
				}
				return nil, err
			}

			if resp.StatusCode == http.StatusOK {
				return resp, nil
			}

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			upErr := &upstreamError{status: resp.StatusCode, body: string(body)}

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				c.logger.Debug("retrying google request",
					slog.String("url", req.URL.Path),
					slog.Int("status", resp.StatusCode),
				)
				return nil, upErr
			}
			return nil, backoff.Permanent(upErr)
		}, c.newBackoff(ctx))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("google api unavailable: %w", err)
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

func (c *Client) newAuthorizedRequest(ctx context.Context, rawURL, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
