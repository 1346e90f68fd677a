package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(Config{
		ClientID:             "client-id",
		ClientSecret:         "client-secret",
		AuthURL:              srv.URL + "/auth",
		TokenURL:             srv.URL + "/token",
		UserInfoURL:          srv.URL + "/userinfo",
		DriveURL:             srv.URL + "/drive/v3",
		RetryInitialInterval: time.Millisecond,
		MaxRetries:           2,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		query  string
		folder string
		want   string
	}{
		{"no filters", "", "", "mimeType != 'application/vnd.google-apps.folder'"},
		{"folder", "", "F1", "mimeType != 'application/vnd.google-apps.folder' and 'F1' in parents"},
		{"name", "report", "", "mimeType != 'application/vnd.google-apps.folder' and name contains 'report'"},
		{"escapes quotes", "Bob's", "", `mimeType != 'application/vnd.google-apps.folder' and name contains 'Bob\'s'`},
		{"escapes backslash", `a\b`, "", `mimeType != 'application/vnd.google-apps.folder' and name contains 'a\\b'`},
		{"both", "q", "F", "mimeType != 'application/vnd.google-apps.folder' and 'F' in parents and name contains 'q'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BuildQuery(tt.query, tt.folder); got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListFiles_Normalizes(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drive/v3/files" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer at" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{
			"files": []map[string]any{
				{"id": "1", "name": "a.pdf", "mimeType": "application/pdf", "size": "1024", "webViewLink": "https://drive/1"},
				{"id": "2", "name": "Doc", "mimeType": "application/vnd.google-apps.document"},
			},
			"nextPageToken": "next",
		})
	}))

	page, err := c.ListFiles(context.Background(), "at", ListOptions{PageSize: 20, PageToken: "tok", Query: "a"})
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}

	if gotQuery.Get("pageSize") != "20" || gotQuery.Get("pageToken") != "tok" {
		t.Errorf("unexpected paging params %v", gotQuery)
	}
	if gotQuery.Get("orderBy") != "modifiedTime desc" {
		t.Errorf("orderBy = %q", gotQuery.Get("orderBy"))
	}
	if !strings.Contains(gotQuery.Get("q"), "name contains 'a'") {
		t.Errorf("q = %q", gotQuery.Get("q"))
	}

	if len(page.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(page.Files))
	}
	if page.Files[0].Size == nil || *page.Files[0].Size != "1024" {
		t.Errorf("expected size string 1024, got %v", page.Files[0].Size)
	}
	if page.Files[1].Size != nil {
		t.Errorf("expected nil size for workspace doc")
	}
	if page.NextPageToken == nil || *page.NextPageToken != "next" {
		t.Errorf("NextPageToken = %v", page.NextPageToken)
	}
}

func TestListFiles_EmptyPage(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	}))

	page, err := c.ListFiles(context.Background(), "at", ListOptions{PageSize: 20})
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if page.Files == nil {
		t.Error("expected non-nil empty slice")
	}
	if page.NextPageToken != nil {
		t.Errorf("expected nil next page token, got %q", *page.NextPageToken)
	}
}

func TestListFiles_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": []any{}})
	}))

	if _, err := c.ListFiles(context.Background(), "at", ListOptions{PageSize: 10}); err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestListFiles_ClientErrorIsPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	}))

	_, err := c.ListFiles(context.Background(), "at", ListOptions{PageSize: 10})
	if err == nil {
		t.Fatal("expected error")
	}

	var gErr *Error
	if !errors.As(err, &gErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if gErr.Code != CodeDriveListFailed || gErr.Status != http.StatusForbidden {
		t.Errorf("got code %s status %d", gErr.Code, gErr.Status)
	}
	if !strings.Contains(gErr.Message, "forbidden") {
		t.Errorf("expected upstream body in message, got %q", gErr.Message)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestGetFileMetadata(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drive/v3/files/abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("fields") != metadataFields {
			t.Errorf("fields = %q", r.URL.Query().Get("fields"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "abc", "name": "blob", "size": "77"})
	}))

	meta, err := c.GetFileMetadata(context.Background(), "at", "abc")
	if err != nil {
		t.Fatalf("GetFileMetadata() error = %v", err)
	}
	if meta.MimeType != "application/octet-stream" {
		t.Errorf("expected default mime type, got %s", meta.MimeType)
	}
	if meta.Size == nil || *meta.Size != 77 {
		t.Errorf("expected size 77, got %v", meta.Size)
	}
}

func TestGetFileMetadata_NotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := c.GetFileMetadata(context.Background(), "at", "missing")
	if CodeOf(err) != CodeDriveMetadataFailed {
		t.Errorf("expected %s, got %v", CodeDriveMetadataFailed, err)
	}
}

func TestDownload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mimeType   string
		wantPath   string
		wantParams url.Values
	}{
		{
			name:       "regular file",
			mimeType:   "application/pdf",
			wantPath:   "/drive/v3/files/f1",
			wantParams: url.Values{"alt": {"media"}},
		},
		{
			name:       "google doc",
			mimeType:   "application/vnd.google-apps.document",
			wantPath:   "/drive/v3/files/f1/export",
			wantParams: url.Values{"mimeType": {"application/pdf"}},
		},
		{
			name:       "google sheet",
			mimeType:   "application/vnd.google-apps.spreadsheet",
			wantPath:   "/drive/v3/files/f1/export",
			wantParams: url.Values{"mimeType": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %s, want %s", r.URL.Path, tt.wantPath)
				}
				for k, v := range tt.wantParams {
					if r.URL.Query().Get(k) != v[0] {
						t.Errorf("param %s = %q, want %q", k, r.URL.Query().Get(k), v[0])
					}
				}
				_, _ = w.Write([]byte("content"))
			}))

			body, err := c.Download(context.Background(), "at", "f1", tt.mimeType)
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			defer body.Close()

			data, _ := io.ReadAll(body)
			if string(data) != "content" {
				t.Errorf("body = %q", data)
			}
		})
	}
}

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()

	c := New(Config{ClientID: "cid"}, nil)
	raw := c.AuthCodeURL("state123", "http://localhost:8080/auth/google/callback")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()

	checks := map[string]string{
		"client_id":     "cid",
		"state":         "state123",
		"access_type":   "offline",
		"prompt":        "consent",
		"response_type": "code",
		"redirect_uri":  "http://localhost:8080/auth/google/callback",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if !strings.Contains(q.Get("scope"), "drive.readonly") {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestExchange(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("code") != "the-code" || r.PostForm.Get("client_secret") != "client-secret" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"expires_in":    3600,
			"token_type":    "Bearer",
			"id_token":      "id.token.value",
		})
	}))

	before := time.Now()
	tok, err := c.Exchange(context.Background(), "the-code", "http://cb")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if tok.AccessToken != "access" || tok.RefreshToken != "refresh" || tok.IDToken != "id.token.value" {
		t.Errorf("unexpected token %+v", tok)
	}
	if tok.Expiry.Before(before.Add(59 * time.Minute)) {
		t.Errorf("expiry too early: %v", tok.Expiry)
	}
}

func TestExchange_Failure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	}))

	_, err := c.Exchange(context.Background(), "bad", "http://cb")
	if CodeOf(err) != CodeTokenExchangeFailed {
		t.Errorf("expected %s, got %v", CodeTokenExchangeFailed, err)
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("no refresh token", func(t *testing.T) {
		t.Parallel()
		c := New(Config{}, nil)
		_, err := c.Refresh(context.Background(), "")
		if !IsRevoked(err) {
			t.Errorf("expected revoked error, got %v", err)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
		}))
		_, err := c.Refresh(context.Background(), "old")
		if !IsRevoked(err) {
			t.Errorf("expected revoked error, got %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "old" {
				t.Errorf("unexpected form %v", r.PostForm)
			}
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "fresh", "expires_in": 1800, "token_type": "Bearer"})
		}))
		tok, err := c.Refresh(context.Background(), "old")
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if tok.AccessToken != "fresh" {
			t.Errorf("AccessToken = %s", tok.AccessToken)
		}
	})
}

func TestUserInfo(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"sub": "123", "email": " Alice@Example.COM ", "name": "Alice"})
	}))

	info, err := c.UserInfo(context.Background(), "at")
	if err != nil {
		t.Fatalf("UserInfo() error = %v", err)
	}
	if info.Sub != "123" || info.Email != "alice@example.com" || info.Name != "Alice" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestUserInfo_Unauthorized(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.UserInfo(context.Background(), "at")
	if CodeOf(err) != CodeUserInfoFailed {
		t.Errorf("expected %s, got %v", CodeUserInfoFailed, err)
	}
}
