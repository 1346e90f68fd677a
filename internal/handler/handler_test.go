package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/handler/dto"
	"github.com/dataroom/dataroom/internal/service"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var response dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}
	if got := decodeError(t, rec).Error; got != CodeNotFound {
		t.Errorf("unexpected error code: %s", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	MethodNotAllowed(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Error; got != "METHOD_NOT_ALLOWED" {
		t.Errorf("unexpected error code: %s", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      io.Reader
		wantEmpty bool
		wantErr   bool
	}{
		{"valid", strings.NewReader(`{"name":"x"}`), false, false},
		{"empty", strings.NewReader(""), true, true},
		{"nil body", nil, true, true},
		{"malformed", strings.NewReader(`{"name":`), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", tt.body)
			if tt.body == nil {
				r.Body = nil
			}
			var dst struct {
				Name string `json:"name"`
			}
			err := decodeJSON(r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, errEmptyBody) != tt.wantEmpty {
				t.Errorf("errEmptyBody = %v, want %v", errors.Is(err, errEmptyBody), tt.wantEmpty)
			}
		})
	}
}

func TestHandleServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", &service.ValidationError{Message: "Name is required"}, http.StatusBadRequest, CodeValidation, "Name is required"},
		{"dataroom missing", service.ErrDataroomNotFound, http.StatusNotFound, CodeNotFound, "Dataroom not found"},
		{"file missing", fmt.Errorf("get: %w", service.ErrFileNotFound), http.StatusNotFound, CodeNotFound, "File not found"},
		{"duplicate import", service.ErrFileAlreadyImported, http.StatusConflict, CodeAlreadyExists, "This file has already been imported to this dataroom"},
		{"import in progress", service.ErrImportInProgress, http.StatusConflict, "IMPORT_IN_PROGRESS", ""},
		{"google not connected", service.ErrGoogleNotConnected, http.StatusBadRequest, "GOOGLE_NOT_CONNECTED", "Please connect your Google account first"},
		{"google not configured", service.ErrGoogleNotConfigured, http.StatusInternalServerError, CodeConfig, ""},
		{"not stored", service.ErrFileNotStored, http.StatusNotFound, "FILE_NOT_STORED", "File content not available"},
		{"content missing", service.ErrFileContentMissing, http.StatusNotFound, "FILE_NOT_FOUND", "File not found on disk"},
		{"oauth revoked", &google.Error{Code: google.CodeOAuthRevoked, Message: "reconnect"}, http.StatusUnauthorized, google.CodeOAuthRevoked, "reconnect"},
		{"drive failure", &google.Error{Code: google.CodeDriveListFailed, Message: "boom"}, http.StatusInternalServerError, google.CodeDriveListFailed, "boom"},
		{"import failure", &service.ImportError{Err: errors.New("disk full")}, http.StatusInternalServerError, "IMPORT_FAILED", "Failed to import file: disk full"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal, "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			handleServiceError(rec, discardLogger, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeError(t, rec)
			if resp.Error != tt.wantCode {
				t.Errorf("error = %s, want %s", resp.Error, tt.wantCode)
			}
			if tt.wantMsg != "" && resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestOptionalString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantPresent bool
		wantValue   *string
	}{
		{"absent", `{}`, false, nil},
		{"null", `{"description":null}`, true, nil},
		{"empty", `{"description":""}`, true, strPtr("")},
		{"value", `{"description":"notes"}`, true, strPtr("notes")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var req dto.UpdateDataroomRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.Description.Present != tt.wantPresent {
				t.Errorf("Present = %v, want %v", req.Description.Present, tt.wantPresent)
			}
			if (req.Description.Value == nil) != (tt.wantValue == nil) {
				t.Fatalf("Value = %v, want %v", req.Description.Value, tt.wantValue)
			}
			if tt.wantValue != nil && *req.Description.Value != *tt.wantValue {
				t.Errorf("Value = %q, want %q", *req.Description.Value, *tt.wantValue)
			}
		})
	}
}
