package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/service"
)

func newFileRouter(svc *fakeFileService) http.Handler {
	h := NewFileHandler(svc, discardLogger)
	return newTestRouter(func(r chi.Router) {
		r.Post("/api/files/import", h.Import)
		r.Get("/api/files/{id}", h.Get)
		r.Get("/api/files/{id}/download", h.Download)
		r.Delete("/api/files/{id}", h.Delete)
	})
}

func sampleFile() *model.File {
	return &model.File{
		ID:           "file-1",
		DataroomID:   "room-1",
		GoogleFileID: strPtr("g-1"),
		Name:         "Q1 report.pdf",
		MimeType:     strPtr("application/pdf"),
		SizeBytes:    func() *int64 { n := int64(5); return &n }(),
		StoragePath:  "user-1/room-1/01H.pdf",
		Status:       model.FileStatusImported,
	}
}

func TestFileHandler_Import(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"created", `{"dataroom_id":"room-1","google_file_id":"g-1"}`, nil, http.StatusCreated, ""},
		{"empty body", "", nil, http.StatusBadRequest, CodeValidation},
		{"missing ids", `{}`, &service.ValidationError{Message: "dataroom_id and google_file_id are required"}, http.StatusBadRequest, CodeValidation},
		{"unknown room", `{"dataroom_id":"x","google_file_id":"g"}`, service.ErrDataroomNotFound, http.StatusNotFound, CodeNotFound},
		{"duplicate", `{"dataroom_id":"room-1","google_file_id":"g-1"}`, service.ErrFileAlreadyImported, http.StatusConflict, CodeAlreadyExists},
		{"not connected", `{"dataroom_id":"room-1","google_file_id":"g-1"}`, service.ErrGoogleNotConnected, http.StatusBadRequest, "GOOGLE_NOT_CONNECTED"},
		{"revoked", `{"dataroom_id":"room-1","google_file_id":"g-1"}`, &google.Error{Code: google.CodeOAuthRevoked}, http.StatusUnauthorized, google.CodeOAuthRevoked},
		{"storage failure", `{"dataroom_id":"room-1","google_file_id":"g-1"}`, &service.ImportError{Err: errors.New("disk full")}, http.StatusInternalServerError, "IMPORT_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &fakeFileService{file: sampleFile(), err: tt.err}
			rec := serve(newFileRouter(svc), http.MethodPost, "/api/files/import", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec).Error; got != tt.wantCode {
					t.Errorf("error = %s, want %s", got, tt.wantCode)
				}
				return
			}

			var f map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if f["id"] != "file-1" || f["status"] != "imported" {
				t.Errorf("unexpected file: %v", f)
			}
			if _, leaked := f["storage_path"]; leaked {
				t.Error("storage_path must not be serialized")
			}
			if svc.imported.GoogleFileID != "g-1" {
				t.Errorf("service got %+v", svc.imported)
			}
		})
	}
}

func TestFileHandler_GetAndDelete(t *testing.T) {
	t.Parallel()

	svc := &fakeFileService{file: sampleFile()}
	router := newFileRouter(svc)

	if rec := serve(router, http.MethodGet, "/api/files/file-1", ""); rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec := serve(router, http.MethodGet, "/api/files/other", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Message != "File not found" {
		t.Errorf("message = %q", resp.Message)
	}

	rec = serve(router, http.MethodDelete, "/api/files/file-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if svc.deleted != "file-1" {
		t.Errorf("deleted = %q", svc.deleted)
	}
	if !strings.Contains(rec.Body.String(), "File deleted successfully") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestFileHandler_Download(t *testing.T) {
	t.Parallel()

	t.Run("streams content as attachment", func(t *testing.T) {
		t.Parallel()
		svc := &fakeFileService{file: sampleFile(), content: []byte("%PDF-")}
		rec := serve(newFileRouter(svc), http.MethodGet, "/api/files/file-1/download", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Body.String(); got != "%PDF-" {
			t.Errorf("body = %q", got)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Content-Type = %s", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Q1 report.pdf"` {
			t.Errorf("Content-Disposition = %s", cd)
		}
		if cl := rec.Header().Get("Content-Length"); cl != "5" {
			t.Errorf("Content-Length = %s", cl)
		}
	})

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"not stored", service.ErrFileNotStored, "FILE_NOT_STORED"},
		{"missing blob", service.ErrFileContentMissing, "FILE_NOT_FOUND"},
		{"deleted", service.ErrFileNotFound, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &fakeFileService{file: sampleFile(), err: tt.err}
			rec := serve(newFileRouter(svc), http.MethodGet, "/api/files/file-1/download", "")

			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			if got := decodeError(t, rec).Error; got != tt.wantCode {
				t.Errorf("error = %s, want %s", got, tt.wantCode)
			}
		})
	}
}
