package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	handler := CORS([]string{"http://localhost:5173"})(okHandler())

	tests := []struct {
		name       string
		method     string
		origin     string
		reqHeaders string
		wantOrigin string
		wantStatus int
	}{
		{"preflight from allowed origin", http.MethodOptions, "http://localhost:5173", "authorization", "http://localhost:5173", http.StatusNoContent},
		{"preflight with several headers", http.MethodOptions, "http://localhost:5173", "authorization,content-type", "http://localhost:5173", http.StatusNoContent},
		{"preflight from unknown origin", http.MethodOptions, "https://evil.example", "authorization", "", http.StatusNoContent},
		{"simple request from allowed origin", http.MethodGet, "http://localhost:5173", "", "http://localhost:5173", http.StatusOK},
		{"unknown origin", http.MethodGet, "https://evil.example", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/api/datarooms", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
				// Browsers send the header names lowercased.
				req.Header.Set("Access-Control-Request-Headers", tt.reqHeaders)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" && rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("expected credentials to be allowed")
			}
		})
	}
}
