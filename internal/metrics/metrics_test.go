package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInMemoryRecorder(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncLogin(StatusSuccess)
	m.IncLogin(StatusFailed)
	m.ObserveImport(StatusSuccess, time.Second, 100)
	m.ObserveImport(StatusFailed, time.Second, 0)
	m.IncDownload(40)
	m.IncDownload(2)
	m.IncDataroomCreated()

	s := m.Snapshot()
	if s.LoginsSucceeded != 1 || s.LoginsFailed != 1 {
		t.Errorf("logins = %d/%d", s.LoginsSucceeded, s.LoginsFailed)
	}
	if s.ImportsSucceeded != 1 || s.ImportsFailed != 1 || s.ImportedBytes != 100 {
		t.Errorf("imports = %+v", s)
	}
	if s.Downloads != 2 || s.DownloadedBytes != 42 {
		t.Errorf("downloads = %d (%d bytes)", s.Downloads, s.DownloadedBytes)
	}
	if s.DataroomsCreated != 1 {
		t.Errorf("DataroomsCreated = %d", s.DataroomsCreated)
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.ObserveHTTPRequest(http.MethodGet, "/api/datarooms", 200, 10*time.Millisecond)
	p.ObserveImport(StatusSuccess, time.Second, 512)
	p.IncFileDeleted()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	for _, want := range []string{
		`dataroom_http_requests_total{method="GET",route="/api/datarooms",status_code="200"} 1`,
		`dataroom_imports_total{status="success"} 1`,
		`dataroom_imported_bytes_total 512`,
		`dataroom_files_deleted_total 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	r.IncDownload(1)
}
