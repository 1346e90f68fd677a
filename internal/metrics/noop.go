package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncTokenRefresh is a no-op.
func (n *NoopRecorder) IncTokenRefresh(status string) {}

// ObserveDriveList is a no-op.
func (n *NoopRecorder) ObserveDriveList(status string, duration time.Duration) {}

// ObserveImport is a no-op.
func (n *NoopRecorder) ObserveImport(status string, duration time.Duration, bytes int64) {}

// IncDataroomCreated is a no-op.
func (n *NoopRecorder) IncDataroomCreated() {}

// IncDataroomDeleted is a no-op.
func (n *NoopRecorder) IncDataroomDeleted() {}

// IncFileDeleted is a no-op.
func (n *NoopRecorder) IncFileDeleted() {}

// IncDownload is a no-op.
func (n *NoopRecorder) IncDownload(bytes int64) {}
