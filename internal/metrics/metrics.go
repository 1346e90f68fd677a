// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Auth metrics
	IncLogin(status string)
	IncTokenRefresh(status string)

	// Drive metrics
	ObserveDriveList(status string, duration time.Duration)
	ObserveImport(status string, duration time.Duration, bytes int64)

	// Dataroom and file metrics
	IncDataroomCreated()
	IncDataroomDeleted()
	IncFileDeleted()
	IncDownload(bytes int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
