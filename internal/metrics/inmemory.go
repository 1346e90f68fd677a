package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests     uint64
	LoginsSucceeded  uint64
	LoginsFailed     uint64
	TokenRefreshes   uint64
	RefreshFailures  uint64
	DriveListings    uint64
	ImportsSucceeded uint64
	ImportsFailed    uint64
	ImportedBytes    int64
	DataroomsCreated uint64
	DataroomsDeleted uint64
	FilesDeleted     uint64
	Downloads        uint64
	DownloadedBytes  int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests     uint64
	loginsSucceeded  uint64
	loginsFailed     uint64
	tokenRefreshes   uint64
	refreshFailures  uint64
	driveListings    uint64
	importsSucceeded uint64
	importsFailed    uint64
	importedBytes    int64
	dataroomsCreated uint64
	dataroomsDeleted uint64
	filesDeleted     uint64
	downloads        uint64
	downloadedBytes  int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		HTTPRequests:     atomic.LoadUint64(&m.httpRequests),
		LoginsSucceeded:  atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:     atomic.LoadUint64(&m.loginsFailed),
		TokenRefreshes:   atomic.LoadUint64(&m.tokenRefreshes),
		RefreshFailures:  atomic.LoadUint64(&m.refreshFailures),
		DriveListings:    atomic.LoadUint64(&m.driveListings),
		ImportsSucceeded: atomic.LoadUint64(&m.importsSucceeded),
		ImportsFailed:    atomic.LoadUint64(&m.importsFailed),
		ImportedBytes:    atomic.LoadInt64(&m.importedBytes),
		DataroomsCreated: atomic.LoadUint64(&m.dataroomsCreated),
		DataroomsDeleted: atomic.LoadUint64(&m.dataroomsDeleted),
		FilesDeleted:     atomic.LoadUint64(&m.filesDeleted),
		Downloads:        atomic.LoadUint64(&m.downloads),
		DownloadedBytes:  atomic.LoadInt64(&m.downloadedBytes),
	}
}

// ObserveHTTPRequest counts requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncLogin counts logins by outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncTokenRefresh counts Google token refreshes by outcome.
func (m *InMemoryRecorder) IncTokenRefresh(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.tokenRefreshes, 1)
		return
	}
	atomic.AddUint64(&m.refreshFailures, 1)
}

// ObserveDriveList counts Drive listings.
func (m *InMemoryRecorder) ObserveDriveList(status string, duration time.Duration) {
	atomic.AddUint64(&m.driveListings, 1)
}

// ObserveImport counts imports and imported bytes.
func (m *InMemoryRecorder) ObserveImport(status string, duration time.Duration, bytes int64) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.importsSucceeded, 1)
		atomic.AddInt64(&m.importedBytes, bytes)
		return
	}
	atomic.AddUint64(&m.importsFailed, 1)
}

// IncDataroomCreated increments the dataroom created counter.
func (m *InMemoryRecorder) IncDataroomCreated() {
	atomic.AddUint64(&m.dataroomsCreated, 1)
}

// IncDataroomDeleted increments the dataroom deleted counter.
func (m *InMemoryRecorder) IncDataroomDeleted() {
	atomic.AddUint64(&m.dataroomsDeleted, 1)
}

// IncFileDeleted increments the file deleted counter.
func (m *InMemoryRecorder) IncFileDeleted() {
	atomic.AddUint64(&m.filesDeleted, 1)
}

// IncDownload counts downloads and served bytes.
func (m *InMemoryRecorder) IncDownload(bytes int64) {
	atomic.AddUint64(&m.downloads, 1)
	atomic.AddInt64(&m.downloadedBytes, bytes)
}
