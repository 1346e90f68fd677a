package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}

// PrometheusRecorder exports metrics in the Prometheus format.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	logins           *prometheus.CounterVec
	tokenRefreshes   *prometheus.CounterVec
	driveListings    *prometheus.CounterVec
	driveDuration    prometheus.Histogram
	imports          *prometheus.CounterVec
	importDuration   prometheus.Histogram
	importedBytes    prometheus.Counter
	dataroomsCreated prometheus.Counter
	dataroomsDeleted prometheus.Counter
	filesDeleted     prometheus.Counter
	downloads        prometheus.Counter
	downloadedBytes  prometheus.Counter
}

// NewPrometheus registers the application metrics, plus Go runtime and
// process collectors, on a dedicated registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dataroom_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dataroom_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: durationBuckets,
		}, []string{"method", "route"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dataroom_logins_total",
			Help: "Google sign-ins by outcome",
		}, []string{"status"}),
		tokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dataroom_google_token_refreshes_total",
			Help: "Google access token refreshes by outcome",
		}, []string{"status"}),
		driveListings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dataroom_drive_listings_total",
			Help: "Drive file listings by outcome",
		}, []string{"status"}),
		driveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataroom_drive_list_duration_seconds",
			Help:    "Drive listing duration in seconds",
			Buckets: durationBuckets,
		}),
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dataroom_imports_total",
			Help: "File imports by outcome",
		}, []string{"status"}),
		importDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataroom_import_duration_seconds",
			Help:    "File import duration in seconds",
			Buckets: durationBuckets,
		}),
		importedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "dataroom_imported_bytes_total",
			Help: "Bytes copied from Google Drive",
		}),
		dataroomsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "dataroom_datarooms_created_total",
			Help: "Datarooms created",
		}),
		dataroomsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "dataroom_datarooms_deleted_total",
			Help: "Datarooms deleted",
		}),
		filesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "dataroom_files_deleted_total",
			Help: "Files deleted",
		}),
		downloads: f.NewCounter(prometheus.CounterOpts{
			Name: "dataroom_downloads_total",
			Help: "File downloads served",
		}),
		downloadedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "dataroom_downloaded_bytes_total",
			Help: "Bytes served by file downloads",
		}),
	}
}

// Handler serves the registry in the exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Gatherer exposes the registry for tests.
func (p *PrometheusRecorder) Gatherer() prometheus.Gatherer {
	return p.registry
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncLogin(status string) {
	p.logins.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncTokenRefresh(status string) {
	p.tokenRefreshes.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveDriveList(status string, duration time.Duration) {
	p.driveListings.WithLabelValues(status).Inc()
	p.driveDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveImport(status string, duration time.Duration, bytes int64) {
	p.imports.WithLabelValues(status).Inc()
	p.importDuration.Observe(duration.Seconds())
	if bytes > 0 {
		p.importedBytes.Add(float64(bytes))
	}
}

func (p *PrometheusRecorder) IncDataroomCreated() {
	p.dataroomsCreated.Inc()
}

func (p *PrometheusRecorder) IncDataroomDeleted() {
	p.dataroomsDeleted.Inc()
}

func (p *PrometheusRecorder) IncFileDeleted() {
	p.filesDeleted.Inc()
}

func (p *PrometheusRecorder) IncDownload(bytes int64) {
	p.downloads.Inc()
	if bytes > 0 {
		p.downloadedBytes.Add(float64(bytes))
	}
}
