// Package metrics holds the Prometheus collectors of the service. They are
// registered with the default registry and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilesUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filetree",
		Name:      "files_uploaded_total",
		Help:      "Files stored, by category.",
	}, []string{"category"})

	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "filetree",
		Name:      "uploaded_bytes_total",
		Help:      "Payload bytes written to the object store.",
	})

	FilesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "filetree",
		Name:      "files_deleted_total",
		Help:      "File metadata rows removed, directly or through a folder cascade.",
	})

	FoldersDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "filetree",
		Name:      "folders_deleted_total",
		Help:      "Folder rows removed, directly or through a folder cascade.",
	})

	// BlobCleanupFailures counts best-effort object deletions that failed and left an orphan blob.
	BlobCleanupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filetree",
		Name:      "blob_cleanup_failures_total",
		Help:      "Object store deletions that failed on a best-effort path.",
	}, []string{"operation"})

	DemoSessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "filetree",
		Name:      "demo_sessions_purged_total",
		Help:      "Expired demo sessions removed by the cleanup job.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filetree",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filetree",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
