package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FilesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_files_ingested_total",
			Help: "Total number of video files staged and queued for upload",
		},
		[]string{"source"},
	)
	FilesIngestedErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_files_ingested_errors_total",
			Help: "Total number of video files that could not be staged or queued",
		},
		[]string{"source"},
	)
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_uploads_total",
			Help: "Total number of upload attempts by outcome",
		},
		[]string{"outcome"},
	)
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_upload_bytes",
			Help:    "Size of successfully uploaded video files",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 8),
		},
	)
	UploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_upload_duration_seconds",
			Help:    "Wall time of upload attempts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	ArchiveUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "video_archive_uploaded_total",
			Help: "Total number of uploaded videos archived to object storage",
		},
	)
	ArchiveErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "video_archive_errors_total",
			Help: "Total number of archive copies that failed",
		},
	)
)

func init() {
	prometheus.MustRegister(FilesIngested)
	prometheus.MustRegister(FilesIngestedErrors)
	prometheus.MustRegister(UploadsTotal)
	prometheus.MustRegister(UploadBytes)
	prometheus.MustRegister(UploadDuration)
	prometheus.MustRegister(ArchiveUploaded)
	prometheus.MustRegister(ArchiveErrors)
}
