package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videosos_jobs_submitted_total",
			Help: "Total number of generation jobs accepted for submission",
		},
		[]string{"provider", "media_type"},
	)

	JobsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videosos_jobs_settled_total",
			Help: "Total number of jobs that reached a terminal status",
		},
		[]string{"provider", "media_type", "status"}, // completed, failed
	)

	BlobDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videosos_blob_downloads_total",
			Help: "Total number of background result downloads",
		},
		[]string{"media_type", "success"},
	)
)
