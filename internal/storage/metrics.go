package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	persistWriteCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_persist_writes_total",
			Help: "Total number of task list writes to the key-value store",
		},
		[]string{"status"},
	)

	persistWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_persist_write_duration_seconds",
			Help:    "Duration of a single task list write in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	persistCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todoapp_persist_coalesced_total",
			Help: "Snapshots replaced by a newer one before they were written",
		},
	)
)
