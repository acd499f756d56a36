package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	addTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_added_total",
			Help: "Total number of AddTask operations",
		},
		[]string{"status"},
	)

	updateTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_updated_total",
			Help: "Total number of CommitEdit operations",
		},
		[]string{"status"},
	)

	toggleTaskCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_toggled_total",
			Help: "Total number of completion toggles",
		},
	)

	deleteTaskCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_deleted_total",
			Help: "Total number of tasks removed from the list",
		},
	)

	liveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todoapp_tasks_live",
			Help: "Number of tasks currently in the list",
		},
	)

	taskTitleLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_task_title_length_bytes",
			Help:    "Length distribution of task titles",
			Buckets: []float64{10, 50, 100, 500},
		},
	)

	addTaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_add_task_duration_seconds",
			Help:    "Duration of AddTask operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
