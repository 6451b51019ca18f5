package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "chat_sentinel"

var (
	Enforcements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "enforcements_total",
		Help:      "Total number of enforcement actions",
	}, []string{"action"})

	DeletedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "deleted_messages_total",
		Help:      "Total number of deleted messages",
	}, []string{"reason"})

	ViolationsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "violations_detected_total",
		Help:      "Total number of violations by detecting filter",
	}, []string{"filter"})

	UpdateProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "update_processing_duration_seconds",
		Help:      "Duration of update processing",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type", "status"})

	TrackedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "tracked_users",
		Help:      "Number of (room,user) pairs currently in the moderation tracker",
	})

	PendingVerifications = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "pending_verifications",
		Help:      "Number of members currently held at the join gate",
	})
)

func IncEnforcement(action string) {
	Enforcements.WithLabelValues(action).Inc()
}

func IncDeletedMessages(reason string) {
	DeletedMessages.WithLabelValues(reason).Inc()
}

func IncViolation(filter string) {
	ViolationsDetected.WithLabelValues(filter).Inc()
}

func SetTrackedUsers(count float64) {
	TrackedUsers.Set(count)
}

func ObserveUpdateProcessing(updateType string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	UpdateProcessingDuration.WithLabelValues(updateType, status).Observe(duration)
}
