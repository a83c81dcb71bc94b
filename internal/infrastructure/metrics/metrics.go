// Package metrics exposes prometheus collectors for event handling and its side effects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/garyjia/trash-inspection/internal/application/service"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
)

const (
	namespace = "trash_inspection"
	subsystem = "workflow"
)

var (
	eventsHandledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_handled_total",
			Help:      "Total number of handled events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	eventHandleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "event_handle_duration_seconds",
			Help:      "Duration of event handler execution in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event_type"},
	)

	retractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retractions_total",
			Help:      "Total number of sibling case retractions by outcome",
		},
		[]string{"outcome"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Total number of back-office notifications by outcome",
		},
		[]string{"outcome"},
	)

	redeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "redeliveries_total",
			Help:      "Total number of events scheduled for redelivery",
		},
		[]string{"event_type"},
	)

	deadLettersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "dead_letters_total",
			Help:      "Total number of events moved to the dead letter state",
		},
		[]string{"event_type"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of queued events by state",
		},
		[]string{"state"},
	)
)

// Event outcomes recorded by the queue worker
const (
	EventOutcomeAcked      = "acked"
	EventOutcomeRetried    = "retried"
	EventOutcomeDeadLetter = "dead_letter"
)

// Recorder implements service.Metrics and the worker's metric hooks on top of
// the package collectors.
type Recorder struct{}

// NewRecorder returns a recorder backed by the default prometheus registry
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ObserveRetraction(outcome string) {
	retractionsTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveNotification(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveEvent records one handler execution
func (r *Recorder) ObserveEvent(eventType, outcome string, elapsed time.Duration) {
	eventsHandledTotal.WithLabelValues(eventType, outcome).Inc()
	eventHandleDuration.WithLabelValues(eventType).Observe(elapsed.Seconds())
	switch outcome {
	case EventOutcomeRetried:
		redeliveriesTotal.WithLabelValues(eventType).Inc()
	case EventOutcomeDeadLetter:
		deadLettersTotal.WithLabelValues(eventType).Inc()
	}
}

// ObserveQueue publishes the latest queue statistics
func (r *Recorder) ObserveQueue(stats *entity.QueueStats) {
	if stats == nil {
		return
	}
	queueDepth.WithLabelValues(entity.QueueStatusPending).Set(float64(stats.Pending))
	queueDepth.WithLabelValues("in_flight").Set(float64(stats.InFlight))
	queueDepth.WithLabelValues(entity.QueueStatusDone).Set(float64(stats.Done))
	queueDepth.WithLabelValues(entity.QueueStatusDead).Set(float64(stats.Dead))
}

var _ service.Metrics = (*Recorder)(nil)
