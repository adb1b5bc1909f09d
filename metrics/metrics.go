// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels operations that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels operations that failed.
	OutcomeError = "error"
)

var (
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statushub",
			Name:      "fetches_total",
			Help:      "Provider fetches, partitioned by slug and outcome.",
		},
		[]string{"slug", "outcome"},
	)

	fetchSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "statushub",
			Name:      "fetch_seconds",
			Help:      "Provider fetch latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statushub",
			Name:      "events_total",
			Help:      "Detected domain events, partitioned by kind and trigger source.",
		},
		[]string{"kind", "source"},
	)

	emailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statushub",
			Name:      "emails_total",
			Help:      "Notification emails attempted, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statushub",
			Name:      "webhooks_total",
			Help:      "Inbound status webhooks, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches the statushub collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		fetchesTotal,
		fetchSeconds,
		eventsTotal,
		emailsTotal,
		webhooksTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveFetch records one provider fetch attempt.
func ObserveFetch(slug string, ok bool, duration time.Duration) {
	outcome := OutcomeError
	if ok {
		outcome = OutcomeSuccess
		if duration < 0 {
			duration = 0
		}
		fetchSeconds.Observe(duration.Seconds())
	}
	fetchesTotal.WithLabelValues(slug, outcome).Inc()
}

// ObserveEvent records one detected event.
func ObserveEvent(kind, source string) {
	eventsTotal.WithLabelValues(kind, source).Inc()
}

// ObserveEmail records one email delivery attempt.
func ObserveEmail(ok bool) {
	outcome := OutcomeError
	if ok {
		outcome = OutcomeSuccess
	}
	emailsTotal.WithLabelValues(outcome).Inc()
}

// ObserveWebhook records one inbound status webhook.
func ObserveWebhook(ok bool) {
	outcome := OutcomeError
	if ok {
		outcome = OutcomeSuccess
	}
	webhooksTotal.WithLabelValues(outcome).Inc()
}
