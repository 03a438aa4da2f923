package kafka_middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sweeper/pkg/kafka"
)

// PublishMetrics tracks producer outcomes.
type PublishMetrics struct {
	Published *prometheus.CounterVec
	Duration  prometheus.Histogram
}

// NewPublishMetrics registers producer metrics with reg.
func NewPublishMetrics(reg prometheus.Registerer) *PublishMetrics {
	f := promauto.With(reg)
	return &PublishMetrics{
		Published: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sweeper",
				Subsystem: "kafka",
				Name:      "messages_published_total",
				Help:      "Total number of kafka publish attempts by topic and result.",
			},
			[]string{"topic", "result"},
		),
		Duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sweeper",
				Subsystem: "kafka",
				Name:      "publish_duration_seconds",
				Help:      "Duration of kafka publish calls.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// MetricsProducerMiddleware tracks producer metrics
func MetricsProducerMiddleware(m *PublishMetrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		m.Duration.Observe(time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.Published.WithLabelValues(msg.Topic, result).Inc()

		return err
	}
}
