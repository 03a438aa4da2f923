package app

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sweeper/internal/cleanup/events"
	"sweeper/internal/cleanup/repository"
	"sweeper/internal/cleanup/service"
	"sweeper/pkg/config"
	"sweeper/pkg/kafka"
	kafka_config "sweeper/pkg/kafka/config"
	kafka_middleware "sweeper/pkg/kafka/middleware"
	"sweeper/pkg/metrics"
)

// Components are the collaborators shared by the HTTP server and the
// one-shot job.
type Components struct {
	Sweep service.SweepService

	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry

	closers []func() error
}

// BuildComponents wires the Mongo stores, metrics and the optional Kafka
// notifier into a sweep service. cfg must already hold a connected client.
func BuildComponents(cfg *config.Config, serviceName string) (*Components, error) {
	c := &Components{}
	var opts []service.Option

	if cfg.MetricsEnabled {
		c.Registry = prometheus.NewRegistry()
		c.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, service.WithMetrics(metrics.NewSweepMetricsWithRegistry(c.Registry)))
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return nil, err
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	if kafkaCfg.Enabled() {
		producer, err := kafka.NewProducer(kafkaCfg, cfg.SweepTopic, cfg.Log)
		if err != nil {
			return nil, err
		}
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
			if c.Registry != nil {
				producer.Use(kafka_middleware.MetricsProducerMiddleware(kafka_middleware.NewPublishMetrics(c.Registry)))
			}
		}
		c.closers = append(c.closers, producer.Close)
		opts = append(opts, service.WithNotifier(events.NewKafkaNotifier(producer, cfg.DatabaseID, serviceName)))
		cfg.Log.Info("Sweep events enabled", "topic", cfg.SweepTopic)
	}

	c.Sweep = service.NewSweepService(
		cfg,
		repository.NewMongoSpaceRepository(cfg),
		repository.NewMongoLockRepository(cfg),
		opts...,
	)

	cfg.Log.Info("Sweep service initialized",
		"database", cfg.DatabaseID,
		"metrics_enabled", cfg.MetricsEnabled,
		"space_error_policy", cfg.SpaceErrorPolicy,
	)
	return c, nil
}

// Close releases the producer, if any.
func (c *Components) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	c.closers = nil
	return errors.Join(errs...)
}
