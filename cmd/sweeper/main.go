package main

import (
	"sweeper/internal/cleanup/handler"
	"sweeper/internal/scheduler"
	"sweeper/pkg/app"
	"sweeper/pkg/config"
)

const ServiceName = "space-sweeper"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting space sweeper")
	components, err := app.BuildComponents(cfg, ServiceName)
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Failed to initialize sweeper", "error", err)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.OnShutdown(func() {
		if err := components.Close(); err != nil {
			cfg.Log.Error("Failed to close components", "error", err)
		}
	})

	if components.Registry != nil {
		serverApp.SetMetrics(components.Registry)
	}

	if cfg.SweepSchedule != "" {
		sched, err := scheduler.New(cfg.SweepSchedule, components.Sweep, cfg.RequestTimeout, cfg.Log)
		if err != nil {
			cfg.GracefulShutdown()
			cfg.Log.Fatal("Invalid sweep schedule", "error", err)
		}
		serverApp.SetScheduler(sched)
	}

	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.DatabaseID, cfg.Log),
		handler.NewSweepHandler(components.Sweep, cfg.Log),
	)
	serverApp.Run()
}
