package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"sweeper/pkg/app"
	"sweeper/pkg/config"
	"sweeper/pkg/model"
)

const JobName = "space-sweep-job"

// Runs a single sweep and prints the result. Exits non-zero unless the
// sweep finished or was skipped.
func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()

	components, err := app.BuildComponents(cfg, JobName)
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Failed to initialize sweeper", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	result, runErr := components.Sweep.Run(ctx, "job-"+uuid.NewString())
	cancel()

	if err := components.Close(); err != nil {
		cfg.Log.Error("Failed to close components", "error", err)
	}
	cfg.GracefulShutdown()

	if result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	}
	if runErr != nil || result == nil || result.Status == model.SweepStatusError {
		os.Exit(1)
	}
}
