// Command ingest runs one import profile and prints the resulting run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"okazje-ingest/internal/app"
	"okazje-ingest/internal/config"
	"okazje-ingest/internal/ingest"
	"okazje-ingest/internal/logger"
	"okazje-ingest/internal/models"
)

func main() {
	os.Exit(run())
}

func run() int {
	profileID := flag.String("profile", "", "import profile id (required)")
	dryRun := flag.Bool("dry-run", false, "fetch and validate without writing products or deals")
	uid := flag.String("uid", "", "uid recorded as the run's trigger")
	flag.Parse()

	if *profileID == "" {
		fmt.Fprintln(os.Stderr, "-profile is required")
		flag.Usage()
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Error("failed to load config")
		return 1
	}
	log, err := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
		Path:   cfg.LogPath,
		Name:   "ingest",
	})
	if err != nil {
		logrus.WithError(err).Error("failed to set up logging")
		return 1
	}
	// stdout carries the run JSON.
	if cfg.LogOutput == "stdout" {
		log.SetOutput(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to start")
		return 1
	}
	defer a.Close()

	importRun, err := a.Orchestrator.Run(ctx, ingest.RunRequest{
		ProfileID:      *profileID,
		DryRun:         *dryRun,
		TriggeredBy:    models.TriggerManual,
		TriggeredByUID: *uid,
	})
	if err != nil {
		log.WithError(err).Error("import failed")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(importRun); err != nil {
		log.WithError(err).Error("failed to print run")
		return 1
	}

	if importRun.Status == models.RunStatusFailed {
		return 1
	}
	return 0
}
