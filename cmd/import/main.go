package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/config"
	"github.com/ArowuTest/bmd-member-registry/internal/services"
	"github.com/ArowuTest/bmd-member-registry/internal/store"
	"github.com/ArowuTest/bmd-member-registry/pkg/logger"
	"github.com/rs/zerolog"
)

// Usage: import <members.csv>
//
// The CSV needs a header row; recognised columns are name, country, birthDate,
// lastReplacement, visaType and tendency. Dates are MM/DD/YYYY.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: import <members.csv>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Options{Format: "console"})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: "console"})

	if err := run(cfg, os.Args[1], log); err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
}

func run(cfg *config.Config, csvFilePath string, log zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, err := os.Open(csvFilePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	repo, closeStore, err := store.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open member store: %w", err)
	}
	defer closeStore(context.Background())

	importer := services.NewMemberImporter(repo, time.Now, loc, log)
	result, err := importer.Import(ctx, file)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		log.Warn().Msg(msg)
	}
	log.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("data imported")
	return nil
}
