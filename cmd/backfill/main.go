package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"leadflow/internal/constants"
	"leadflow/internal/database"
	"leadflow/internal/grouper"
	"leadflow/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	dir            = flag.String("dir", "", "Directory of captured *.json webhook events")
	dbPath         = flag.String("db", "./leadflow.db", "Path to the database file")
	readyThreshold = flag.Int("threshold", constants.DefaultReadyThreshold, "Message count at which a conversation is ready")
	force          = flag.Bool("force", false, "Reprocess already-known messages (overwrite and re-group)")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Usage: backfill -dir <event-directory> [-db <path>] [-threshold <n>] [-force]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Backfill error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := database.New(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	grp, err := grouper.New(db, *readyThreshold, logger)
	if err != nil {
		return fmt.Errorf("failed to create grouper: %w", err)
	}

	ingest, err := service.NewIngestService(db, grp, logger)
	if err != nil {
		return fmt.Errorf("failed to create ingest service: %w", err)
	}

	processor := service.NewBatchProcessor(ingest, logger)

	summary, err := processor.ProcessDirectory(ctx, *dir, *force)
	if err != nil {
		return err
	}

	fmt.Printf("Processed: %d\nDuplicates: %d\nFailures: %d\n",
		summary.Processed, summary.Duplicates, summary.Failures)

	if summary.Failures > 0 {
		return fmt.Errorf("%d event files failed", summary.Failures)
	}
	return nil
}
