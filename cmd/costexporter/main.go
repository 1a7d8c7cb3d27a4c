package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tanujbhatia24/capstone-herovired/internal/config"
	"github.com/tanujbhatia24/capstone-herovired/internal/exporter"
	costlog "github.com/tanujbhatia24/capstone-herovired/internal/log"
	"github.com/tanujbhatia24/capstone-herovired/internal/objstore"
	"github.com/tanujbhatia24/capstone-herovired/internal/util"
)

func main() {
	once := flag.Bool("once", false, "Export yesterday's costs once and exit")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := costlog.NewLogger(cfg.LogDir, "costexporter", cfg.Debug, cfg.LogDir == "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	util.LoadAWSCredentials(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSSessionToken)

	store, err := objstore.New(ctx, cfg.S3Bucket, cfg.AWSRegion, logger)
	if err != nil {
		logger.Error("Failed to create S3 client", zap.Error(err))
		os.Exit(1)
	}

	exp, err := exporter.New(ctx, cfg.AWSRegion, cfg.S3Prefix, store, logger)
	if err != nil {
		logger.Error("Failed to create exporter", zap.Error(err))
		os.Exit(1)
	}

	runExport := func() error {
		key, rows, err := exp.ExportYesterday(ctx)
		if err != nil {
			logger.Error("Export failed", zap.Error(err))
			return err
		}
		logger.Info("Export complete",
			zap.String("key", key),
			zap.Int("rows", rows))
		return nil
	}

	if *once {
		if err := runExport(); err != nil {
			os.Exit(1)
		}
		return
	}

	logger.Info("Starting cost exporter",
		zap.String("schedule", cfg.ExportSchedule),
		zap.String("s3_bucket", cfg.S3Bucket))

	c := cron.New()
	if _, err := c.AddFunc(cfg.ExportSchedule, func() { _ = runExport() }); err != nil {
		logger.Error("Invalid export schedule",
			zap.String("schedule", cfg.ExportSchedule),
			zap.Error(err))
		os.Exit(1)
	}
	c.Start()

	<-ctx.Done()
	logger.Info("Stopping cost exporter")
	<-c.Stop().Done()
}
