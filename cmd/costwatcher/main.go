package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tanujbhatia24/capstone-herovired/internal/config"
	"github.com/tanujbhatia24/capstone-herovired/internal/ledger"
	costlog "github.com/tanujbhatia24/capstone-herovired/internal/log"
	"github.com/tanujbhatia24/capstone-herovired/internal/objstore"
	"github.com/tanujbhatia24/capstone-herovired/internal/sink"
	"github.com/tanujbhatia24/capstone-herovired/internal/util"
	"github.com/tanujbhatia24/capstone-herovired/internal/watcher"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := costlog.NewLogger(cfg.LogDir, "costwatcher", cfg.Debug, cfg.LogDir == "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting cost watcher",
		zap.String("s3_bucket", cfg.S3Bucket),
		zap.String("s3_prefix", cfg.S3Prefix),
		zap.Duration("poll_interval", cfg.PollInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	util.LoadAWSCredentials(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSSessionToken)

	token, err := util.ResolveInfluxToken(ctx, cfg.InfluxToken, cfg.InfluxSecret, cfg.AWSRegion)
	if err != nil {
		logger.Error("Failed to resolve InfluxDB token", zap.Error(err))
		os.Exit(1)
	}

	store, err := objstore.New(ctx, cfg.S3Bucket, cfg.AWSRegion, logger)
	if err != nil {
		logger.Error("Failed to create S3 client", zap.Error(err))
		os.Exit(1)
	}

	lg, err := ledger.LoadS3Ledger(ctx, store, cfg.ProcessedKey)
	if err != nil {
		logger.Error("Failed to load processed-files ledger", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Loaded processed-files ledger",
		zap.String("key", cfg.ProcessedKey),
		zap.Int("processed_files", lg.Len()))

	influx, err := sink.NewInflux(ctx, cfg.InfluxURL, token, cfg.InfluxOrg, cfg.InfluxBucket, logger)
	if err != nil {
		logger.Error("Failed to connect to InfluxDB", zap.Error(err))
		os.Exit(1)
	}
	defer influx.Close()

	w := watcher.New(store, lg, influx, watcher.Options{
		Prefix:        cfg.S3Prefix,
		LedgerKey:     cfg.ProcessedKey,
		Interval:      cfg.PollInterval,
		RetentionDays: cfg.RetentionDays,
	}, logger)

	w.Run(ctx)
}
