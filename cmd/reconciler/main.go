// The reconciler consumes orphaned-asset events and appends them to a
// JSON-lines sweep list for manual cleanup of the blob store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/companydir/internal/company/config"
	"github.com/gartstein/companydir/internal/company/events"
	"github.com/gartstein/companydir/internal/company/reconcile"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(config.Path())
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	out, err := os.OpenFile(cfg.ReconcileOutput, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Fatal("failed to open sweep list", zap.Error(err), zap.String("path", cfg.ReconcileOutput))
	}
	defer out.Close()

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ReconcileGroupID, cfg.Topic, logger)
	consumer.RegisterHandler(reconcile.NewSink(out, logger).Handle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Reconciler started",
		zap.String("topic", cfg.Topic),
		zap.String("output", cfg.ReconcileOutput),
	)
	consumer.Run(ctx)
	consumer.Close()
	logger.Info("Reconciler stopped")
}
