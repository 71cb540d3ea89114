package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/companydir/internal/company/blob"
	"github.com/gartstein/companydir/internal/company/blob/disk"
	"github.com/gartstein/companydir/internal/company/blob/memory"
	"github.com/gartstein/companydir/internal/company/blob/s3"
	"github.com/gartstein/companydir/internal/company/config"
	"github.com/gartstein/companydir/internal/company/controller"
	gorm "github.com/gartstein/companydir/internal/company/db"
	"github.com/gartstein/companydir/internal/company/events"
	"github.com/gartstein/companydir/internal/company/handlers"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const startupTimeout = time.Minute

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		// Sync on stderr returns EINVAL on some platforms; nothing to do about it.
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load(config.Path())
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	repo, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	producer, err := initProducer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	blobs, err := initBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize blob store", zap.Error(err))
	}
	logger.Info("Blob store ready", zap.String("backend", cfg.BlobBackend))

	companySvc := controller.NewCompanyService(repo, blobs, producer, logger,
		controller.WithPageSize(cfg.DefaultPageSize),
		controller.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)

	// Create handlers
	companyHandler := handlers.NewCompanyHandler(companySvc, logger)

	// Create server
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)

	httpOpts := handlers.HTTPOptions{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
	}
	if store, ok := blobs.(*disk.Store); ok {
		httpOpts.ServeFrom(store)
	}
	if err := server.RegisterHTTPGateway(
		ctx,
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		companyHandler,
		httpOpts); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// initDatabase connects to the record store, retrying while it comes up.
func initDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.Repository, error) {
	dbConf := &gorm.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Path:     cfg.DBPath,
	}

	var repo *gorm.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = gorm.NewRepository(dbConf)
		return err
	}, startupBackOff(), notify(logger, "database"))
	return repo, err
}

// initProducer connects to Kafka, retrying while the brokers come up.
func initProducer(cfg *config.Config, logger *zap.Logger) (*events.Producer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is empty")
	}
	var producer *events.Producer
	err := backoff.RetryNotify(func() error {
		var err error
		producer, err = events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		return err
	}, startupBackOff(), notify(logger, "kafka"))
	return producer, err
}

func initBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return s3.NewStore(ctx, s3.Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicURL:       cfg.S3PublicURL,
			PublicRead:      cfg.S3PublicRead,
		})
	case "disk":
		return disk.NewStore(cfg.UploadDir, cfg.UploadURL)
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func startupBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = startupTimeout
	return b
}

func notify(logger *zap.Logger, what string) backoff.Notify {
	return func(err error, next time.Duration) {
		logger.Warn("Dependency not ready, retrying",
			zap.String("dependency", what),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
