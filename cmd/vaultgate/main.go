package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/vaultgate/vaultgate/pkg/api"
	"github.com/vaultgate/vaultgate/pkg/auth"
	"github.com/vaultgate/vaultgate/pkg/billing"
	"github.com/vaultgate/vaultgate/pkg/blobstore"
	"github.com/vaultgate/vaultgate/pkg/config"
	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/notify"
	"github.com/vaultgate/vaultgate/pkg/observability"
	"github.com/vaultgate/vaultgate/pkg/storage/postgres"
	"github.com/vaultgate/vaultgate/pkg/teams"
	"github.com/vaultgate/vaultgate/pkg/tiers"
	"github.com/vaultgate/vaultgate/pkg/usage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize OpenTelemetry")
	}

	connMgr, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Database.ReplicaURLs),
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	}, logger, metrics)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	if err := postgres.EnsureSchema(ctx, connMgr.Primary()); err != nil {
		logger.WithError(err).Fatal("failed to apply database schema")
	}
	statsCtx, stopStats := context.WithCancel(ctx)
	connMgr.StartStatsRoutine(statsCtx, 0)

	redisClient := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Rate limiting fails open without Redis, so this is not fatal.
		logger.WithError(err).Warn("redis unreachable at startup")
	}

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize blob storage")
	}

	// Writes and admission snapshots go to the primary so a decision never
	// reads replica lag.
	teamStore := teams.NewPostgresStore(connMgr.Primary())
	entStore := entitlement.NewPostgresStore(connMgr.Primary())
	counter := usage.NewPostgresCounter(connMgr.Primary())

	gateway := entitlement.NewRESTGateway(
		cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.WebhookSecret, metrics)

	notifyLog := logrus.New()
	notifyLog.SetFormatter(&logrus.JSONFormatter{})
	var notifier notify.Notifier = notify.NewLogNotifier(notifyLog)
	if cfg.Notify.MailerURL != "" {
		notifier = notify.NewHTTPMailer(
			cfg.Notify.MailerURL, cfg.Notify.MailerAPIKey,
			cfg.Notify.FromEmail, cfg.Notify.AppURL, notifyLog)
	}

	catalog := tiers.DefaultCatalog()
	orchestrator := billing.New(billing.Config{
		Teams:           teamStore,
		Entitlements:    entStore,
		Counter:         counter,
		Gateway:         gateway,
		Catalog:         catalog,
		Notifier:        notifier,
		Blobs:           blobs,
		Metrics:         metrics,
		TrialDays:       cfg.Billing.TrialDays,
		VerificationTTL: cfg.Billing.VerificationTTL,
	})

	authenticator := auth.NewAuthenticator(teamStore, cfg.Billing.AuthCacheSize, cfg.Billing.AuthCacheTTL)

	server := api.NewServer(api.ServerConfig{
		Orchestrator:   orchestrator,
		Catalog:        catalog,
		Authenticator:  authenticator,
		Redis:          redisClient,
		Logger:         logger,
		Metrics:        metrics,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := buildHealthServer(cfg, connMgr, redisClient, metrics)

	jobs := billing.NewJobs(teamStore, entStore, blobs, metrics, notifyLog)
	if err := jobs.Start(); err != nil {
		logger.WithError(err).Fatal("failed to start background jobs")
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(jobs.Stop)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopStats()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return redisClient.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return connMgr.Close()
	})
	shutdown.RegisterShutdownFunc(otelProviders.Shutdown)

	go func() {
		logger.Infof("health and metrics server listening on :%s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("API server failed")
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}

// buildBlobStore constructs the configured project payload store
func buildBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.Blob.Type == "s3" {
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Blob.S3Region),
		}
		if cfg.Blob.S3AccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.Blob.S3AccessKey, cfg.Blob.S3SecretKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Blob.S3Endpoint != "" {
				o.BaseEndpoint = &cfg.Blob.S3Endpoint
				o.UsePathStyle = true
			}
		})
		return blobstore.NewS3Store(client, cfg.Blob.S3Bucket, "projects"), nil
	}
	return blobstore.NewFilesystemStore(cfg.Blob.FilesystemRoot)
}

// buildHealthServer wires the k8s probe and metrics endpoints on their own
// port.
func buildHealthServer(cfg *config.Config, connMgr *postgres.ConnectionManager, redisClient *redis.Client, metrics *observability.Metrics) *http.Server {
	health := observability.NewHealthHandler(0)
	health.Register("postgres", connMgr.HealthCheck)
	health.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.Liveness)
	mux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
