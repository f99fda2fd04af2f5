// Package main wires together the audit service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/analyzer"
	"github.com/gradekit/site-grader/internal/api"
	"github.com/gradekit/site-grader/internal/audit"
	"github.com/gradekit/site-grader/internal/clock/system"
	"github.com/gradekit/site-grader/internal/config"
	"github.com/gradekit/site-grader/internal/dispatcher"
	collyfetcher "github.com/gradekit/site-grader/internal/fetcher/colly"
	proxyfetcher "github.com/gradekit/site-grader/internal/fetcher/proxy"
	"github.com/gradekit/site-grader/internal/hash/sha256"
	"github.com/gradekit/site-grader/internal/id/uuid"
	"github.com/gradekit/site-grader/internal/logging"
	"github.com/gradekit/site-grader/internal/mailer"
	"github.com/gradekit/site-grader/internal/metrics"
	"github.com/gradekit/site-grader/internal/pagespeed"
	"github.com/gradekit/site-grader/internal/publisher"
	"github.com/gradekit/site-grader/internal/queue"
	"github.com/gradekit/site-grader/internal/report"
	"github.com/gradekit/site-grader/internal/storage/gcs"
	"github.com/gradekit/site-grader/internal/storage/local"
	storagememory "github.com/gradekit/site-grader/internal/storage/memory"
	"github.com/gradekit/site-grader/internal/store"
	"github.com/gradekit/site-grader/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clock := system.New()
	idGen := uuid.New()
	hasher := sha256.New()
	retryPolicy := audit.NewExponentialRetryPolicy()

	blobStore, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	records, q, closeDB, err := newPersistence(ctx, cfg, retryPolicy, logger)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}
	defer closeDB()

	var events audit.Publisher
	if cfg.PubSub.ProjectID != "" {
		ps, err := publisher.NewPubSub(ctx, cfg.PubSub.ProjectID, logger.Named("publisher"))
		if err != nil {
			return fmt.Errorf("init publisher: %w", err)
		}
		defer func() {
			if closeErr := ps.Close(); closeErr != nil {
				logger.Warn("publisher close failed", zap.Error(closeErr))
			}
		}()
		events = ps
	}

	var mail audit.Mailer
	if cfg.Email.APIKey != "" {
		mail, err = mailer.NewResend(mailer.ResendConfig{
			APIKey:      cfg.Email.APIKey,
			FromAddress: cfg.Email.FromAddress,
			BrandName:   cfg.Report.BrandName,
		}, logger.Named("mailer"))
		if err != nil {
			return fmt.Errorf("init mailer: %w", err)
		}
	} else {
		logger.Warn("email.api_key not set, report emails will not be delivered")
		mail = mailer.NewMemory()
	}

	fetchTimeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	var fetch audit.Fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      fetchTimeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
	})
	if cfg.Proxy.Endpoint != "" {
		fetch = proxyfetcher.New(fetch, proxyfetcher.Config{
			Endpoint: cfg.Proxy.Endpoint,
			APIKey:   cfg.Proxy.APIKey,
			Timeout:  time.Duration(cfg.Proxy.TimeoutSeconds) * time.Second,
		}, logger.Named("proxy"))
	}

	speed := pagespeed.New(pagespeed.Config{
		Endpoint:      cfg.PageSpeed.Endpoint,
		APIKey:        cfg.PageSpeed.APIKey,
		Timeout:       time.Duration(cfg.PageSpeed.TimeoutSeconds) * time.Second,
		ProxyEndpoint: cfg.Proxy.Endpoint,
		ProxyAPIKey:   cfg.Proxy.APIKey,
	}, logger.Named("pagespeed"))

	runner := analyzer.NewRunner(
		speed,
		&http.Client{Timeout: fetchTimeout},
		analyzer.Config{SnapshotBytes: cfg.Fetch.SnapshotBytes},
		clock,
		logger.Named("analyzer"),
	)

	renderer := report.New(report.Config{
		BrandName: cfg.Report.BrandName,
		SiteURL:   cfg.Report.SiteURL,
		UpsellURL: cfg.Report.UpsellURL,
	}, logger.Named("report"))

	workerCfg := worker.Config{
		BlobPrefix: cfg.Storage.Prefix,
		Topic:      cfg.PubSub.TopicName,
	}
	var workers []*worker.Worker
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		workers = append(workers, worker.New(
			q,
			records,
			blobStore,
			fetch,
			runner,
			renderer,
			mail,
			events,
			hasher,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(q, workers)

	apiServer := api.NewServer(records, dispatch, idGen, clock, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Worker.Concurrency))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func newBlobStore(ctx context.Context, cfg config.Config) (audit.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	case "local":
		return local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
	case "memory":
		return storagememory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// newPersistence picks the record store and queue pair. With a DSN both live
// in Postgres so jobs survive restarts; without one the service runs fully
// in memory for local development.
func newPersistence(
	ctx context.Context,
	cfg config.Config,
	policy *audit.ExponentialRetryPolicy,
	logger *zap.Logger,
) (audit.RecordStore, audit.Queue, func(), error) {
	if cfg.DB.DSN == "" {
		memQueue := queue.NewMemory(cfg.Worker.QueueDepth, policy, logger.Named("queue"))
		return store.NewMemory(), memQueue, memQueue.Close, nil
	}
	records, err := store.NewPostgres(ctx, store.PostgresConfig{DSN: cfg.DB.DSN})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("record store: %w", err)
	}
	q, err := queue.NewPostgres(ctx, queue.PostgresConfig{
		DSN:   cfg.DB.DSN,
		Lease: time.Duration(cfg.Worker.LeaseSeconds) * time.Second,
	}, policy, logger.Named("queue"))
	if err != nil {
		records.Close()
		return nil, nil, nil, fmt.Errorf("job queue: %w", err)
	}
	closeAll := func() {
		q.Close()
		records.Close()
	}
	return records, q, closeAll, nil
}
