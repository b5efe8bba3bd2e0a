package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/premiumcar-router/cmd/mainconfig"
	"github.com/wolfman30/premiumcar-router/internal/api/router"
	"github.com/wolfman30/premiumcar-router/internal/app/bootstrap"
	appconfig "github.com/wolfman30/premiumcar-router/internal/config"
	"github.com/wolfman30/premiumcar-router/internal/conversation"
	"github.com/wolfman30/premiumcar-router/internal/events"
	httpmiddleware "github.com/wolfman30/premiumcar-router/internal/http/middleware"
	"github.com/wolfman30/premiumcar-router/internal/observability/metrics"
	"github.com/wolfman30/premiumcar-router/internal/scheduler"
	"github.com/wolfman30/premiumcar-router/internal/whatsapp"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting premiumcar router API",
		"env", cfg.Env,
		"port", cfg.Port,
		"memory_queue", cfg.UseMemoryQueue,
	)

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(appCtx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	registry, metricsHandler, messagingMetrics := setupMetrics()

	var redisClient *redis.Client
	if cfg.DedupeBackend == bootstrap.DedupeRedis {
		redisClient = bootstrap.BuildRedisClient(appCtx, cfg, logger, true)
	}
	pool := connectPostgresPool(appCtx, cfg, logger)

	deduper, err := bootstrap.BuildDeduper(cfg, dedupeDeps(redisClient, pool, awsCfg), logger)
	if err != nil {
		logger.Error("failed to build webhook deduper", "error", err)
		os.Exit(1)
	}

	conv, err := bootstrap.BuildDispatcher(appCtx, cfg, bootstrap.DispatcherDeps{
		AWS:       awsCfg,
		Registry:  registry,
		Messaging: messagingMetrics,
	}, logger)
	if err != nil {
		logger.Error("failed to wire conversation dispatcher", "error", err)
		os.Exit(1)
	}

	publisher, worker := setupConversation(cfg, awsCfg, conv, deduper, logger)
	if worker != nil {
		worker.Start(appCtx)
	}

	webhook := whatsapp.NewWebhookHandler(cfg.WebhookVerifyToken, cfg.WhatsAppAppSecret, publisher.Enqueue, logger, messagingMetrics)
	limiter := httpmiddleware.NewRateLimiter(cfg.WebhookRateLimit, cfg.WebhookRateBurst)

	sched, err := setupScheduler(cfg, conv, pool, limiter, logger)
	if err != nil {
		logger.Error("failed to configure scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()

	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		WebhookLimiter: limiter,
		Metrics:        messagingMetrics,
		MetricsHandler: metricsHandler,
		HealthChecks:   healthChecks(redisClient, pool),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	sched.Stop()
	cancelApp()
	if worker != nil {
		waitForWorker(ctx, worker, logger)
	}
	if err := conv.Close(); err != nil {
		logger.Warn("failed to close conversation clients", "error", err)
	}
	if pool != nil {
		pool.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a private registry so tests can create it repeatedly.
func setupMetrics() (*prometheus.Registry, http.Handler, *metrics.MessagingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMessagingMetrics(reg)
	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

func connectPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *pgxpool.Pool {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Warn("postgres not available", "error", err)
		return nil
	}
	return pool
}

func dedupeDeps(rdb *redis.Client, pool *pgxpool.Pool, awsCfg *aws.Config) bootstrap.DedupeDeps {
	deps := bootstrap.DedupeDeps{Postgres: pool}
	if rdb != nil {
		deps.Redis = rdb
	}
	if awsCfg != nil {
		deps.DynamoDB = dynamodb.NewFromConfig(*awsCfg)
	}
	return deps
}

// setupConversation returns the webhook's publisher and, in memory-queue mode,
// the in-process worker that drains it. With SQS the worker runs in
// cmd/conversation-worker instead.
func setupConversation(cfg *appconfig.Config, awsCfg *aws.Config, conv *bootstrap.Conversation, deduper events.Deduper, logger *logging.Logger) (*conversation.Publisher, *conversation.Worker) {
	if cfg.UseMemoryQueue || awsCfg == nil {
		queue := conversation.NewMemoryQueue(1024, conversation.WithPartitions(cfg.WorkerCount))
		worker := conversation.NewWorker(conv.Dispatcher, queue, logger,
			conversation.WithJobTimeout(cfg.JobTimeout),
			conversation.WithProcessedStore(deduper),
		)
		return conversation.NewPublisher(queue, logger), worker
	}
	queue := conversation.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.ConversationQueueURL)
	return conversation.NewPublisher(queue, logger), nil
}

func setupScheduler(cfg *appconfig.Config, conv *bootstrap.Conversation, pool *pgxpool.Pool, limiter *httpmiddleware.RateLimiter, logger *logging.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(logger)

	if cfg.ConversationTTL > 0 {
		if err := sched.Add(scheduler.SweepJob(cfg.SweepSchedule, conv.Dispatcher, logger)); err != nil {
			return nil, err
		}
	}
	if limiter != nil {
		if err := sched.Add(scheduler.Job{
			Name: "rate_limiter_evict",
			Spec: "@every 10m",
			Run: func(context.Context) error {
				limiter.Evict(10 * time.Minute)
				return nil
			},
		}); err != nil {
			return nil, err
		}
	}
	if pool != nil && cfg.DedupeBackend == bootstrap.DedupePostgres {
		store := events.NewProcessedStore(pool)
		if err := sched.Add(scheduler.Job{
			Name: "processed_events_purge",
			Spec: "@hourly",
			Run: func(ctx context.Context) error {
				n, err := store.Purge(ctx, cfg.DedupeRetention)
				if err == nil && n > 0 {
					logger.Info("purged processed events", "count", n)
				}
				return err
			},
		}); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func healthChecks(rdb *redis.Client, pool *pgxpool.Pool) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	return checks
}

func waitForWorker(ctx context.Context, worker *conversation.Worker, logger *logging.Logger) {
	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("conversation worker stopped")
	case <-ctx.Done():
		logger.Error("conversation worker shutdown timed out", "error", ctx.Err())
	}
}
