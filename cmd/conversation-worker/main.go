package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/premiumcar-router/cmd/mainconfig"
	"github.com/wolfman30/premiumcar-router/internal/app/bootstrap"
	appconfig "github.com/wolfman30/premiumcar-router/internal/config"
	"github.com/wolfman30/premiumcar-router/internal/conversation"
	"github.com/wolfman30/premiumcar-router/internal/observability/metrics"
	"github.com/wolfman30/premiumcar-router/internal/scheduler"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.ConversationQueueURL == "" {
		logger.Error("CONVERSATION_QUEUE_URL is required for the standalone worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var deps bootstrap.DedupeDeps
	switch cfg.DedupeBackend {
	case bootstrap.DedupeRedis:
		if rdb := bootstrap.BuildRedisClient(ctx, cfg, logger, true); rdb != nil {
			defer rdb.Close()
			deps.Redis = rdb
		}
	case bootstrap.DedupePostgres:
		pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect postgres", "error", err)
			os.Exit(1)
		}
		if pool != nil {
			defer pool.Close()
			deps.Postgres = pool
		}
	case bootstrap.DedupeDynamoDB:
		deps.DynamoDB = dynamodb.NewFromConfig(awsConfig)
	}
	deduper, err := bootstrap.BuildDeduper(cfg, deps, logger)
	if err != nil {
		logger.Error("failed to build deduper", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	conv, err := bootstrap.BuildDispatcher(ctx, cfg, bootstrap.DispatcherDeps{
		AWS:       &awsConfig,
		Registry:  registry,
		Messaging: metrics.NewMessagingMetrics(registry),
	}, logger)
	if err != nil {
		logger.Error("failed to wire conversation dispatcher", "error", err)
		os.Exit(1)
	}
	defer func() { _ = conv.Close() }()

	queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.ConversationQueueURL)
	worker := conversation.NewWorker(
		conv.Dispatcher,
		queue,
		logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
		conversation.WithJobTimeout(cfg.JobTimeout),
		conversation.WithProcessedStore(deduper),
	)

	sched := scheduler.New(logger)
	if cfg.ConversationTTL > 0 {
		if err := sched.Add(scheduler.SweepJob(cfg.SweepSchedule, conv.Dispatcher, logger)); err != nil {
			logger.Error("invalid sweep schedule", "error", err)
			os.Exit(1)
		}
	}
	sched.Start()

	worker.Start(ctx)
	logger.Info("conversation worker started", "requested_workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	sched.Stop()
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
}
