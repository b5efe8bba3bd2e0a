package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/premiumcar-router/internal/config"
	"github.com/wolfman30/premiumcar-router/internal/events"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// Dedupe backends accepted by DEDUPE_BACKEND.
const (
	DedupeMemory   = "memory"
	DedupeRedis    = "redis"
	DedupePostgres = "postgres"
	DedupeDynamoDB = "dynamodb"
	DedupeNone     = "none"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens a pgx pool, or returns nil when DATABASE_URL is unset.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// DedupeDeps carries the already-built clients a deduper can sit on.
type DedupeDeps struct {
	Redis    redis.Cmdable
	Postgres *pgxpool.Pool
	DynamoDB *dynamodb.Client
}

// BuildDeduper picks the webhook dedupe backend named by DEDUPE_BACKEND.
// A backend whose client is missing is a configuration error rather than a
// silent downgrade.
func BuildDeduper(cfg *appconfig.Config, deps DedupeDeps, logger *logging.Logger) (events.Deduper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.DedupeBackend))
	switch backend {
	case "", DedupeMemory:
		logger.Info("webhook dedupe using process memory", "retention", cfg.DedupeRetention.String())
		return events.NewMemoryStore(cfg.DedupeRetention), nil
	case DedupeRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("bootstrap: dedupe backend %q needs REDIS_ADDR", backend)
		}
		return events.NewRedisStore(deps.Redis, cfg.DedupeRetention), nil
	case DedupePostgres:
		if deps.Postgres == nil {
			return nil, fmt.Errorf("bootstrap: dedupe backend %q needs DATABASE_URL", backend)
		}
		return events.NewProcessedStore(deps.Postgres), nil
	case DedupeDynamoDB:
		if deps.DynamoDB == nil {
			return nil, fmt.Errorf("bootstrap: dedupe backend %q needs an AWS config", backend)
		}
		if strings.TrimSpace(cfg.ProcessedEventsTable) == "" {
			return nil, fmt.Errorf("bootstrap: dedupe backend %q needs PROCESSED_EVENTS_TABLE", backend)
		}
		return events.NewDynamoStore(deps.DynamoDB, cfg.ProcessedEventsTable, cfg.DedupeRetention), nil
	case DedupeNone:
		logger.Warn("webhook dedupe disabled; redelivered messages will be processed again")
		return events.Noop{}, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown dedupe backend %q", backend)
	}
}
