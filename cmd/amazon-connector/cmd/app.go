package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sellerops/amazon-connector/internal/cache"
	"github.com/sellerops/amazon-connector/internal/config"
	"github.com/sellerops/amazon-connector/internal/credentials"
	"github.com/sellerops/amazon-connector/internal/engine"
	"github.com/sellerops/amazon-connector/internal/fetch"
	"github.com/sellerops/amazon-connector/internal/process"
	"github.com/sellerops/amazon-connector/internal/reports"
	"github.com/sellerops/amazon-connector/internal/sink"
	"github.com/sellerops/amazon-connector/internal/spapi"
	"github.com/sellerops/amazon-connector/internal/store"
)

// app bundles the wired components shared by the serve and fetch commands.
type app struct {
	store  *store.PostgresStore
	tokens *spapi.LWATokenProvider
	cache  cache.Cache
	sinks  *sink.DualWriter
	engine *engine.Engine
}

// buildApp wires the full pipeline from config: app store, credentials,
// SP-API client with its rate gates, orchestrator, report service,
// processor, sinks and cache.
func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	st, err := store.NewPostgresStore(
		ctx,
		cfg.Database.DSN(),
		store.WithPoolSize(cfg.Database.PoolSize),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	credStore, err := credentials.NewFileStore(cfg.Amazon.CredentialFile)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	tokens := spapi.NewLWATokenProvider(
		credStore,
		spapi.WithLWATokenURL(cfg.Amazon.LWATokenURL),
		spapi.WithLWALogger(log),
	)

	apiClient, err := buildSPAPIClient(cfg, tokens, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	retry := spapi.NewRetryPolicy(
		spapi.WithMaxRetries(cfg.Amazon.Retry.MaxRetries),
		spapi.WithBaseDelay(cfg.Amazon.Retry.BaseDelay),
		spapi.WithMaxDelay(cfg.Amazon.Retry.MaxDelay),
		spapi.WithRetryLogger(log),
	)

	orch := fetch.NewOrchestrator(
		apiClient,
		tokens,
		fetch.WithRetryPolicy(retry),
		fetch.WithBatchSizing(cfg.Amazon.Batch.Initial, cfg.Amazon.Batch.Min, cfg.Amazon.Batch.Max),
		fetch.WithWorkerCeiling(cfg.Amazon.Batch.WorkerCeiling),
		fetch.WithMaxOrders(cfg.Amazon.MaxOrders),
		fetch.WithOrchestratorLogger(log),
	)

	inventory := reports.NewService(apiClient, reports.WithLogger(log))

	sinks, err := buildSinks(cfg, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	c, err := buildCache(ctx, cfg, log)
	if err != nil {
		st.Close()
		_ = sinks.Close()
		return nil, err
	}

	eng := engine.NewEngine(
		st,
		orch,
		inventory,
		process.New(process.WithLogger(log)),
		sinks,
		c,
		engine.WithLogger(log),
	)

	return &app{
		store:  st,
		tokens: tokens,
		cache:  c,
		sinks:  sinks,
		engine: eng,
	}, nil
}

func buildSPAPIClient(
	cfg *config.Config,
	tokens spapi.TokenProvider,
	log *slog.Logger,
) (*spapi.Client, error) {
	ordersBucket, err := spapi.NewTokenBucket(
		spapi.EndpointOrders,
		cfg.Amazon.Orders.PerSecond,
		cfg.Amazon.Orders.Burst,
	)
	if err != nil {
		return nil, fmt.Errorf("configuring orders rate limit: %w", err)
	}

	itemsBucket, err := spapi.NewTokenBucket(
		spapi.EndpointItems,
		cfg.Amazon.Items.PerSecond,
		cfg.Amazon.Items.Burst,
	)
	if err != nil {
		return nil, fmt.Errorf("configuring items rate limit: %w", err)
	}

	ordersBreaker := spapi.NewCircuitBreaker(
		spapi.EndpointOrders,
		cfg.Amazon.Breaker.FailureThreshold,
		cfg.Amazon.Breaker.RecoveryTimeout,
	)
	itemsBreaker := spapi.NewCircuitBreaker(
		spapi.EndpointItems,
		cfg.Amazon.Breaker.FailureThreshold,
		cfg.Amazon.Breaker.RecoveryTimeout,
	)

	return spapi.NewClient(
		tokens,
		spapi.WithClientHTTPClient(&http.Client{Timeout: cfg.Amazon.RequestTimeout}),
		spapi.WithOrdersGate(ordersBucket, ordersBreaker),
		spapi.WithItemsGate(itemsBucket, itemsBreaker),
		spapi.WithClientLogger(log),
	)
}

func buildSinks(cfg *config.Config, log *slog.Logger) (*sink.DualWriter, error) {
	var writers []sink.Writer

	if cfg.Sinks.Warehouse.Enabled {
		w, err := sink.NewSQLWriter("warehouse", cfg.Sinks.Warehouse.DSN(), sink.WithSQLLogger(log))
		if err != nil {
			return nil, fmt.Errorf("opening warehouse sink: %w", err)
		}
		writers = append(writers, w)
	}

	if cfg.Sinks.Analytics.Enabled {
		w, err := sink.NewSQLWriter("analytics", cfg.Sinks.Analytics.DSN(), sink.WithSQLLogger(log))
		if err != nil {
			return nil, fmt.Errorf("opening analytics sink: %w", err)
		}
		writers = append(writers, w)
	}

	return sink.NewDualWriter(log, writers...), nil
}

func buildCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.Cache, error) {
	if cfg.Cache.Backend == "redis" {
		c, err := cache.NewRedis(
			ctx,
			cfg.Cache.Redis.Addr,
			cfg.Cache.Redis.Password,
			cfg.Cache.Redis.DB,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithRedisLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		return c, nil
	}

	return cache.NewMemory(cache.WithMemoryTTL(cfg.Cache.TTL)), nil
}

// close releases the app's connections in reverse wiring order.
func (a *app) close(log *slog.Logger) {
	if err := a.cache.Close(); err != nil {
		log.Warn("closing cache", "err", err)
	}
	if err := a.sinks.Close(); err != nil {
		log.Warn("closing sinks", "err", err)
	}
	a.store.Close()
}
