// Package engine assembles the sync orchestrator from configuration so the
// API and the cron worker run the same pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/internal/syncer"
	"github.com/angelmondragon/zohosync-backend/internal/synclog"
	"github.com/angelmondragon/zohosync-backend/pkg/config"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/metrics"
	"github.com/angelmondragon/zohosync-backend/pkg/pubsub"
	"github.com/angelmondragon/zohosync-backend/pkg/ratelimit"
	"github.com/angelmondragon/zohosync-backend/pkg/redis"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

// Params wires an Engine. Redis and Registerer are optional.
type Params struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	Registerer prometheus.Registerer
	Logger     *logger.Logger
}

// Engine owns the orchestrator and the resources it opened.
type Engine struct {
	Orchestrator *syncer.Orchestrator
	Logs         synclog.Repository
	Zoho         *zoho.Client
	Gate         *ratelimit.Gate

	pubsub *pubsub.Client
}

// New builds the upstream client, the entity pipelines and the orchestrator.
func New(ctx context.Context, p Params) (*Engine, error) {
	if p.Config == nil {
		return nil, errors.New("config required")
	}
	if p.DB == nil {
		return nil, errors.New("db required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	cfg, logg := p.Config, p.Logger

	gate, err := ratelimit.New(gateOptions(cfg.RateLimit, metrics.NewGateMetrics(p.Registerer)))
	if err != nil {
		return nil, fmt.Errorf("rate gate: %w", err)
	}

	tokens, err := newTokenCache(cfg.Zoho, p.Redis, logg)
	if err != nil {
		return nil, err
	}

	client, err := zoho.NewClient(zoho.ClientParams{
		BaseURL:        cfg.Zoho.APIBaseURL,
		OrganizationID: cfg.Zoho.OrganizationID,
		Gate:           gate,
		Tokens:         tokens,
		Logger:         logg,
		MaxRetries:     cfg.RateLimit.MaxRetries,
		RequestTimeout: cfg.RateLimit.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("zoho client: %w", err)
	}

	fetcher, err := syncer.NewFetcher(syncer.FetcherParams{
		Client:     client,
		PerPage:    cfg.RateLimit.BatchSize,
		MaxRecords: cfg.RateLimit.MaxRecordsPerRun,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	pipelines, err := syncer.BuildPipelines(syncer.PipelineDeps{
		DB:               p.DB,
		Records:          client,
		DefaultWarehouse: cfg.Sync.DefaultWarehouse,
		LoadDetails:      cfg.Sync.LoadDetails,
		Logger:           logg,
	})
	if err != nil {
		return nil, fmt.Errorf("pipelines: %w", err)
	}

	e := &Engine{Logs: synclog.NewRepository(p.DB), Zoho: client, Gate: gate}

	var notifier syncer.Notifier
	if cfg.PubSub.Enabled() {
		ps, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		e.pubsub = ps
		notifier = syncer.NewPubSubNotifier(ps)
	}

	var locker syncer.EntityLocker
	if p.Redis != nil {
		locker = syncer.NewRedisEntityLocker(p.Redis.Raw(), p.Redis.LockKey)
	} else {
		logg.Warn(ctx, "redis not configured, sync locks are process local")
		locker = syncer.NewLocalEntityLocker()
	}

	orchestrator, err := syncer.NewOrchestrator(syncer.OrchestratorParams{
		Fetcher:     fetcher,
		Pipelines:   pipelines,
		Logs:        e.Logs,
		Locker:      locker,
		Metrics:     metrics.NewSyncMetrics(p.Registerer),
		Notifier:    notifier,
		Logger:      logg,
		Incremental: cfg.Sync.Incremental,
		Overlap:     cfg.Sync.Overlap,
		LockTTL:     cfg.Sync.LockTTL,
	})
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	e.Orchestrator = orchestrator
	return e, nil
}

// PubSub returns the notification client, or nil when events are disabled.
func (e *Engine) PubSub() *pubsub.Client {
	return e.pubsub
}

// Close releases the notification client.
func (e *Engine) Close() error {
	if e.pubsub == nil {
		return nil
	}
	return e.pubsub.Close()
}

func gateOptions(cfg config.RateLimitConfig, observer ratelimit.Observer) ratelimit.Options {
	return ratelimit.Options{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.BurstSize,
		MaxConcurrent:     cfg.MaxConcurrentRequests,
		BaseDelay:         cfg.BaseDelay,
		Adaptive:          cfg.AdaptiveThrottling,
		SlowThreshold:     cfg.SlowThreshold,
		CircuitBreaker:    cfg.CircuitBreaker,
		FailureThreshold:  cfg.FailureThreshold,
		RecoveryTime:      cfg.RecoveryTime,
		Observer:          observer,
	}
}

func newTokenCache(cfg config.ZohoConfig, redisClient *redis.Client, logg *logger.Logger) (*zoho.TokenCache, error) {
	refresher, err := zoho.NewOAuthRefresher(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, cfg.RefreshToken, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth refresher: %w", err)
	}
	params := zoho.TokenCacheParams{
		Refresher: refresher,
		Skew:      cfg.TokenSkew,
		Logger:    logg,
	}
	if redisClient != nil {
		params.Store = zoho.NewRedisTokenStore(redisClient, cfg.OrganizationID)
	}
	tokens, err := zoho.NewTokenCache(params)
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}
	return tokens, nil
}
