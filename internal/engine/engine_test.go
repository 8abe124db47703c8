package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/zohosync-backend/pkg/config"
	"github.com/angelmondragon/zohosync-backend/pkg/db/dbtest"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		Zoho: config.ZohoConfig{
			OrganizationID: "org-1",
			ClientID:       "client",
			ClientSecret:   "secret",
			RefreshToken:   "refresh",
			APIBaseURL:     "http://127.0.0.1:1/inventory/v1",
			TokenURL:       "http://127.0.0.1:1/oauth/v2/token",
		},
		RateLimit: config.RateLimitConfig{
			BatchSize:             200,
			MaxRetries:            0,
			RequestsPerSecond:     10,
			BurstSize:             5,
			MaxRecordsPerRun:      100,
			MaxConcurrentRequests: 2,
			CircuitBreaker:        true,
			FailureThreshold:      5,
			RecoveryTime:          time.Minute,
			RequestTimeout:        time.Second,
		},
		Sync: config.SyncConfig{DefaultWarehouse: "main", LockTTL: time.Minute},
	}
}

func TestNewWiresOrchestrator(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := New(context.Background(), Params{
		Config:     testConfig(),
		DB:         dbtest.Open(t),
		Registerer: reg,
		Logger:     logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	require.NotNil(t, e.Orchestrator)
	require.NotNil(t, e.Zoho)
	require.Nil(t, e.PubSub())

	status, err := e.Orchestrator.LastSyncStatus(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, status, len(enums.SyncOrder))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNewRejectsBadRateLimits(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 0
	_, err := New(context.Background(), Params{Config: cfg, DB: dbtest.Open(t), Logger: logger.Nop()})
	require.Error(t, err)
}

func TestUnreachableUpstreamFailsEveryEntity(t *testing.T) {
	cfg := testConfig()
	e, err := New(context.Background(), Params{Config: cfg, DB: dbtest.Open(t), Logger: logger.Nop()})
	require.NoError(t, err)

	res := e.Orchestrator.RunFullSync(context.Background(), enums.SyncTriggerManual)
	require.Len(t, res.Failed, len(enums.SyncOrder))
	for _, failed := range res.Failed {
		require.NotEmpty(t, failed.Error)
	}

	latest, err := e.Logs.Latest(context.Background(), enums.SyncEntityPackages)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, enums.SyncStatusError, latest.Status)
}
