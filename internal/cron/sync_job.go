package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/zohosync-backend/internal/syncer"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

const syncJobName = "zoho_full_sync"

// FullSyncRunner runs every entity in dependency order.
type FullSyncRunner interface {
	RunFullSync(ctx context.Context, trigger enums.SyncTrigger) syncer.FullSyncResult
}

// SyncJobParams configure the scheduled full sync.
type SyncJobParams struct {
	Logger *logger.Logger
	Runner FullSyncRunner
}

type syncJob struct {
	logg   *logger.Logger
	runner FullSyncRunner
}

// NewSyncJob builds the cron job that mirrors every upstream entity.
func NewSyncJob(params SyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("full sync runner required")
	}
	return &syncJob{logg: params.Logger, runner: params.Runner}, nil
}

func (j *syncJob) Name() string { return syncJobName }

// Run fails when any entity failed; the remaining entities still ran.
func (j *syncJob) Run(ctx context.Context) error {
	result := j.runner.RunFullSync(ctx, enums.SyncTriggerSchedule)

	ctx = j.logg.WithFields(ctx, map[string]any{
		"run_id":    result.RunID,
		"succeeded": len(result.Success),
		"failed":    len(result.Failed),
	})
	j.logg.Info(ctx, "scheduled sync summary")

	var err error
	for _, failed := range result.Failed {
		err = multierr.Append(err, fmt.Errorf("%s: %s", failed.Entity, failed.Error))
	}
	return err
}
