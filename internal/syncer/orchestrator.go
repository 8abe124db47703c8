package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/metrics"
	"github.com/angelmondragon/zohosync-backend/pkg/types"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

const (
	modifiedSinceParam = "last_modified_time"
	maxRecordErrors    = 50
	defaultLockTTL     = 30 * time.Minute
)

// EntityFetcher fetches every page of an entity.
type EntityFetcher interface {
	FetchAll(ctx context.Context, entity enums.SyncEntity, params url.Values) FetchResult
}

// LogStore is the append-only run history.
type LogStore interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
	Latest(ctx context.Context, entity enums.SyncEntity) (*models.SyncLogEntry, error)
	LatestSuccess(ctx context.Context, entity enums.SyncEntity) (*models.SyncLogEntry, error)
}

// RunMetrics records per-entity throughput.
type RunMetrics interface {
	AddRecords(entity, outcome string, n int)
	ObserveRun(entity, status string, duration time.Duration, finishedAt time.Time)
}

// OrchestratorParams wires an Orchestrator.
type OrchestratorParams struct {
	Fetcher   EntityFetcher
	Pipelines []Pipeline
	Logs      LogStore
	Locker    EntityLocker
	Metrics   RunMetrics
	Notifier  Notifier
	Logger    *logger.Logger

	// Incremental narrows each fetch to records modified since the start of
	// the last complete run minus Overlap.
	Incremental bool
	Overlap     time.Duration
	LockTTL     time.Duration
	Now         func() time.Time
}

// EntityResult is the logged outcome of one entity run.
type EntityResult struct {
	Entity  enums.SyncEntity  `json:"entity"`
	RunID   string            `json:"run_id"`
	Status  enums.SyncStatus  `json:"status"`
	Details types.SyncDetails `json:"details"`
	Error   string            `json:"error,omitempty"`
}

// FullSyncResult splits a multi-entity run into succeeded and failed entities.
type FullSyncResult struct {
	RunID   string         `json:"run_id"`
	Success []EntityResult `json:"success"`
	Failed  []EntityResult `json:"failed"`
}

// LastRunInfo is the status surface for one entity.
type LastRunInfo struct {
	Entity        enums.SyncEntity   `json:"entity"`
	Status        enums.SyncStatus   `json:"status,omitempty"`
	SyncedAt      *time.Time         `json:"synced_at,omitempty"`
	LastSuccessAt *time.Time         `json:"last_success_at,omitempty"`
	Details       *types.SyncDetails `json:"details,omitempty"`
	State         enums.RunState     `json:"state,omitempty"`
	Stale         bool               `json:"stale"`
}

// Orchestrator runs entities through fetch, transform and reconcile and
// always leaves a log entry behind.
type Orchestrator struct {
	fetcher     EntityFetcher
	pipelines   map[enums.SyncEntity]Pipeline
	logs        LogStore
	locker      EntityLocker
	metrics     RunMetrics
	notifier    Notifier
	logg        *logger.Logger
	incremental bool
	overlap     time.Duration
	lockTTL     time.Duration
	now         func() time.Time

	mu     sync.Mutex
	states map[enums.SyncEntity]enums.RunState
}

func NewOrchestrator(p OrchestratorParams) (*Orchestrator, error) {
	if p.Fetcher == nil {
		return nil, errors.New("fetcher required")
	}
	if p.Logs == nil {
		return nil, errors.New("log store required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	pipelines := make(map[enums.SyncEntity]Pipeline, len(p.Pipelines))
	for _, pipeline := range p.Pipelines {
		if pipeline == nil {
			continue
		}
		if _, dup := pipelines[pipeline.Entity()]; dup {
			return nil, fmt.Errorf("duplicate pipeline for %s", pipeline.Entity())
		}
		pipelines[pipeline.Entity()] = pipeline
	}
	if p.Locker == nil {
		p.Locker = NewLocalEntityLocker()
	}
	if p.LockTTL <= 0 {
		p.LockTTL = defaultLockTTL
	}
	if p.Overlap < 0 {
		p.Overlap = 0
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Orchestrator{
		fetcher:     p.Fetcher,
		pipelines:   pipelines,
		logs:        p.Logs,
		locker:      p.Locker,
		metrics:     p.Metrics,
		notifier:    p.Notifier,
		logg:        p.Logger,
		incremental: p.Incremental,
		overlap:     p.Overlap,
		lockTTL:     p.LockTTL,
		now:         p.Now,
		states:      map[enums.SyncEntity]enums.RunState{},
	}, nil
}

// RunFullSync syncs every entity in dependency order. It never fails as a
// whole; callers inspect Failed.
func (o *Orchestrator) RunFullSync(ctx context.Context, trigger enums.SyncTrigger) FullSyncResult {
	runID := uuid.NewString()
	ctx = o.logg.WithRunID(ctx, runID)
	o.logg.Info(o.logg.WithField(ctx, "trigger", trigger.String()), "full sync started")

	result := FullSyncResult{RunID: runID, Success: []EntityResult{}, Failed: []EntityResult{}}
	for _, entity := range enums.SyncOrder {
		res := o.run(ctx, runID, entity, trigger)
		if res.Status == enums.SyncStatusSuccess {
			result.Success = append(result.Success, res)
		} else {
			result.Failed = append(result.Failed, res)
		}
	}

	o.logg.Info(o.logg.WithFields(ctx, map[string]any{
		"succeeded": len(result.Success),
		"failed":    len(result.Failed),
	}), "full sync finished")
	return result
}

// SyncEntity runs a single entity. The returned error is non-nil only for an
// unknown entity; run failures are reported in the result.
func (o *Orchestrator) SyncEntity(ctx context.Context, entity enums.SyncEntity, trigger enums.SyncTrigger) (EntityResult, error) {
	if !entity.IsValid() {
		return EntityResult{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown entity %q", entity))
	}
	runID := uuid.NewString()
	return o.run(o.logg.WithRunID(ctx, runID), runID, entity, trigger), nil
}

// LastSyncStatus reports the latest logged run per entity. staleAfter marks
// entities without a successful run inside that window; zero disables it.
func (o *Orchestrator) LastSyncStatus(ctx context.Context, staleAfter time.Duration) (map[enums.SyncEntity]LastRunInfo, error) {
	now := o.now().UTC()
	out := make(map[enums.SyncEntity]LastRunInfo, len(enums.SyncOrder))
	for _, entity := range enums.SyncOrder {
		info := LastRunInfo{Entity: entity, State: o.state(entity)}

		latest, err := o.logs.Latest(ctx, entity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load latest sync log")
		}
		if latest != nil {
			syncedAt := latest.SyncedAt.UTC()
			details := latest.Details
			info.Status = latest.Status
			info.SyncedAt = &syncedAt
			info.Details = &details
		}

		success := latest
		if latest != nil && latest.Status != enums.SyncStatusSuccess {
			if success, err = o.logs.LatestSuccess(ctx, entity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load last successful sync log")
			}
		}
		if success != nil {
			at := success.SyncedAt.UTC()
			info.LastSuccessAt = &at
		}
		if staleAfter > 0 {
			info.Stale = info.LastSuccessAt == nil || now.Sub(*info.LastSuccessAt) > staleAfter
		}
		out[entity] = info
	}
	return out, nil
}

// RunStates returns the live state of entities with a run in progress.
func (o *Orchestrator) RunStates() map[enums.SyncEntity]enums.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[enums.SyncEntity]enums.RunState, len(o.states))
	for entity, state := range o.states {
		if !state.Terminal() {
			out[entity] = state
		}
	}
	return out
}

func (o *Orchestrator) state(entity enums.SyncEntity) enums.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[entity]
}

func (o *Orchestrator) setState(ctx context.Context, entity enums.SyncEntity, state enums.RunState) {
	o.mu.Lock()
	o.states[entity] = state
	o.mu.Unlock()
	o.logg.Debug(o.logg.WithField(ctx, "state", state.String()), "sync state changed")
}

// run drives one entity to the logged state no matter how the stages end.
func (o *Orchestrator) run(ctx context.Context, runID string, entity enums.SyncEntity, trigger enums.SyncTrigger) EntityResult {
	ctx = o.logg.WithEntity(ctx, entity.String())
	started := o.now()
	startedAt := started.UTC()
	details := types.SyncDetails{Trigger: trigger.String(), StartedAt: &startedAt}
	o.setState(ctx, entity, enums.RunStatePending)

	err := o.execute(ctx, entity, &details)

	finished := o.now()
	details.DurationMS = finished.Sub(started).Milliseconds()
	status := enums.SyncStatusSuccess
	if err != nil {
		status = enums.SyncStatusError
		details.Error = err.Error()
	}

	result := EntityResult{Entity: entity, RunID: runID, Status: status, Details: details}
	if err != nil {
		result.Error = err.Error()
	}

	o.writeLog(ctx, runID, result, finished)
	o.setState(ctx, entity, enums.RunStateLogged)
	o.observe(result, finished.Sub(started), finished)
	o.notify(ctx, result, trigger, finished)

	logCtx := o.logg.WithFields(ctx, map[string]any{
		"status":      status.String(),
		"mode":        details.Mode,
		"fetched":     details.Fetched,
		"dropped":     details.Dropped,
		"created":     details.Created,
		"updated":     details.Updated,
		"errors":      details.Errors,
		"duration_ms": details.DurationMS,
	})
	if err != nil {
		o.logg.Error(logCtx, "entity sync failed", err)
	} else {
		o.logg.Info(logCtx, "entity sync finished")
	}
	return result
}

// execute runs the stages. A fetch error still lets the partial batch through
// before the entity is marked failed.
func (o *Orchestrator) execute(ctx context.Context, entity enums.SyncEntity, details *types.SyncDetails) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logg.Error(o.logg.WithField(ctx, "stack", string(debug.Stack())), "entity sync panicked", fmt.Errorf("%v", r))
			err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	pipeline, ok := o.pipelines[entity]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no pipeline registered for %s", entity))
	}

	unlock, err := o.locker.Lock(ctx, entity, o.lockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if unlockErr := unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			o.logg.Warn(o.logg.WithField(ctx, "error", unlockErr.Error()), "release sync lock failed")
		}
	}()

	params, err := o.fetchParams(ctx, entity, details)
	if err != nil {
		return err
	}

	o.setState(ctx, entity, enums.RunStateFetching)
	fetched := o.fetcher.FetchAll(ctx, entity, params)
	details.Fetched = len(fetched.Records)
	details.Pages = fetched.Pages
	details.Truncated = fetched.Truncated
	if fetched.Err != nil {
		details.FetchError = fetched.Err.Error()
	}

	stage := pipeline.Process(ctx, fetched.Records, func(state enums.RunState) {
		o.setState(ctx, entity, state)
	})
	details.Transformed = stage.Transformed
	details.Dropped = stage.Dropped
	details.Skipped = stage.Skipped
	details.Created = stage.Reconcile.Created
	details.Updated = stage.Reconcile.Updated
	details.Errors = len(stage.Reconcile.Errors)
	for i, recErr := range stage.Reconcile.Errors {
		if i == maxRecordErrors {
			break
		}
		details.RecordErrs = append(details.RecordErrs, recErr.String())
	}

	if fetched.Err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fetched.Err, "fetch incomplete")
	}
	return nil
}

// fetchParams narrows the fetch to the window since the previous run started,
// but only when that run was complete. Anything less resets to a full fetch so
// records dropped or missed earlier are picked up again.
func (o *Orchestrator) fetchParams(ctx context.Context, entity enums.SyncEntity, details *types.SyncDetails) (url.Values, error) {
	params := url.Values{}
	details.Mode = types.FetchModeFull

	degraded, err := o.dependencyDegraded(ctx, entity)
	if err != nil {
		return nil, err
	}
	details.DependencyDegraded = degraded

	if !o.incremental {
		return params, nil
	}
	last, err := o.logs.Latest(ctx, entity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load last sync log")
	}
	switch {
	case last == nil:
		details.FullReason = "no previous run"
	case last.Status != enums.SyncStatusSuccess:
		details.FullReason = "previous run failed"
	case !last.Details.Complete():
		details.FullReason = "previous run incomplete"
	}
	if details.FullReason != "" {
		o.logg.Info(o.logg.WithField(ctx, "reason", details.FullReason), "incremental window reset")
		return params, nil
	}

	since := watermark(last).Add(-o.overlap).UTC()
	params.Set(modifiedSinceParam, zoho.FormatTime(since))
	details.Mode = types.FetchModeIncremental
	details.Since = since.Format(time.RFC3339)
	return params, nil
}

// dependencyDegraded reports whether any entity this one resolves against has
// no complete, successful latest run.
func (o *Orchestrator) dependencyDegraded(ctx context.Context, entity enums.SyncEntity) (bool, error) {
	for _, dep := range entity.Dependencies() {
		last, err := o.logs.Latest(ctx, dep)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dependency sync log")
		}
		if last == nil || last.Status != enums.SyncStatusSuccess || !last.Details.Complete() {
			return true, nil
		}
	}
	return false, nil
}

// watermark is where the previous run's window ended. Entries written before
// start times were recorded fall back to the log time.
func watermark(entry *models.SyncLogEntry) time.Time {
	if at := entry.Details.StartedAt; at != nil && !at.IsZero() {
		return *at
	}
	return entry.SyncedAt
}

func (o *Orchestrator) writeLog(ctx context.Context, runID string, result EntityResult, finished time.Time) {
	parsed, err := uuid.Parse(runID)
	if err != nil {
		parsed = uuid.New()
	}
	entry := &models.SyncLogEntry{
		RunID:      parsed,
		EntityType: result.Entity,
		Status:     result.Status,
		Details:    result.Details,
		SyncedAt:   finished.UTC(),
	}
	if err := o.logs.Append(context.WithoutCancel(ctx), entry); err != nil {
		o.logg.Error(ctx, "append sync log failed", err)
	}
}

func (o *Orchestrator) observe(result EntityResult, duration time.Duration, finished time.Time) {
	if o.metrics == nil {
		return
	}
	entity := result.Entity.String()
	o.metrics.AddRecords(entity, metrics.OutcomeFetched, result.Details.Fetched)
	o.metrics.AddRecords(entity, metrics.OutcomeDropped, result.Details.Dropped)
	o.metrics.AddRecords(entity, metrics.OutcomeCreated, result.Details.Created)
	o.metrics.AddRecords(entity, metrics.OutcomeUpdated, result.Details.Updated)
	o.metrics.AddRecords(entity, metrics.OutcomeError, result.Details.Errors)
	o.metrics.ObserveRun(entity, result.Status.String(), duration, finished)
}

func (o *Orchestrator) notify(ctx context.Context, result EntityResult, trigger enums.SyncTrigger, finished time.Time) {
	if o.notifier == nil {
		return
	}
	event := RunEvent{
		RunID:      result.RunID,
		Entity:     result.Entity,
		Status:     result.Status,
		Trigger:    trigger,
		Details:    result.Details,
		FinishedAt: finished.UTC(),
	}
	if err := o.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		o.logg.Warn(o.logg.WithField(ctx, "error", err.Error()), "sync notification failed")
	}
}
