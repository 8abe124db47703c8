package syncer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

// Transformer normalizes one raw upstream record. An error drops the record;
// an error wrapping pkgerrors.ErrFiltered skips it instead.
type Transformer[T any] interface {
	Transform(ctx context.Context, raw json.RawMessage) (*T, error)
}

// StageResult is what transform and reconcile did with one fetched batch.
type StageResult struct {
	Transformed int
	Dropped     int
	Skipped     int
	Reconcile   ReconcileResult
}

// Pipeline transforms and reconciles the raw records of one entity.
type Pipeline interface {
	Entity() enums.SyncEntity
	Process(ctx context.Context, raws []json.RawMessage, onState func(enums.RunState)) StageResult
}

// EntityPipeline binds a typed transformer to its reconciler.
type EntityPipeline[T any] struct {
	entity      enums.SyncEntity
	transformer Transformer[T]
	reconciler  *Reconciler[T]
	logg        *logger.Logger
}

// PipelineParams wires an EntityPipeline.
type PipelineParams[T any] struct {
	Entity      enums.SyncEntity
	Transformer Transformer[T]
	Store       Store[T]
	Children    ChildReplacer[T]
	// Scope, when set, runs each record write in its own transaction.
	Scope  WriteScope[T]
	Key    func(*T) string
	Logger *logger.Logger
}

func NewPipeline[T any](p PipelineParams[T]) (*EntityPipeline[T], error) {
	if !p.Entity.IsValid() {
		return nil, errors.New("valid entity required")
	}
	if p.Transformer == nil {
		return nil, errors.New("transformer required")
	}
	reconciler, err := NewReconciler(p.Store, p.Children, p.Key, p.Logger)
	if err != nil {
		return nil, err
	}
	if p.Scope != nil {
		reconciler.WithScope(p.Scope)
	}
	return &EntityPipeline[T]{
		entity:      p.Entity,
		transformer: p.Transformer,
		reconciler:  reconciler,
		logg:        p.Logger,
	}, nil
}

func (p *EntityPipeline[T]) Entity() enums.SyncEntity {
	return p.entity
}

func (p *EntityPipeline[T]) Process(ctx context.Context, raws []json.RawMessage, onState func(enums.RunState)) StageResult {
	var result StageResult
	if onState == nil {
		onState = func(enums.RunState) {}
	}

	onState(enums.RunStateTransforming)
	records := make([]*T, 0, len(raws))
	for i, raw := range raws {
		record, err := p.transformer.Transform(ctx, raw)
		if errors.Is(err, pkgerrors.ErrFiltered) {
			result.Skipped++
			p.logg.Debug(p.logg.WithField(ctx, "external_id", externalID(raw)), "record skipped")
			continue
		}
		if err != nil || record == nil {
			result.Dropped++
			p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
				"index":       i,
				"external_id": externalID(raw),
				"reason":      dropReason(err),
			}), "record dropped")
			continue
		}
		records = append(records, record)
	}
	result.Transformed = len(records)

	onState(enums.RunStateReconciling)
	result.Reconcile = p.reconciler.Upsert(ctx, records)
	return result
}

func dropReason(err error) string {
	if err == nil {
		return "transformer returned no record"
	}
	return err.Error()
}

var idFields = []string{"item_id", "contact_id", "salesorder_id", "invoice_id", "package_id"}

// externalID pulls the upstream id out of a raw record for log context.
func externalID(raw json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	for _, name := range idFields {
		value, ok := fields[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(value, &n); err == nil {
			return n.String()
		}
	}
	return ""
}
