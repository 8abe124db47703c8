package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

// Store is the identity-keyed write surface the reconciler needs. Create and
// Update leave the persisted id on the record.
type Store[T any] interface {
	FindExisting(ctx context.Context, record *T) (uuid.UUID, bool, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, id uuid.UUID, record *T) error
}

// ChildReplacer swaps a parent's sub-entities for the ones on record.
type ChildReplacer[T any] func(ctx context.Context, record *T) error

// WriteScope runs fn against a store and child replacer that share one
// transaction. An error from fn rolls the whole record back.
type WriteScope[T any] func(ctx context.Context, fn func(store Store[T], children ChildReplacer[T]) error) error

// RecordError is one record that could not be written.
type RecordError struct {
	Key string
	Err error
}

func (e RecordError) String() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

// ReconcileResult counts what a batch upsert did.
type ReconcileResult struct {
	Created int
	Updated int
	Errors  []RecordError
}

// Reconciler upserts normalized records by identity key.
type Reconciler[T any] struct {
	store    Store[T]
	children ChildReplacer[T]
	scope    WriteScope[T]
	key      func(*T) string
	logg     *logger.Logger
}

func NewReconciler[T any](store Store[T], children ChildReplacer[T], key func(*T) string, logg *logger.Logger) (*Reconciler[T], error) {
	if store == nil {
		return nil, errors.New("store required")
	}
	if key == nil {
		return nil, errors.New("key func required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Reconciler[T]{store: store, children: children, key: key, logg: logg}, nil
}

// WithScope makes every record write go through scope. The store and children
// passed to NewReconciler are then unused.
func (r *Reconciler[T]) WithScope(scope WriteScope[T]) *Reconciler[T] {
	r.scope = scope
	return r
}

// Upsert writes every record. A failing record is collected in Errors and
// never stops the batch. A parent and its sub-entities are written together:
// when the replace fails the parent write is undone and the record counts
// only as an error.
func (r *Reconciler[T]) Upsert(ctx context.Context, records []*T) ReconcileResult {
	var result ReconcileResult
	for _, record := range records {
		if record == nil {
			continue
		}

		created, err := r.write(ctx, record)
		if err != nil {
			r.fail(ctx, &result, r.key(record), err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result
}

func (r *Reconciler[T]) write(ctx context.Context, record *T) (created bool, err error) {
	if r.scope == nil {
		return upsertOne(ctx, r.store, r.children, record)
	}
	err = r.scope(ctx, func(store Store[T], children ChildReplacer[T]) error {
		var err error
		created, err = upsertOne(ctx, store, children, record)
		return err
	})
	return created, err
}

func upsertOne[T any](ctx context.Context, store Store[T], children ChildReplacer[T], record *T) (created bool, err error) {
	id, found, err := store.FindExisting(ctx, record)
	if err != nil {
		return false, fmt.Errorf("find existing: %w", err)
	}
	if found {
		if err := store.Update(ctx, id, record); err != nil {
			return false, fmt.Errorf("update: %w", err)
		}
	} else {
		if err := store.Create(ctx, record); err != nil {
			return false, fmt.Errorf("create: %w", err)
		}
		created = true
	}
	if children != nil {
		if err := children(ctx, record); err != nil {
			return false, fmt.Errorf("replace children: %w", err)
		}
	}
	return created, nil
}

func (r *Reconciler[T]) fail(ctx context.Context, result *ReconcileResult, key string, err error) {
	result.Errors = append(result.Errors, RecordError{Key: key, Err: err})
	fields := pkgerrors.Dump(err).LogFields()
	fields["external_id"] = key
	r.logg.Error(r.logg.WithFields(ctx, fields), "record reconcile failed", err)
}
