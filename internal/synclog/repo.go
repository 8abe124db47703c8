// Package synclog stores the append-only record of entity sync runs.
package synclog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/pagination"
)

// Repository appends and reads sync log entries. Entries are never updated.
type Repository interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
	Latest(ctx context.Context, entity enums.SyncEntity) (*models.SyncLogEntry, error)
	LatestSuccess(ctx context.Context, entity enums.SyncEntity) (*models.SyncLogEntry, error)
	List(ctx context.Context, entity enums.SyncEntity, params pagination.Params) (ListResult, error)
}

// ListResult is one page of entries plus the cursor for the next page.
type ListResult struct {
	Entries    []models.SyncLogEntry `json:"entries"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, entry *models.SyncLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Latest(ctx context.Context, entity enums.SyncEntity) (*models.SyncLogEntry, error) {
	return r.latest(ctx, r.db.WithContext(ctx).Where("entity_type = ?", entity))
}

func (r *repository) LatestSuccess(ctx context.Context, entity enums.SyncEntity) (*models.SyncLogEntry, error) {
	return r.latest(ctx, r.db.WithContext(ctx).Where("entity_type = ? AND status = ?", entity, enums.SyncStatusSuccess))
}

func (r *repository) latest(_ context.Context, query *gorm.DB) (*models.SyncLogEntry, error) {
	var entry models.SyncLogEntry
	err := query.Order("synced_at DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns a page of entries for entity, newest first.
func (r *repository) List(ctx context.Context, entity enums.SyncEntity, params pagination.Params) (ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Where("entity_type = ?", entity)
	if cursor != nil {
		query = query.Where("synced_at < ? OR (synced_at = ? AND id < ?)", cursor.At, cursor.At, cursor.ID)
	}
	var entries []models.SyncLogEntry
	err = query.
		Order("synced_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&entries).Error
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Entries: entries}
	if len(entries) > limit {
		result.Entries = entries[:limit]
		last := result.Entries[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{At: last.SyncedAt, ID: last.ID})
	}
	return result, nil
}
