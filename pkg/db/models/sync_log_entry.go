package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/types"
)

// SyncLogEntry is the append-only outcome of one entity run.
type SyncLogEntry struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	RunID      uuid.UUID         `gorm:"column:run_id;type:uuid;not null;index"`
	EntityType enums.SyncEntity  `gorm:"column:entity_type;type:text;not null;index:idx_sync_logs_entity_synced,priority:1"`
	Status     enums.SyncStatus  `gorm:"column:status;type:text;not null"`
	Details    types.SyncDetails `gorm:"column:details;type:jsonb;serializer:json;not null"`
	SyncedAt   time.Time         `gorm:"column:synced_at;not null;index:idx_sync_logs_entity_synced,priority:2"`
}

func (SyncLogEntry) TableName() string {
	return "sync_logs"
}
