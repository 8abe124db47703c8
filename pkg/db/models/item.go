package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
)

// Item mirrors an upstream inventory item. NetStockLevel is always
// GrossStockLevel minus CommittedStock as of the last write.
type Item struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	LegacyItemID      string             `gorm:"column:legacy_item_id;not null;uniqueIndex" validate:"required"`
	SKU               string             `gorm:"column:sku;index"`
	Name              string             `gorm:"column:name;not null" validate:"required"`
	Description       *string            `gorm:"column:description"`
	Unit              string             `gorm:"column:unit"`
	BrandID           *uuid.UUID         `gorm:"column:brand_id;type:uuid"`
	GrossStockLevel   decimal.Decimal    `gorm:"column:gross_stock_level;type:numeric(14,3);not null;default:0"`
	CommittedStock    decimal.Decimal    `gorm:"column:committed_stock;type:numeric(14,3);not null;default:0"`
	NetStockLevel     decimal.Decimal    `gorm:"column:net_stock_level;type:numeric(14,3);not null;default:0"`
	PurchasePrice     decimal.Decimal    `gorm:"column:purchase_price;type:numeric(14,2);not null;default:0"`
	RetailPrice       decimal.Decimal    `gorm:"column:retail_price;type:numeric(14,2);not null;default:0"`
	Status            enums.RecordStatus `gorm:"column:status;type:text;not null;default:'active'" validate:"required"`
	UpstreamCreatedAt *time.Time         `gorm:"column:upstream_created_at"`
	UpstreamUpdatedAt *time.Time         `gorm:"column:upstream_updated_at"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// RecomputeNetStock derives the net level from its inputs.
func (i *Item) RecomputeNetStock() {
	i.NetStockLevel = i.GrossStockLevel.Sub(i.CommittedStock)
}
