package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem is one resolved row of a sales order.
type OrderLineItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ItemID           uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	LegacyLineItemID string          `gorm:"column:legacy_line_item_id"`
	SKU              string          `gorm:"column:sku"`
	Name             string          `gorm:"column:name;not null"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null;default:0"`
	Rate             decimal.Decimal `gorm:"column:rate;type:numeric(14,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
