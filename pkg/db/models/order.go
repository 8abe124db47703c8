package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
)

// Order mirrors an upstream sales order. LineItems are replaced wholesale on
// every sync and are written by the repository, not by gorm associations.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	LegacyOrderID string            `gorm:"column:legacy_order_id;not null;uniqueIndex" validate:"required"`
	OrderNumber   string            `gorm:"column:order_number;index"`
	ReferenceNo   *string           `gorm:"column:reference_number"`
	CustomerID    uuid.UUID         `gorm:"column:customer_id;type:uuid;not null" validate:"required"`
	OrderStatus   enums.OrderStatus `gorm:"column:order_status;type:text;not null;default:'pending'" validate:"required"`
	Total         decimal.Decimal   `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	SubTotal      decimal.Decimal   `gorm:"column:sub_total;type:numeric(14,2);not null;default:0"`
	OrderDate     *time.Time        `gorm:"column:order_date"`
	ShipmentDate  *time.Time        `gorm:"column:shipment_date"`
	UpstreamAt    *time.Time        `gorm:"column:upstream_updated_at"`
	LineItems     []OrderLineItem   `gorm:"-"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
