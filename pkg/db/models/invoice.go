package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
)

// Invoice mirrors an upstream invoice. Customer and order links are
// best-effort and stay NULL when they cannot be resolved.
type Invoice struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	LegacyInvoiceID string              `gorm:"column:legacy_invoice_id;not null;uniqueIndex" validate:"required"`
	InvoiceNumber   string              `gorm:"column:invoice_number"`
	CustomerID      *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	OrderID         *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	Status          enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'unpaid'" validate:"required"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	SubTotal        decimal.Decimal     `gorm:"column:sub_total;type:numeric(14,2);not null;default:0"`
	Balance         decimal.Decimal     `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	InvoiceDate     *time.Time          `gorm:"column:invoice_date"`
	DueDate         *time.Time          `gorm:"column:due_date"`
	UpstreamAt      *time.Time          `gorm:"column:upstream_updated_at"`
	Items           []InvoiceItem       `gorm:"-"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// InvoiceItem is one resolved row of an invoice.
type InvoiceItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index"`
	ItemID    uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	SKU       string          `gorm:"column:sku"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null;default:0"`
	Rate      decimal.Decimal `gorm:"column:rate;type:numeric(14,2);not null;default:0"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
