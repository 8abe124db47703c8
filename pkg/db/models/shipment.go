package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/types"
)

// Shipment mirrors an upstream package. Every foreign key is required; a
// package that cannot resolve one is never stored.
type Shipment struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ExternalPackageID string               `gorm:"column:external_package_id;not null;uniqueIndex" validate:"required"`
	PackageNumber     string               `gorm:"column:package_number"`
	OrderID           uuid.UUID            `gorm:"column:order_id;type:uuid;not null" validate:"required"`
	CustomerID        uuid.UUID            `gorm:"column:customer_id;type:uuid;not null" validate:"required"`
	WarehouseID       string               `gorm:"column:warehouse_id;not null" validate:"required"`
	ShipmentStatus    enums.ShipmentStatus `gorm:"column:shipment_status;type:text;not null;default:'pending'" validate:"required"`
	Carrier           *string              `gorm:"column:carrier"`
	TrackingNumber    *string              `gorm:"column:tracking_number"`
	TrackingURL       *string              `gorm:"column:tracking_url"`
	ShippingAddress   *types.Address       `gorm:"column:shipping_address;type:jsonb"`
	BillingAddress    *types.Address       `gorm:"column:billing_address;type:jsonb"`
	PackageDate       *time.Time           `gorm:"column:package_date"`
	ShippedAt         *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
