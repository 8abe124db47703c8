package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/types"
)

// Customer mirrors an upstream contact. FbCustomerID is the identity carried
// over from the previous system and wins over ZohoCustomerID when present.
type Customer struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ZohoCustomerID  string             `gorm:"column:zoho_customer_id;not null;uniqueIndex" validate:"required"`
	FbCustomerID    *string            `gorm:"column:fb_customer_id;uniqueIndex"`
	CompanyName     string             `gorm:"column:company_name;not null" validate:"required"`
	ContactName     string             `gorm:"column:contact_name"`
	Email           *string            `gorm:"column:email" validate:"omitempty,email"`
	Phone           *string            `gorm:"column:phone"`
	BillingAddress  *types.Address     `gorm:"column:billing_address;type:jsonb"`
	ShippingAddress *types.Address     `gorm:"column:shipping_address;type:jsonb"`
	Status          enums.RecordStatus `gorm:"column:status;type:text;not null;default:'active'" validate:"required"`
	UpstreamUpdated *time.Time         `gorm:"column:upstream_updated_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
