package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
)

// Repository defines persistence operations for sales orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindExisting(ctx context.Context, order *models.Order) (uuid.UUID, bool, error)
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, id uuid.UUID, order *models.Order) error
	ReplaceLineItems(ctx context.Context, order *models.Order) error
	FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	FindRef(ctx context.Context, legacyOrderID, orderNumber string) (*Ref, error)
}

// Ref is the slice of an order other entities link against.
type Ref struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
}

// CustomerResolver maps an upstream customer id to a local customer,
// creating it when necessary.
type CustomerResolver interface {
	Resolve(ctx context.Context, zohoCustomerID string) (uuid.UUID, error)
}

// ItemResolver maps an upstream line reference to a local item.
type ItemResolver interface {
	ResolveItemID(ctx context.Context, legacyItemID, sku string) (uuid.UUID, bool, error)
}
