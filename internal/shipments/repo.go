package shipments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
)

// Repository persists mirrored packages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindExisting(ctx context.Context, shipment *models.Shipment) (uuid.UUID, bool, error)
	Create(ctx context.Context, shipment *models.Shipment) error
	Update(ctx context.Context, id uuid.UUID, shipment *models.Shipment) error
	FindByPackageID(ctx context.Context, packageID string) (*models.Shipment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindExisting(ctx context.Context, shipment *models.Shipment) (uuid.UUID, bool, error) {
	existing, err := r.FindByPackageID(ctx, shipment.ExternalPackageID)
	if err != nil || existing == nil {
		return uuid.Nil, false, err
	}
	return existing.ID, true, nil
}

func (r *repository) Create(ctx context.Context, shipment *models.Shipment) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, shipment *models.Shipment) error {
	shipment.ID = id
	return r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"package_number":   shipment.PackageNumber,
			"order_id":         shipment.OrderID,
			"customer_id":      shipment.CustomerID,
			"warehouse_id":     shipment.WarehouseID,
			"shipment_status":  shipment.ShipmentStatus,
			"carrier":          shipment.Carrier,
			"tracking_number":  shipment.TrackingNumber,
			"tracking_url":     shipment.TrackingURL,
			"shipping_address": shipment.ShippingAddress,
			"billing_address":  shipment.BillingAddress,
			"package_date":     shipment.PackageDate,
			"shipped_at":       shipment.ShippedAt,
			"delivered_at":     shipment.DeliveredAt,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *repository) FindByPackageID(ctx context.Context, packageID string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).Where("external_package_id = ?", packageID).First(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}
