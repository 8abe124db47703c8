package items

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
)

// Repository persists mirrored items and answers the lookups other entities
// need to resolve item references.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindExisting(ctx context.Context, item *models.Item) (uuid.UUID, bool, error)
	Create(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, id uuid.UUID, item *models.Item) error
	FindByLegacyID(ctx context.Context, legacyItemID string) (*models.Item, error)
	ResolveItemID(ctx context.Context, legacyItemID, sku string) (uuid.UUID, bool, error)
	FindBrandIDByName(ctx context.Context, name string) (*uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an items repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindExisting looks the item up by its upstream id.
func (r *repository) FindExisting(ctx context.Context, item *models.Item) (uuid.UUID, bool, error) {
	existing, err := r.FindByLegacyID(ctx, item.LegacyItemID)
	if err != nil || existing == nil {
		return uuid.Nil, false, err
	}
	return existing.ID, true, nil
}

func (r *repository) Create(ctx context.Context, item *models.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.RecomputeNetStock()
	return r.db.WithContext(ctx).Create(item).Error
}

// Update rewrites the synced columns of an existing row. Net stock is derived
// here again so a stale value can never be carried forward.
func (r *repository) Update(ctx context.Context, id uuid.UUID, item *models.Item) error {
	item.ID = id
	item.RecomputeNetStock()
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sku":                 item.SKU,
			"name":                item.Name,
			"description":         item.Description,
			"unit":                item.Unit,
			"brand_id":            item.BrandID,
			"gross_stock_level":   item.GrossStockLevel,
			"committed_stock":     item.CommittedStock,
			"net_stock_level":     item.NetStockLevel,
			"purchase_price":      item.PurchasePrice,
			"retail_price":        item.RetailPrice,
			"status":              item.Status,
			"upstream_created_at": item.UpstreamCreatedAt,
			"upstream_updated_at": item.UpstreamUpdatedAt,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *repository) FindByLegacyID(ctx context.Context, legacyItemID string) (*models.Item, error) {
	legacyItemID = strings.TrimSpace(legacyItemID)
	if legacyItemID == "" {
		return nil, nil
	}
	var item models.Item
	err := r.db.WithContext(ctx).Where("legacy_item_id = ?", legacyItemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ResolveItemID maps an upstream line item reference to a local item, trying
// the upstream id first and the SKU second.
func (r *repository) ResolveItemID(ctx context.Context, legacyItemID, sku string) (uuid.UUID, bool, error) {
	item, err := r.FindByLegacyID(ctx, legacyItemID)
	if err != nil {
		return uuid.Nil, false, err
	}
	if item != nil {
		return item.ID, true, nil
	}

	sku = strings.TrimSpace(sku)
	if sku == "" {
		return uuid.Nil, false, nil
	}
	var bySKU models.Item
	err = r.db.WithContext(ctx).Where("sku = ?", sku).Order("updated_at DESC").First(&bySKU).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return bySKU.ID, true, nil
}

// FindBrandIDByName matches brands case-insensitively. Unknown brands yield nil.
func (r *repository) FindBrandIDByName(ctx context.Context, name string) (*uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var brand models.Brand
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&brand).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &brand.ID, nil
}
