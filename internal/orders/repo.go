package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindExisting(ctx context.Context, order *models.Order) (uuid.UUID, bool, error) {
	var existing models.Order
	err := r.db.WithContext(ctx).Select("id").Where("legacy_order_id = ?", order.LegacyOrderID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return existing.ID, true, nil
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, order *models.Order) error {
	order.ID = id
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"order_number":        order.OrderNumber,
			"reference_number":    order.ReferenceNo,
			"customer_id":         order.CustomerID,
			"order_status":        order.OrderStatus,
			"total":               order.Total,
			"sub_total":           order.SubTotal,
			"order_date":          order.OrderDate,
			"shipment_date":       order.ShipmentDate,
			"upstream_updated_at": order.UpstreamAt,
			"updated_at":          time.Now().UTC(),
		}).Error
}

// ReplaceLineItems swaps every stored line of the order for order.LineItems in
// one transaction.
func (r *repository) ReplaceLineItems(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		return errors.New("order id is required to replace line items")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderLineItem{}).Error; err != nil {
			return err
		}
		if len(order.LineItems) == 0 {
			return nil
		}
		rows := make([]models.OrderLineItem, len(order.LineItems))
		for i, line := range order.LineItems {
			line.ID = uuid.New()
			line.OrderID = order.ID
			rows[i] = line
		}
		return tx.Create(&rows).Error
	})
}

func (r *repository) FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	var lines []models.OrderLineItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("legacy_line_item_id ASC").Find(&lines).Error
	return lines, err
}

// FindRef looks an order up by upstream id, then by its number.
func (r *repository) FindRef(ctx context.Context, legacyOrderID, orderNumber string) (*Ref, error) {
	if legacyOrderID = strings.TrimSpace(legacyOrderID); legacyOrderID != "" {
		ref, err := r.findRef(ctx, "legacy_order_id = ?", legacyOrderID)
		if err != nil || ref != nil {
			return ref, err
		}
	}
	if orderNumber = strings.TrimSpace(orderNumber); orderNumber != "" {
		return r.findRef(ctx, "order_number = ?", orderNumber)
	}
	return nil, nil
}

func (r *repository) findRef(ctx context.Context, query string, arg string) (*Ref, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Select("id", "customer_id").Where(query, arg).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Ref{ID: order.ID, CustomerID: order.CustomerID}, nil
}
