package invoices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
)

// Repository persists mirrored invoices and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindExisting(ctx context.Context, invoice *models.Invoice) (uuid.UUID, bool, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	Update(ctx context.Context, id uuid.UUID, invoice *models.Invoice) error
	ReplaceItems(ctx context.Context, invoice *models.Invoice) error
	FindItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error)
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

func (r *repository) FindExisting(ctx context.Context, invoice *models.Invoice) (uuid.UUID, bool, error) {
	var existing models.Invoice
	err := r.db.WithContext(ctx).Select("id").Where("legacy_invoice_id = ?", invoice.LegacyInvoiceID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return existing.ID, true, nil
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, invoice *models.Invoice) error {
	invoice.ID = id
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"invoice_number":      invoice.InvoiceNumber,
			"customer_id":         invoice.CustomerID,
			"order_id":            invoice.OrderID,
			"status":              invoice.Status,
			"total":               invoice.Total,
			"sub_total":           invoice.SubTotal,
			"balance":             invoice.Balance,
			"invoice_date":        invoice.InvoiceDate,
			"due_date":            invoice.DueDate,
			"upstream_updated_at": invoice.UpstreamAt,
			"updated_at":          time.Now().UTC(),
		}).Error
}

// ReplaceItems swaps every stored item of the invoice for invoice.Items in one
// transaction.
func (r *repository) ReplaceItems(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		return errors.New("invoice id is required to replace items")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if len(invoice.Items) == 0 {
			return nil
		}
		rows := make([]models.InvoiceItem, len(invoice.Items))
		for i, item := range invoice.Items {
			item.ID = uuid.New()
			item.InvoiceID = invoice.ID
			rows[i] = item
		}
		return tx.Create(&rows).Error
	})
}

func (r *repository) FindItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	var items []models.InvoiceItem
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("sku ASC").Find(&items).Error
	return items, err
}
