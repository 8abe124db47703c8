package customers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
)

// Repository persists mirrored customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindExisting(ctx context.Context, customer *models.Customer) (uuid.UUID, bool, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, id uuid.UUID, customer *models.Customer) error
	FindByZohoID(ctx context.Context, zohoCustomerID string) (*models.Customer, error)
	FindIDByZohoID(ctx context.Context, zohoCustomerID string) (*uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindExisting prefers the carried-over FbCustomerID and falls back to the
// upstream contact id.
func (r *repository) FindExisting(ctx context.Context, customer *models.Customer) (uuid.UUID, bool, error) {
	if customer.FbCustomerID != nil && strings.TrimSpace(*customer.FbCustomerID) != "" {
		var existing models.Customer
		err := r.db.WithContext(ctx).Select("id").Where("fb_customer_id = ?", *customer.FbCustomerID).First(&existing).Error
		if err == nil {
			return existing.ID, true, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, err
		}
	}

	id, err := r.FindIDByZohoID(ctx, customer.ZohoCustomerID)
	if err != nil || id == nil {
		return uuid.Nil, false, err
	}
	return *id, true, nil
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, customer *models.Customer) error {
	customer.ID = id
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"zoho_customer_id":    customer.ZohoCustomerID,
			"fb_customer_id":      customer.FbCustomerID,
			"company_name":        customer.CompanyName,
			"contact_name":        customer.ContactName,
			"email":               customer.Email,
			"phone":               customer.Phone,
			"billing_address":     customer.BillingAddress,
			"shipping_address":    customer.ShippingAddress,
			"status":              customer.Status,
			"upstream_updated_at": customer.UpstreamUpdated,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *repository) FindByZohoID(ctx context.Context, zohoCustomerID string) (*models.Customer, error) {
	zohoCustomerID = strings.TrimSpace(zohoCustomerID)
	if zohoCustomerID == "" {
		return nil, nil
	}
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("zoho_customer_id = ?", zohoCustomerID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindIDByZohoID(ctx context.Context, zohoCustomerID string) (*uuid.UUID, error) {
	customer, err := r.FindByZohoID(ctx, zohoCustomerID)
	if err != nil || customer == nil {
		return nil, err
	}
	return &customer.ID, nil
}
