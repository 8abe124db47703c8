package items

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/validate"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

// BrandLookup resolves a brand by display name.
type BrandLookup interface {
	FindBrandIDByName(ctx context.Context, name string) (*uuid.UUID, error)
}

type upstreamItem struct {
	ItemID           zoho.ID     `json:"item_id"`
	SKU              string      `json:"sku"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Unit             string      `json:"unit"`
	Brand            string      `json:"brand"`
	Status           string      `json:"status"`
	StockOnHand      zoho.Number `json:"stock_on_hand"`
	CommittedStock   zoho.Number `json:"committed_stock"`
	PurchaseRate     zoho.Number `json:"purchase_rate"`
	Rate             zoho.Number `json:"rate"`
	CreatedTime      string      `json:"created_time"`
	LastModifiedTime string      `json:"last_modified_time"`
}

var itemStatuses = map[string]enums.RecordStatus{
	"active":   enums.RecordStatusActive,
	"inactive": enums.RecordStatusInactive,
}

// Transformer turns upstream item payloads into models.Item.
type Transformer struct {
	brands BrandLookup
}

func NewTransformer(brands BrandLookup) *Transformer {
	return &Transformer{brands: brands}
}

// Transform normalizes one record. An error means the record is dropped.
func (t *Transformer) Transform(ctx context.Context, raw json.RawMessage) (*models.Item, error) {
	var in upstreamItem
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode item")
	}
	if in.ItemID.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item_id is required")
	}

	item := &models.Item{
		LegacyItemID:      in.ItemID.String(),
		SKU:               strings.TrimSpace(in.SKU),
		Name:              strings.TrimSpace(in.Name),
		Description:       zoho.Optional(in.Description),
		Unit:              strings.TrimSpace(in.Unit),
		GrossStockLevel:   in.StockOnHand.Decimal,
		CommittedStock:    in.CommittedStock.Decimal,
		PurchasePrice:     in.PurchaseRate.Decimal,
		RetailPrice:       in.Rate.Decimal,
		Status:            MapStatus(in.Status),
		UpstreamCreatedAt: zoho.ParseTime(in.CreatedTime),
		UpstreamUpdatedAt: zoho.ParseTime(in.LastModifiedTime),
	}
	item.RecomputeNetStock()

	if t.brands != nil && strings.TrimSpace(in.Brand) != "" {
		brandID, err := t.brands.FindBrandIDByName(ctx, in.Brand)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup brand")
		}
		item.BrandID = brandID
	}

	if err := validate.Struct(item); err != nil {
		return nil, err
	}
	return item, nil
}

// MapStatus maps the upstream status, defaulting to active.
func MapStatus(value string) enums.RecordStatus {
	if status, ok := itemStatuses[strings.ToLower(strings.TrimSpace(value))]; ok {
		return status
	}
	return enums.RecordStatusActive
}
