package orders

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/validate"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

// RecordFetcher fetches a single upstream record. List pages omit line items,
// so the full order is loaded when they are missing.
type RecordFetcher interface {
	Get(ctx context.Context, entity enums.SyncEntity, id string) (json.RawMessage, error)
}

type upstreamLine struct {
	LineItemID zoho.ID     `json:"line_item_id"`
	ItemID     zoho.ID     `json:"item_id"`
	SKU        string      `json:"sku"`
	Name       string      `json:"name"`
	Quantity   zoho.Number `json:"quantity"`
	Rate       zoho.Number `json:"rate"`
	ItemTotal  zoho.Number `json:"item_total"`
}

type upstreamOrder struct {
	SalesOrderID     zoho.ID        `json:"salesorder_id"`
	SalesOrderNumber string         `json:"salesorder_number"`
	ReferenceNumber  string         `json:"reference_number"`
	CustomerID       zoho.ID        `json:"customer_id"`
	Status           string         `json:"status"`
	OrderStatus      string         `json:"order_status"`
	Total            zoho.Number    `json:"total"`
	SubTotal         zoho.Number    `json:"sub_total"`
	Date             string         `json:"date"`
	ShipmentDate     string         `json:"shipment_date"`
	LastModifiedTime string         `json:"last_modified_time"`
	LineItems        []upstreamLine `json:"line_items"`
}

var orderStatuses = map[string]enums.OrderStatus{
	"draft":              enums.OrderStatusPending,
	"pending_approval":   enums.OrderStatusPending,
	"approved":           enums.OrderStatusConfirmed,
	"confirmed":          enums.OrderStatusConfirmed,
	"open":               enums.OrderStatusConfirmed,
	"partially_invoiced": enums.OrderStatusInvoiced,
	"invoiced":           enums.OrderStatusInvoiced,
	"fulfilled":          enums.OrderStatusFulfilled,
	"shipped":            enums.OrderStatusFulfilled,
	"delivered":          enums.OrderStatusFulfilled,
	"closed":             enums.OrderStatusClosed,
	"void":               enums.OrderStatusCancelled,
	"cancelled":          enums.OrderStatusCancelled,
}

// TransformerParams wires a Transformer.
type TransformerParams struct {
	Customers CustomerResolver
	Items     ItemResolver
	Fetcher   RecordFetcher
	Logger    *logger.Logger
}

// Transformer turns upstream sales orders into models.Order. The customer is
// a strict reference: an order whose customer cannot be resolved is dropped.
type Transformer struct {
	customers CustomerResolver
	items     ItemResolver
	fetcher   RecordFetcher
	logg      *logger.Logger
}

func NewTransformer(p TransformerParams) (*Transformer, error) {
	if p.Customers == nil {
		return nil, errors.New("customer resolver required")
	}
	if p.Items == nil {
		return nil, errors.New("item resolver required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Transformer{
		customers: p.Customers,
		items:     p.Items,
		fetcher:   p.Fetcher,
		logg:      p.Logger,
	}, nil
}

func (t *Transformer) Transform(ctx context.Context, raw json.RawMessage) (*models.Order, error) {
	var in upstreamOrder
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode salesorder")
	}
	if in.SalesOrderID.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "salesorder_id is required")
	}
	if in.LineItems == nil && t.fetcher != nil {
		detail, err := t.fetcher.Get(ctx, enums.SyncEntityOrders, in.SalesOrderID.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch salesorder detail")
		}
		if err := json.Unmarshal(detail, &in); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode salesorder detail")
		}
	}
	if in.CustomerID.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required")
	}

	customerID, err := t.customers.Resolve(ctx, in.CustomerID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unresolved customer "+in.CustomerID.String())
	}

	status := in.OrderStatus
	if strings.TrimSpace(status) == "" {
		status = in.Status
	}

	order := &models.Order{
		LegacyOrderID: in.SalesOrderID.String(),
		OrderNumber:   strings.TrimSpace(in.SalesOrderNumber),
		ReferenceNo:   zoho.Optional(in.ReferenceNumber),
		CustomerID:    customerID,
		OrderStatus:   MapStatus(status),
		Total:         in.Total.Decimal,
		SubTotal:      in.SubTotal.Decimal,
		OrderDate:     zoho.ParseTime(in.Date),
		ShipmentDate:  zoho.ParseTime(in.ShipmentDate),
		UpstreamAt:    zoho.ParseTime(in.LastModifiedTime),
	}

	lines, err := t.lines(ctx, order.LegacyOrderID, in.LineItems)
	if err != nil {
		return nil, err
	}
	order.LineItems = lines

	if err := validate.Struct(order); err != nil {
		return nil, err
	}
	return order, nil
}

// lines resolves every upstream line to a local item. Lines whose item is
// unknown are left out.
func (t *Transformer) lines(ctx context.Context, orderID string, in []upstreamLine) ([]models.OrderLineItem, error) {
	out := make([]models.OrderLineItem, 0, len(in))
	for _, line := range in {
		itemID, ok, err := t.items.ResolveItemID(ctx, line.ItemID.String(), line.SKU)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve line item")
		}
		if !ok {
			t.logg.Warn(t.logg.WithFields(ctx, map[string]any{
				"external_id":  orderID,
				"line_item_id": line.LineItemID.String(),
				"item_id":      line.ItemID.String(),
				"sku":          line.SKU,
				"reason":       "unresolved item",
			}), "order line excluded")
			continue
		}
		total := line.ItemTotal.Decimal
		if total.IsZero() {
			total = line.Quantity.Mul(line.Rate.Decimal)
		}
		out = append(out, models.OrderLineItem{
			ItemID:           itemID,
			LegacyLineItemID: line.LineItemID.String(),
			SKU:              strings.TrimSpace(line.SKU),
			Name:             strings.TrimSpace(line.Name),
			Quantity:         line.Quantity.Decimal,
			Rate:             line.Rate.Decimal,
			Total:            total,
		})
	}
	return out, nil
}

// MapStatus maps the upstream order status, defaulting to pending.
func MapStatus(value string) enums.OrderStatus {
	if status, ok := orderStatuses[strings.ToLower(strings.TrimSpace(value))]; ok {
		return status
	}
	return enums.OrderStatusPending
}
