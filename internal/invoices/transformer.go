package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/zohosync-backend/internal/orders"
	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/validate"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

// CustomerLookup finds an already mirrored customer. Invoices never create
// customers.
type CustomerLookup interface {
	FindIDByZohoID(ctx context.Context, zohoCustomerID string) (*uuid.UUID, error)
}

// OrderLookup finds an already mirrored order by upstream id or number.
type OrderLookup interface {
	FindRef(ctx context.Context, legacyOrderID, orderNumber string) (*orders.Ref, error)
}

// ItemResolver maps an upstream line reference to a local item.
type ItemResolver interface {
	ResolveItemID(ctx context.Context, legacyItemID, sku string) (uuid.UUID, bool, error)
}

// RecordFetcher loads the full invoice when a list row carries no line items.
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

type upstreamInvoice struct {
	InvoiceID        zoho.ID        `json:"invoice_id"`
	InvoiceNumber    string         `json:"invoice_number"`
	CustomerID       zoho.ID        `json:"customer_id"`
	SalesOrderID     zoho.ID        `json:"salesorder_id"`
	SalesOrderNumber string         `json:"salesorder_number"`
	ReferenceNumber  string         `json:"reference_number"`
	Status           string         `json:"status"`
	Total            zoho.Number    `json:"total"`
	SubTotal         zoho.Number    `json:"sub_total"`
	Balance          zoho.Number    `json:"balance"`
	Date             string         `json:"date"`
	DueDate          string         `json:"due_date"`
	LastModifiedTime string         `json:"last_modified_time"`
	LineItems        []upstreamLine `json:"line_items"`
}

var invoiceStatuses = map[string]enums.InvoiceStatus{
	"draft":          enums.InvoiceStatusDraft,
	"sent":           enums.InvoiceStatusSent,
	"viewed":         enums.InvoiceStatusSent,
	"unpaid":         enums.InvoiceStatusUnpaid,
	"overdue":        enums.InvoiceStatusOverdue,
	"partially_paid": enums.InvoiceStatusPartiallyPaid,
	"paid":           enums.InvoiceStatusPaid,
	"void":           enums.InvoiceStatusVoid,
}

// TransformerParams wires a Transformer.
type TransformerParams struct {
	Customers CustomerLookup
	Orders    OrderLookup
	Items     ItemResolver
	Fetcher   RecordFetcher
	Logger    *logger.Logger
}

// Transformer turns upstream invoices into models.Invoice. Customer and order
// links are best-effort and stay nil when they cannot be resolved.
type Transformer struct {
	customers CustomerLookup
	orders    OrderLookup
	items     ItemResolver
	fetcher   RecordFetcher
	logg      *logger.Logger
}

func NewTransformer(p TransformerParams) (*Transformer, error) {
	if p.Customers == nil {
		return nil, errors.New("customer lookup required")
	}
	if p.Orders == nil {
		return nil, errors.New("order lookup required")
	}
	if p.Items == nil {
		return nil, errors.New("item resolver required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Transformer{
		customers: p.Customers,
		orders:    p.Orders,
		items:     p.Items,
		fetcher:   p.Fetcher,
		logg:      p.Logger,
	}, nil
}

func (t *Transformer) Transform(ctx context.Context, raw json.RawMessage) (*models.Invoice, error) {
	var in upstreamInvoice
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice")
	}
	if in.InvoiceID.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice_id is required")
	}
	if in.LineItems == nil && t.fetcher != nil {
		detail, err := t.fetcher.Get(ctx, enums.SyncEntityInvoices, in.InvoiceID.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch invoice detail")
		}
		if err := json.Unmarshal(detail, &in); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice detail")
		}
	}

	invoice := &models.Invoice{
		LegacyInvoiceID: in.InvoiceID.String(),
		InvoiceNumber:   strings.TrimSpace(in.InvoiceNumber),
		Status:          ResolveStatus(in.Status, in.Balance.Decimal.IsZero()),
		Total:           in.Total.Decimal,
		SubTotal:        in.SubTotal.Decimal,
		Balance:         in.Balance.Decimal,
		InvoiceDate:     zoho.ParseTime(in.Date),
		DueDate:         zoho.ParseTime(in.DueDate),
		UpstreamAt:      zoho.ParseTime(in.LastModifiedTime),
	}

	ctx = t.logg.WithField(ctx, "external_id", invoice.LegacyInvoiceID)

	if !in.CustomerID.Empty() {
		customerID, err := t.customers.FindIDByZohoID(ctx, in.CustomerID.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
		}
		if customerID == nil {
			t.logg.Warn(t.logg.WithField(ctx, "customer_id", in.CustomerID.String()), "invoice customer unresolved, storing without link")
		}
		invoice.CustomerID = customerID
	}

	ref, err := t.findOrder(ctx, in)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup order")
	}
	if ref != nil {
		invoice.OrderID = &ref.ID
		if invoice.CustomerID == nil {
			customerID := ref.CustomerID
			invoice.CustomerID = &customerID
		}
	}

	items, err := t.lines(ctx, in.LineItems)
	if err != nil {
		return nil, err
	}
	invoice.Items = items

	if err := validate.Struct(invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// findOrder cross-references the invoice with its sales order, first by
// upstream id, then by order number, then by the free-text reference number.
func (t *Transformer) findOrder(ctx context.Context, in upstreamInvoice) (*orders.Ref, error) {
	ref, err := t.orders.FindRef(ctx, in.SalesOrderID.String(), in.SalesOrderNumber)
	if err != nil || ref != nil {
		return ref, err
	}
	if reference := strings.TrimSpace(in.ReferenceNumber); reference != "" {
		return t.orders.FindRef(ctx, "", reference)
	}
	return nil, nil
}

func (t *Transformer) lines(ctx context.Context, in []upstreamLine) ([]models.InvoiceItem, error) {
	out := make([]models.InvoiceItem, 0, len(in))
	for _, line := range in {
		itemID, ok, err := t.items.ResolveItemID(ctx, line.ItemID.String(), line.SKU)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve invoice item")
		}
		if !ok {
			t.logg.Warn(t.logg.WithFields(ctx, map[string]any{
				"line_item_id": line.LineItemID.String(),
				"item_id":      line.ItemID.String(),
				"sku":          line.SKU,
				"reason":       "unresolved item",
			}), "invoice line excluded")
			continue
		}
		total := line.ItemTotal.Decimal
		if total.IsZero() {
			total = line.Quantity.Mul(line.Rate.Decimal)
		}
		out = append(out, models.InvoiceItem{
			ItemID:   itemID,
			SKU:      strings.TrimSpace(line.SKU),
			Name:     strings.TrimSpace(line.Name),
			Quantity: line.Quantity.Decimal,
			Rate:     line.Rate.Decimal,
			Total:    total,
		})
	}
	return out, nil
}

// MapStatus maps the upstream invoice status, defaulting to unpaid.
func MapStatus(value string) enums.InvoiceStatus {
	if status, ok := invoiceStatuses[strings.ToLower(strings.TrimSpace(value))]; ok {
		return status
	}
	return enums.InvoiceStatusUnpaid
}

// ResolveStatus applies the settled-balance rule on top of MapStatus: a zero
// balance means paid, except for void invoices which stay void.
func ResolveStatus(value string, settled bool) enums.InvoiceStatus {
	status := MapStatus(value)
	if settled && status != enums.InvoiceStatusVoid {
		return enums.InvoiceStatusPaid
	}
	return status
}
