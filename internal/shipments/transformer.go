package shipments

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
	"github.com/angelmondragon/zohosync-backend/pkg/validate"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

// OrderLookup finds an already mirrored order.
type OrderLookup interface {
	FindRef(ctx context.Context, legacyOrderID, orderNumber string) (*orders.Ref, error)
}

// CustomerLookup finds an already mirrored customer.
type CustomerLookup interface {
	FindIDByZohoID(ctx context.Context, zohoCustomerID string) (*uuid.UUID, error)
}

type shipmentOrder struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
	ShipmentDate   string `json:"shipment_date"`
	DeliveryDate   string `json:"delivery_date"`
}

type upstreamPackage struct {
	PackageID        zoho.ID        `json:"package_id"`
	PackageNumber    string         `json:"package_number"`
	SalesOrderID     zoho.ID        `json:"salesorder_id"`
	SalesOrderNumber string         `json:"salesorder_number"`
	CustomerID       zoho.ID        `json:"customer_id"`
	WarehouseID      zoho.ID        `json:"warehouse_id"`
	Status           string         `json:"status"`
	Date             string         `json:"date"`
	Carrier          string         `json:"carrier"`
	DeliveryMethod   string         `json:"delivery_method"`
	TrackingNumber   string         `json:"tracking_number"`
	TrackingURL      string         `json:"tracking_url"`
	ShipmentDate     string         `json:"shipment_date"`
	DeliveryDate     string         `json:"delivery_date"`
	ShipmentOrder    *shipmentOrder `json:"shipment_order"`
	ShippingAddress  *zoho.Address  `json:"shipping_address"`
	BillingAddress   *zoho.Address  `json:"billing_address"`
}

var shipmentStatuses = map[string]enums.ShipmentStatus{
	"not_shipped": enums.ShipmentStatusPending,
	"pending":     enums.ShipmentStatusPending,
	"packed":      enums.ShipmentStatusPending,
	"shipped":     enums.ShipmentStatusShipped,
	"in_transit":  enums.ShipmentStatusInTransit,
	"delivered":   enums.ShipmentStatusDelivered,
}

// TransformerParams wires a Transformer.
type TransformerParams struct {
	Orders           OrderLookup
	Customers        CustomerLookup
	DefaultWarehouse string
}

// Transformer turns upstream packages into models.Shipment. Order, customer
// and warehouse are all strict: a package missing any of them is dropped.
type Transformer struct {
	orders           OrderLookup
	customers        CustomerLookup
	defaultWarehouse string
}

func NewTransformer(p TransformerParams) (*Transformer, error) {
	if p.Orders == nil {
		return nil, errors.New("order lookup required")
	}
	if p.Customers == nil {
		return nil, errors.New("customer lookup required")
	}
	return &Transformer{
		orders:           p.Orders,
		customers:        p.Customers,
		defaultWarehouse: strings.TrimSpace(p.DefaultWarehouse),
	}, nil
}

func (t *Transformer) Transform(ctx context.Context, raw json.RawMessage) (*models.Shipment, error) {
	var in upstreamPackage
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode package")
	}
	if in.PackageID.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package_id is required")
	}

	ref, err := t.orders.FindRef(ctx, in.SalesOrderID.String(), in.SalesOrderNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup order")
	}
	if ref == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unresolved order "+firstNonEmpty(in.SalesOrderID.String(), in.SalesOrderNumber))
	}

	customerID := ref.CustomerID
	if !in.CustomerID.Empty() {
		id, err := t.customers.FindIDByZohoID(ctx, in.CustomerID.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
		}
		if id != nil {
			customerID = *id
		}
	}

	warehouse := in.WarehouseID.String()
	if strings.TrimSpace(warehouse) == "" {
		warehouse = t.defaultWarehouse
	}

	tracking := in.trackingDetails()
	shipment := &models.Shipment{
		ExternalPackageID: in.PackageID.String(),
		PackageNumber:     strings.TrimSpace(in.PackageNumber),
		OrderID:           ref.ID,
		CustomerID:        customerID,
		WarehouseID:       warehouse,
		ShipmentStatus:    MapStatus(in.Status),
		Carrier:           zoho.Optional(tracking.Carrier),
		TrackingNumber:    zoho.Optional(tracking.TrackingNumber),
		TrackingURL:       zoho.Optional(tracking.TrackingURL),
		ShippingAddress:   in.ShippingAddress.Snapshot(),
		BillingAddress:    in.BillingAddress.Snapshot(),
		PackageDate:       zoho.ParseTime(in.Date),
		ShippedAt:         zoho.ParseTime(tracking.ShipmentDate),
		DeliveredAt:       zoho.ParseTime(tracking.DeliveryDate),
	}

	if err := validate.Struct(shipment); err != nil {
		return nil, err
	}
	return shipment, nil
}

// trackingDetails merges the nested shipment_order block over the flat fields.
func (p upstreamPackage) trackingDetails() shipmentOrder {
	out := shipmentOrder{
		Carrier:        firstNonEmpty(p.Carrier, p.DeliveryMethod),
		TrackingNumber: p.TrackingNumber,
		TrackingURL:    p.TrackingURL,
		ShipmentDate:   p.ShipmentDate,
		DeliveryDate:   p.DeliveryDate,
	}
	if so := p.ShipmentOrder; so != nil {
		out.Carrier = firstNonEmpty(so.Carrier, out.Carrier)
		out.TrackingNumber = firstNonEmpty(so.TrackingNumber, out.TrackingNumber)
		out.TrackingURL = firstNonEmpty(so.TrackingURL, out.TrackingURL)
		out.ShipmentDate = firstNonEmpty(so.ShipmentDate, out.ShipmentDate)
		out.DeliveryDate = firstNonEmpty(so.DeliveryDate, out.DeliveryDate)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// MapStatus maps the upstream package status, defaulting to pending.
func MapStatus(value string) enums.ShipmentStatus {
	if status, ok := shipmentStatuses[strings.ToLower(strings.TrimSpace(value))]; ok {
		return status
	}
	return enums.ShipmentStatusPending
}
