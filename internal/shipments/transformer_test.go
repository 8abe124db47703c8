package shipments

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/zohosync-backend/internal/orders"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
)

type stubOrders map[string]orders.Ref

func (s stubOrders) FindRef(ctx context.Context, legacyOrderID, orderNumber string) (*orders.Ref, error) {
	if ref, ok := s[legacyOrderID]; ok {
		return &ref, nil
	}
	if ref, ok := s[orderNumber]; ok {
		return &ref, nil
	}
	return nil, nil
}

type stubCustomers map[string]uuid.UUID

func (s stubCustomers) FindIDByZohoID(ctx context.Context, zohoCustomerID string) (*uuid.UUID, error) {
	if id, ok := s[zohoCustomerID]; ok {
		return &id, nil
	}
	return nil, nil
}

func newTestTransformer(t *testing.T, ords stubOrders, customers stubCustomers, warehouse string) *Transformer {
	t.Helper()
	tr, err := NewTransformer(TransformerParams{Orders: ords, Customers: customers, DefaultWarehouse: warehouse})
	if err != nil {
		t.Fatalf("new transformer: %v", err)
	}
	return tr
}

func TestTransformPackage(t *testing.T) {
	ref := orders.Ref{ID: uuid.New(), CustomerID: uuid.New()}
	tr := newTestTransformer(t, stubOrders{"so-1": ref}, stubCustomers{}, "main")

	raw := json.RawMessage(`{
		"package_id": 987,
		"package_number": "PKG-1",
		"salesorder_id": "so-1",
		"customer_id": "unknown",
		"status": "delivered",
		"delivery_method": "UPS",
		"shipment_order": {"tracking_number": "1Z999", "shipment_date": "2024-03-01", "delivery_date": "2024-03-03"},
		"shipping_address": {"address": "1 Main St", "city": "Austin"}
	}`)

	shipment, err := tr.Transform(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.ExternalPackageID != "987" {
		t.Fatalf("unexpected package id %q", shipment.ExternalPackageID)
	}
	if shipment.OrderID != ref.ID || shipment.CustomerID != ref.CustomerID {
		t.Fatalf("expected order and order customer, got %+v", shipment)
	}
	if shipment.WarehouseID != "main" {
		t.Fatalf("expected default warehouse, got %q", shipment.WarehouseID)
	}
	if shipment.ShipmentStatus != enums.ShipmentStatusDelivered {
		t.Fatalf("unexpected status %q", shipment.ShipmentStatus)
	}
	if shipment.Carrier == nil || *shipment.Carrier != "UPS" {
		t.Fatalf("unexpected carrier %v", shipment.Carrier)
	}
	if shipment.TrackingNumber == nil || *shipment.TrackingNumber != "1Z999" {
		t.Fatalf("unexpected tracking %v", shipment.TrackingNumber)
	}
	if shipment.ShippedAt == nil || shipment.DeliveredAt == nil {
		t.Fatal("expected shipped and delivered timestamps")
	}
	if shipment.ShippingAddress == nil || shipment.ShippingAddress.City != "Austin" {
		t.Fatalf("unexpected shipping address %+v", shipment.ShippingAddress)
	}
}

func TestTransformPackagePrefersPackageCustomer(t *testing.T) {
	ref := orders.Ref{ID: uuid.New(), CustomerID: uuid.New()}
	customerID := uuid.New()
	tr := newTestTransformer(t, stubOrders{"SO-9": ref}, stubCustomers{"c-9": customerID}, "main")

	shipment, err := tr.Transform(context.Background(), json.RawMessage(`{"package_id":"p-9","salesorder_number":"SO-9","customer_id":"c-9","warehouse_id":"wh-2"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.CustomerID != customerID {
		t.Fatalf("expected package customer, got %s", shipment.CustomerID)
	}
	if shipment.WarehouseID != "wh-2" {
		t.Fatalf("expected upstream warehouse, got %q", shipment.WarehouseID)
	}
	if shipment.ShipmentStatus != enums.ShipmentStatusPending {
		t.Fatalf("expected default pending, got %q", shipment.ShipmentStatus)
	}
}

func TestTransformPackageDrops(t *testing.T) {
	ref := orders.Ref{ID: uuid.New(), CustomerID: uuid.New()}

	cases := []struct {
		name      string
		warehouse string
		raw       string
	}{
		{"missing id", "main", `{"salesorder_id":"so-1"}`},
		{"unknown order", "main", `{"package_id":"p-1","salesorder_id":"so-404"}`},
		{"no warehouse", "", `{"package_id":"p-1","salesorder_id":"so-1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTransformer(t, stubOrders{"so-1": ref}, stubCustomers{}, tc.warehouse)
			_, err := tr.Transform(context.Background(), json.RawMessage(tc.raw))
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation drop, got %v", err)
			}
		})
	}
}
