package customers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
)

func TestTransformContact(t *testing.T) {
	raw := json.RawMessage(`{
		"contact_id": 4600000001,
		"contact_name": "Jane Doe",
		"company_name": "",
		"email": "Jane@Example.COM",
		"phone": "",
		"mobile": "555-0100",
		"status": "inactive",
		"custom_fields": [{"api_name": "cf_fb_customer_id", "value": "fb-42"}],
		"billing_address": {"address": "1 Main St", "city": "Austin", "zip": "78701"},
		"shipping_address": {"attention": "Dock"}
	}`)

	customer, err := NewTransformer().Transform(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if customer.ZohoCustomerID != "4600000001" {
		t.Fatalf("unexpected zoho id %q", customer.ZohoCustomerID)
	}
	if customer.CompanyName != "Jane Doe" {
		t.Fatalf("expected company to fall back to contact name, got %q", customer.CompanyName)
	}
	if customer.FbCustomerID == nil || *customer.FbCustomerID != "fb-42" {
		t.Fatalf("unexpected fb id %v", customer.FbCustomerID)
	}
	if customer.Email == nil || *customer.Email != "jane@example.com" {
		t.Fatalf("unexpected email %v", customer.Email)
	}
	if customer.Phone == nil || *customer.Phone != "555-0100" {
		t.Fatalf("expected mobile fallback, got %v", customer.Phone)
	}
	if customer.BillingAddress == nil || customer.BillingAddress.PostalCode != "78701" {
		t.Fatalf("unexpected billing address %+v", customer.BillingAddress)
	}
	if customer.ShippingAddress != nil {
		t.Fatalf("expected empty shipping address to be nil, got %+v", customer.ShippingAddress)
	}
	if customer.Status != enums.RecordStatusInactive {
		t.Fatalf("unexpected status %q", customer.Status)
	}
}

func TestTransformContactDrops(t *testing.T) {
	cases := map[string]string{
		"missing id":    `{"contact_name":"x"}`,
		"vendor":        `{"contact_id":"1","contact_name":"x","contact_type":"vendor"}`,
		"no name":       `{"contact_id":"1"}`,
		"invalid email": `{"contact_id":"1","contact_name":"x","email":"nope"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTransformer().Transform(context.Background(), json.RawMessage(raw))
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if filtered := errors.Is(err, pkgerrors.ErrFiltered); filtered != (name == "vendor") {
				t.Fatalf("filtered=%v for %s", filtered, name)
			}
		})
	}
}

func TestMapStatusDefaultsToActive(t *testing.T) {
	if got := MapStatus("crm_only"); got != enums.RecordStatusActive {
		t.Fatalf("expected active default, got %q", got)
	}
}
