package customers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/validate"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

// fbCustomerField is the upstream custom field carrying the legacy customer id.
const fbCustomerField = "cf_fb_customer_id"

type customField struct {
	APIName string  `json:"api_name"`
	Value   zoho.ID `json:"value"`
}

type upstreamContact struct {
	ContactID        zoho.ID       `json:"contact_id"`
	ContactName      string        `json:"contact_name"`
	CompanyName      string        `json:"company_name"`
	ContactType      string        `json:"contact_type"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone"`
	Mobile           string        `json:"mobile"`
	Status           string        `json:"status"`
	FbCustomerID     zoho.ID       `json:"cf_fb_customer_id"`
	CustomFields     []customField `json:"custom_fields"`
	BillingAddress   *zoho.Address `json:"billing_address"`
	ShippingAddress  *zoho.Address `json:"shipping_address"`
	LastModifiedTime string        `json:"last_modified_time"`
}

var contactStatuses = map[string]enums.RecordStatus{
	"active":   enums.RecordStatusActive,
	"inactive": enums.RecordStatusInactive,
}

// Transformer turns upstream contacts into models.Customer. Customers have no
// foreign keys, so only malformed payloads and vendor contacts are dropped.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

func (t *Transformer) Transform(_ context.Context, raw json.RawMessage) (*models.Customer, error) {
	var in upstreamContact
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode contact")
	}
	if in.ContactID.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact_id is required")
	}
	if strings.EqualFold(strings.TrimSpace(in.ContactType), "vendor") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrFiltered, "vendor contacts are not mirrored")
	}

	company := strings.TrimSpace(in.CompanyName)
	if company == "" {
		company = strings.TrimSpace(in.ContactName)
	}
	phone := in.Phone
	if strings.TrimSpace(phone) == "" {
		phone = in.Mobile
	}

	customer := &models.Customer{
		ZohoCustomerID:  in.ContactID.String(),
		FbCustomerID:    zoho.Optional(in.fbCustomerID()),
		CompanyName:     company,
		ContactName:     strings.TrimSpace(in.ContactName),
		Email:           zoho.Optional(strings.ToLower(in.Email)),
		Phone:           zoho.Optional(phone),
		BillingAddress:  in.BillingAddress.Snapshot(),
		ShippingAddress: in.ShippingAddress.Snapshot(),
		Status:          MapStatus(in.Status),
		UpstreamUpdated: zoho.ParseTime(in.LastModifiedTime),
	}

	if err := validate.Struct(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (c upstreamContact) fbCustomerID() string {
	if !c.FbCustomerID.Empty() {
		return c.FbCustomerID.String()
	}
	for _, field := range c.CustomFields {
		if field.APIName == fbCustomerField && !field.Value.Empty() {
			return field.Value.String()
		}
	}
	return ""
}

// MapStatus maps the upstream contact status, defaulting to active.
func MapStatus(value string) enums.RecordStatus {
	if status, ok := contactStatuses[strings.ToLower(strings.TrimSpace(value))]; ok {
		return status
	}
	return enums.RecordStatusActive
}
