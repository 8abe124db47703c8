package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the upstream address snapshot stored as JSON alongside
// customers and shipments. Nothing downstream relies on it being normalized.
type Address struct {
	Attention  string `json:"attention,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// IsZero reports whether the snapshot carries any location data.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1+a.Line2+a.City+a.State+a.PostalCode+a.Country) == ""
}

// OrNil drops empty snapshots so they persist as NULL.
func (a Address) OrNil() *Address {
	if a.IsZero() {
		return nil
	}
	return &a
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

// Scan implements sql.Scanner.
func (a *Address) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = Address{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported address type %T", value)
	}
	if len(raw) == 0 {
		*a = Address{}
		return nil
	}
	return json.Unmarshal(raw, a)
}
