package zoho

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/zohosync-backend/pkg/types"
)

// Number decodes upstream monetary and quantity fields. Zoho mixes JSON
// numbers, numeric strings and nulls; anything unparseable becomes zero.
type Number struct {
	decimal.Decimal
}

func (n *Number) UnmarshalJSON(data []byte) error {
	n.Decimal = decimal.Zero
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		n.Decimal = d
	}
	return nil
}

// ID decodes upstream identifiers that arrive as strings or numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*id = ID(num.String())
	}
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Empty reports whether the id is missing.
func (id ID) Empty() bool {
	return strings.TrimSpace(string(id)) == ""
}

var timeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp and date layouts Zoho emits. It returns nil
// for empty or unrecognised input.
func ParseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// FormatTime renders t in the layout Zoho expects for last_modified_time filters.
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05-0700")
}

// Address is the upstream address object shared by contacts, orders and packages.
type Address struct {
	Attention string `json:"attention"`
	Address   string `json:"address"`
	Street2   string `json:"street2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// Snapshot converts the upstream address into the stored form, nil when empty.
func (a *Address) Snapshot() *types.Address {
	if a == nil {
		return nil
	}
	return types.Address{
		Attention:  strings.TrimSpace(a.Attention),
		Line1:      strings.TrimSpace(a.Address),
		Line2:      strings.TrimSpace(a.Street2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.Zip),
		Country:    strings.TrimSpace(a.Country),
		Phone:      strings.TrimSpace(a.Phone),
	}.OrNil()
}

// Optional returns nil for blank strings.
func Optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
