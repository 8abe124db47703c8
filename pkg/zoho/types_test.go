package zoho

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNumberCoercion(t *testing.T) {
	var payload struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
		E Number `json:"e"`
		F Number `json:"f"`
	}
	raw := `{"a":12.5,"b":"1,200.75","c":null,"d":"n/a","e":"","f":true}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	cases := map[string]struct {
		got  Number
		want string
	}{
		"number":     {payload.A, "12.5"},
		"string":     {payload.B, "1200.75"},
		"null":       {payload.C, "0"},
		"garbage":    {payload.D, "0"},
		"empty":      {payload.E, "0"},
		"wrong type": {payload.F, "0"},
	}
	for name, tc := range cases {
		if tc.got.String() != tc.want {
			t.Fatalf("%s: want %s got %s", name, tc.want, tc.got.String())
		}
	}

	var missing struct {
		X Number `json:"x"`
	}
	_ = json.Unmarshal([]byte(`{}`), &missing)
	if !missing.X.IsZero() {
		t.Fatalf("missing field should be zero, got %s", missing.X.String())
	}
}

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	var payload struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":" 4600000012345 ","b":4600000012346,"c":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != "4600000012345" || payload.B != "4600000012346" || !payload.C.Empty() {
		t.Fatalf("unexpected ids %+v", payload)
	}
}

func TestParseTime(t *testing.T) {
	got := ParseTime("2026-02-03T10:15:00+0530")
	if got == nil {
		t.Fatal("expected zoho timestamp to parse")
	}
	want := time.Date(2026, 2, 3, 4, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v got %v", want, got)
	}
	if d := ParseTime("2026-02-03"); d == nil || d.Day() != 3 {
		t.Fatalf("expected date to parse, got %v", d)
	}
	if ParseTime("") != nil || ParseTime("yesterday") != nil {
		t.Fatal("expected nil for empty or invalid input")
	}
	if FormatTime(want) != "2026-02-03T04:45:00+0000" {
		t.Fatalf("unexpected format %q", FormatTime(want))
	}
}

func TestAddressSnapshot(t *testing.T) {
	var empty *Address
	if empty.Snapshot() != nil {
		t.Fatal("expected nil snapshot for nil address")
	}
	if (&Address{Attention: "Front desk"}).Snapshot() != nil {
		t.Fatal("expected nil snapshot without location data")
	}

	snap := (&Address{Address: " 1 Main St ", City: "Austin", Zip: "78701"}).Snapshot()
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if snap.Line1 != "1 Main St" || snap.PostalCode != "78701" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestOptional(t *testing.T) {
	if Optional("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
	if got := Optional(" x "); got == nil || *got != "x" {
		t.Fatalf("unexpected optional %v", got)
	}
}
