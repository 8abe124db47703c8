package enums

import "fmt"

// SyncEntity names an upstream collection mirrored locally.
type SyncEntity string

const (
	SyncEntityItems     SyncEntity = "items"
	SyncEntityCustomers SyncEntity = "customers"
	SyncEntityOrders    SyncEntity = "orders"
	SyncEntityInvoices  SyncEntity = "invoices"
	SyncEntityPackages  SyncEntity = "packages"
)

// SyncOrder is the dependency order a full run walks. Orders need customers and
// items; invoices and packages need orders.
var SyncOrder = []SyncEntity{
	SyncEntityItems,
	SyncEntityCustomers,
	SyncEntityOrders,
	SyncEntityInvoices,
	SyncEntityPackages,
}

var syncDependencies = map[SyncEntity][]SyncEntity{
	SyncEntityOrders:   {SyncEntityItems, SyncEntityCustomers},
	SyncEntityInvoices: {SyncEntityItems, SyncEntityCustomers, SyncEntityOrders},
	SyncEntityPackages: {SyncEntityCustomers, SyncEntityOrders},
}

// Dependencies lists the entities whose rows s resolves references against.
func (s SyncEntity) Dependencies() []SyncEntity {
	return syncDependencies[s]
}

// String implements fmt.Stringer.
func (s SyncEntity) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncEntity.
func (s SyncEntity) IsValid() bool {
	for _, candidate := range SyncOrder {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncEntity converts raw input into a SyncEntity.
func ParseSyncEntity(value string) (SyncEntity, error) {
	for _, candidate := range SyncOrder {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync entity %q", value)
}
