package models

// SyncModels lists every table the sync owns, parents before children.
func SyncModels() []any {
	return []any{
		&Brand{},
		&Item{},
		&Customer{},
		&Order{},
		&OrderLineItem{},
		&Invoice{},
		&InvoiceItem{},
		&Shipment{},
		&SyncLogEntry{},
	}
}
