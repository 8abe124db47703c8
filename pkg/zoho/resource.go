package zoho

import (
	"fmt"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
)

// Resource describes where an entity lives upstream and how its payloads are keyed.
type Resource struct {
	Path      string
	ListKey   string
	SingleKey string
}

var resources = map[enums.SyncEntity]Resource{
	enums.SyncEntityItems:     {Path: "items", ListKey: "items", SingleKey: "item"},
	enums.SyncEntityCustomers: {Path: "contacts", ListKey: "contacts", SingleKey: "contact"},
	enums.SyncEntityOrders:    {Path: "salesorders", ListKey: "salesorders", SingleKey: "salesorder"},
	enums.SyncEntityInvoices:  {Path: "invoices", ListKey: "invoices", SingleKey: "invoice"},
	enums.SyncEntityPackages:  {Path: "packages", ListKey: "packages", SingleKey: "package"},
}

// ResourceFor returns the upstream resource for entity.
func ResourceFor(entity enums.SyncEntity) (Resource, error) {
	res, ok := resources[entity]
	if !ok {
		return Resource{}, fmt.Errorf("no upstream resource for entity %q", entity)
	}
	return res, nil
}
