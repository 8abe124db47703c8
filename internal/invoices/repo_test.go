package invoices

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/zohosync-backend/pkg/db/dbtest"
	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
)

func TestRepositoryUpsertAndReplaceItems(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	invoice := &models.Invoice{
		LegacyInvoiceID: "inv-1",
		Status:          enums.InvoiceStatusUnpaid,
		Balance:         decimal.NewFromInt(10),
		Items: []models.InvoiceItem{
			{ItemID: uuid.New(), SKU: "A", Name: "A"},
			{ItemID: uuid.New(), SKU: "B", Name: "B"},
		},
	}
	require.NoError(t, repo.Create(ctx, invoice))
	require.NoError(t, repo.ReplaceItems(ctx, invoice))

	orderID := uuid.New()
	next := &models.Invoice{
		LegacyInvoiceID: "inv-1",
		OrderID:         &orderID,
		Status:          enums.InvoiceStatusPaid,
		Items:           []models.InvoiceItem{{ItemID: uuid.New(), SKU: "C", Name: "C"}},
	}
	id, found, err := repo.FindExisting(ctx, next)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, invoice.ID, id)
	require.NoError(t, repo.Update(ctx, id, next))
	require.NoError(t, repo.ReplaceItems(ctx, next))

	items, err := repo.FindItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "C", items[0].SKU)

	var stored models.Invoice
	require.NoError(t, conn.WithContext(ctx).First(&stored, "id = ?", id).Error)
	assert.Equal(t, enums.InvoiceStatusPaid, stored.Status)
	require.NotNil(t, stored.OrderID)
	assert.Equal(t, orderID, *stored.OrderID)
}
