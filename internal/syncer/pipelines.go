package syncer

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/zohosync-backend/internal/customers"
	"github.com/angelmondragon/zohosync-backend/internal/invoices"
	"github.com/angelmondragon/zohosync-backend/internal/items"
	"github.com/angelmondragon/zohosync-backend/internal/orders"
	"github.com/angelmondragon/zohosync-backend/internal/shipments"
	"github.com/angelmondragon/zohosync-backend/pkg/db"
	"github.com/angelmondragon/zohosync-backend/pkg/db/models"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

// RecordFetcher loads single upstream records for on-demand resolution.
type RecordFetcher interface {
	Get(ctx context.Context, entity enums.SyncEntity, id string) (json.RawMessage, error)
}

// PipelineDeps carries what the entity pipelines share.
type PipelineDeps struct {
	DB               *gorm.DB
	Records          RecordFetcher
	DefaultWarehouse string
	Logger           *logger.Logger
	// LoadDetails fetches full orders and invoices when list pages carry no
	// line items.
	LoadDetails bool
}

// BuildPipelines assembles one pipeline per entity over the shared database.
func BuildPipelines(deps PipelineDeps) ([]Pipeline, error) {
	if deps.DB == nil {
		return nil, errors.New("db required")
	}
	if deps.Records == nil {
		return nil, errors.New("record fetcher required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger required")
	}

	client := db.Wrap(deps.DB)
	itemRepo := items.NewRepository(deps.DB)
	customerRepo := customers.NewRepository(deps.DB)
	orderRepo := orders.NewRepository(deps.DB)
	invoiceRepo := invoices.NewRepository(deps.DB)
	shipmentRepo := shipments.NewRepository(deps.DB)

	var details RecordFetcher
	if deps.LoadDetails {
		details = deps.Records
	}

	customerTransformer := customers.NewTransformer()
	resolver, err := customers.NewResolver(customers.ResolverParams{
		Repo:        customerRepo,
		Fetcher:     deps.Records,
		Transformer: customerTransformer,
		Logger:      deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	orderTransformer, err := orders.NewTransformer(orders.TransformerParams{
		Customers: resolver,
		Items:     itemRepo,
		Fetcher:   details,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	invoiceTransformer, err := invoices.NewTransformer(invoices.TransformerParams{
		Customers: customerRepo,
		Orders:    orderRepo,
		Items:     itemRepo,
		Fetcher:   details,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	shipmentTransformer, err := shipments.NewTransformer(shipments.TransformerParams{
		Orders:           orderRepo,
		Customers:        customerRepo,
		DefaultWarehouse: deps.DefaultWarehouse,
	})
	if err != nil {
		return nil, err
	}

	itemPipeline, err := NewPipeline(PipelineParams[models.Item]{
		Entity:      enums.SyncEntityItems,
		Transformer: items.NewTransformer(itemRepo),
		Store:       itemRepo,
		Scope: txScope(client, func(tx *gorm.DB) (Store[models.Item], ChildReplacer[models.Item]) {
			return itemRepo.WithTx(tx), nil
		}),
		Key:    func(i *models.Item) string { return i.LegacyItemID },
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	customerPipeline, err := NewPipeline(PipelineParams[models.Customer]{
		Entity:      enums.SyncEntityCustomers,
		Transformer: customerTransformer,
		Store:       customerRepo,
		Scope: txScope(client, func(tx *gorm.DB) (Store[models.Customer], ChildReplacer[models.Customer]) {
			return customerRepo.WithTx(tx), nil
		}),
		Key:    func(c *models.Customer) string { return c.ZohoCustomerID },
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	orderPipeline, err := NewPipeline(PipelineParams[models.Order]{
		Entity:      enums.SyncEntityOrders,
		Transformer: orderTransformer,
		Store:       orderRepo,
		Children:    orderRepo.ReplaceLineItems,
		Scope: txScope(client, func(tx *gorm.DB) (Store[models.Order], ChildReplacer[models.Order]) {
			repo := orderRepo.WithTx(tx)
			return repo, repo.ReplaceLineItems
		}),
		Key:    func(o *models.Order) string { return o.LegacyOrderID },
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	invoicePipeline, err := NewPipeline(PipelineParams[models.Invoice]{
		Entity:      enums.SyncEntityInvoices,
		Transformer: invoiceTransformer,
		Store:       invoiceRepo,
		Children:    invoiceRepo.ReplaceItems,
		Scope: txScope(client, func(tx *gorm.DB) (Store[models.Invoice], ChildReplacer[models.Invoice]) {
			repo := invoiceRepo.WithTx(tx)
			return repo, repo.ReplaceItems
		}),
		Key:    func(i *models.Invoice) string { return i.LegacyInvoiceID },
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	shipmentPipeline, err := NewPipeline(PipelineParams[models.Shipment]{
		Entity:      enums.SyncEntityPackages,
		Transformer: shipmentTransformer,
		Store:       shipmentRepo,
		Scope: txScope(client, func(tx *gorm.DB) (Store[models.Shipment], ChildReplacer[models.Shipment]) {
			return shipmentRepo.WithTx(tx), nil
		}),
		Key:    func(s *models.Shipment) string { return s.ExternalPackageID },
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	return []Pipeline{itemPipeline, customerPipeline, orderPipeline, invoicePipeline, shipmentPipeline}, nil
}

// txScope binds tx-scoped repositories for each record write.
func txScope[T any](client *db.Client, bind func(tx *gorm.DB) (Store[T], ChildReplacer[T])) WriteScope[T] {
	return func(ctx context.Context, fn func(store Store[T], children ChildReplacer[T]) error) error {
		return client.WithTx(ctx, func(tx *gorm.DB) error {
			return fn(bind(tx))
		})
	}
}
