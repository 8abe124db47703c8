package customers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/zohosync-backend/pkg/db"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

// RecordFetcher fetches a single upstream record.
type RecordFetcher interface {
	Get(ctx context.Context, entity enums.SyncEntity, id string) (json.RawMessage, error)
}

// ResolverParams wires a Resolver.
type ResolverParams struct {
	Repo        Repository
	Fetcher     RecordFetcher
	Transformer *Transformer
	Logger      *logger.Logger
}

// Resolver maps upstream customer ids to local ids for orders. A customer that
// has not been mirrored yet is fetched and created on the spot.
type Resolver struct {
	repo        Repository
	fetcher     RecordFetcher
	transformer *Transformer
	logg        *logger.Logger
}

func NewResolver(p ResolverParams) (*Resolver, error) {
	if p.Repo == nil {
		return nil, errors.New("customers repository required")
	}
	if p.Fetcher == nil {
		return nil, errors.New("record fetcher required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	if p.Transformer == nil {
		p.Transformer = NewTransformer()
	}
	return &Resolver{
		repo:        p.Repo,
		fetcher:     p.Fetcher,
		transformer: p.Transformer,
		logg:        p.Logger,
	}, nil
}

// Resolve returns the local id for zohoCustomerID. It returns a CodeNotFound
// error when the customer is unknown locally and cannot be fetched.
func (r *Resolver) Resolve(ctx context.Context, zohoCustomerID string) (uuid.UUID, error) {
	zohoCustomerID = strings.TrimSpace(zohoCustomerID)
	if zohoCustomerID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer id is empty")
	}

	id, err := r.repo.FindIDByZohoID(ctx, zohoCustomerID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}
	if id != nil {
		return *id, nil
	}

	ctx = r.logg.WithField(ctx, "external_id", zohoCustomerID)
	r.logg.Info(ctx, "customer missing locally, fetching on demand")

	raw, err := r.fetcher.Get(ctx, enums.SyncEntityCustomers, zohoCustomerID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "fetch customer "+zohoCustomerID)
	}
	customer, err := r.transformer.Transform(ctx, raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "transform customer "+zohoCustomerID)
	}

	existing, found, err := r.repo.FindExisting(ctx, customer)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}
	if found {
		if err := r.repo.Update(ctx, existing, customer); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update customer")
		}
		return existing, nil
	}

	if err := r.repo.Create(ctx, customer); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
		}
		// lost a race with another writer; the row exists now
		id, lookupErr := r.repo.FindIDByZohoID(ctx, customer.ZohoCustomerID)
		if lookupErr != nil || id == nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
		}
		return *id, nil
	}

	r.logg.Info(r.logg.WithField(ctx, "customer_id", customer.ID.String()), "customer created on demand")
	return customer.ID, nil
}
