package dexdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitdex/dexnode/internal/domain"
)

// book selects one of the two public offer collections.
type book struct {
	name  string
	cache *listCache[domain.Offer]
	store domain.OfferStore
}

func (db *DB) sellBook() book {
	return book{name: "sell offer", cache: &db.sellOffers, store: db.stores.SellOffers}
}

func (db *DB) buyBook() book {
	return book{name: "buy offer", cache: &db.buyOffers, store: db.stores.BuyOffers}
}

func (db *DB) offers(ctx context.Context, b book) ([]domain.Offer, error) {
	if list, ok := b.cache.get(); ok {
		return list, nil
	}
	list, err := b.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("dexdb: list %ss: %w", b.name, err)
	}
	b.cache.set(list)
	return list, nil
}

// offer is the defensive point-lookup path shared by both books: an
// existence probe followed by the select. A probe hit with a select miss
// means the store changed out from under us mid-lookup, which callers treat
// as fatal rather than retryable.
func (db *DB) offer(ctx context.Context, b book, txID domain.Hash256) (domain.Offer, error) {
	exists, err := b.store.Exists(ctx, txID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("dexdb: probe %s %s: %w", b.name, txID, err)
	}
	if !exists {
		return domain.Offer{}, domain.ErrNotFound
	}
	o, err := b.store.Get(ctx, txID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Offer{}, fmt.Errorf("dexdb: %s %s vanished after probe: %w",
				b.name, txID, domain.ErrInvalidState)
		}
		return domain.Offer{}, fmt.Errorf("dexdb: get %s %s: %w", b.name, txID, err)
	}
	return o, nil
}

func (db *DB) addOffer(b book, o domain.Offer) {
	db.schedule(b.cache, "add "+b.name, func(ctx context.Context) error {
		return b.store.Insert(ctx, o)
	})
}

func (db *DB) editOffer(b book, o domain.Offer) {
	db.schedule(b.cache, "edit "+b.name, func(ctx context.Context) error {
		return b.store.Update(ctx, o)
	})
}

func (db *DB) deleteOffer(b book, txID domain.Hash256) {
	db.schedule(b.cache, "delete "+b.name, func(ctx context.Context) error {
		return b.store.Delete(ctx, txID)
	})
}

// SellOffers returns the public sell book, serving from the cache when
// populated.
func (db *DB) SellOffers(ctx context.Context) ([]domain.Offer, error) {
	return db.offers(ctx, db.sellBook())
}

// SellOffer is a point lookup into the sell book.
func (db *DB) SellOffer(ctx context.Context, txID domain.Hash256) (domain.Offer, error) {
	return db.offer(ctx, db.sellBook(), txID)
}

// AddSellOffer schedules an insert into the sell book.
func (db *DB) AddSellOffer(o domain.Offer) { db.addOffer(db.sellBook(), o) }

// EditSellOffer schedules an update of a sell book row.
func (db *DB) EditSellOffer(o domain.Offer) { db.editOffer(db.sellBook(), o) }

// DeleteSellOffer schedules removal of a sell book row.
func (db *DB) DeleteSellOffer(txID domain.Hash256) { db.deleteOffer(db.sellBook(), txID) }

// IsExistSellOffer probes the sell book for a carrier transaction id.
func (db *DB) IsExistSellOffer(ctx context.Context, txID domain.Hash256) (bool, error) {
	return db.stores.SellOffers.Exists(ctx, txID)
}

// BuyOffers returns the public buy book, serving from the cache when
// populated.
func (db *DB) BuyOffers(ctx context.Context) ([]domain.Offer, error) {
	return db.offers(ctx, db.buyBook())
}

// BuyOffer is a point lookup into the buy book.
func (db *DB) BuyOffer(ctx context.Context, txID domain.Hash256) (domain.Offer, error) {
	return db.offer(ctx, db.buyBook(), txID)
}

// AddBuyOffer schedules an insert into the buy book.
func (db *DB) AddBuyOffer(o domain.Offer) { db.addOffer(db.buyBook(), o) }

// EditBuyOffer schedules an update of a buy book row.
func (db *DB) EditBuyOffer(o domain.Offer) { db.editOffer(db.buyBook(), o) }

// DeleteBuyOffer schedules removal of a buy book row.
func (db *DB) DeleteBuyOffer(txID domain.Hash256) { db.deleteOffer(db.buyBook(), txID) }

// IsExistBuyOffer probes the buy book for a carrier transaction id.
func (db *DB) IsExistBuyOffer(ctx context.Context, txID domain.Hash256) (bool, error) {
	return db.stores.BuyOffers.Exists(ctx, txID)
}

// ---------------------------------------------------------------------------
// My offers: no list cache. The collection mixes statuses that background
// reconciliation rewrites, so every list goes to storage.
// ---------------------------------------------------------------------------

// MyOffers returns every local offer, always loading from storage.
func (db *DB) MyOffers(ctx context.Context) ([]domain.MyOffer, error) {
	list, err := db.stores.MyOffers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("dexdb: my offers: %w", err)
	}
	return list, nil
}

// MyOffer is a defensive point lookup into the local offer collection.
func (db *DB) MyOffer(ctx context.Context, txID domain.Hash256) (domain.MyOffer, error) {
	exists, err := db.stores.MyOffers.Exists(ctx, txID)
	if err != nil {
		return domain.MyOffer{}, fmt.Errorf("dexdb: probe my offer %s: %w", txID, err)
	}
	if !exists {
		return domain.MyOffer{}, domain.ErrNotFound
	}
	o, err := db.stores.MyOffers.Get(ctx, txID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.MyOffer{}, fmt.Errorf("dexdb: my offer %s vanished after probe: %w",
				txID, domain.ErrInvalidState)
		}
		return domain.MyOffer{}, fmt.Errorf("dexdb: get my offer %s: %w", txID, err)
	}
	return o, nil
}

// AddMyOffer schedules an insert of a local offer.
func (db *DB) AddMyOffer(o domain.MyOffer) {
	db.schedule(nil, "add my offer", func(ctx context.Context) error {
		return db.stores.MyOffers.Insert(ctx, o)
	})
}

// EditMyOffer schedules an update of a local offer.
func (db *DB) EditMyOffer(o domain.MyOffer) {
	db.schedule(nil, "edit my offer", func(ctx context.Context) error {
		return db.stores.MyOffers.Update(ctx, o)
	})
}

// DeleteMyOffer schedules removal of a local offer.
func (db *DB) DeleteMyOffer(txID domain.Hash256) {
	db.schedule(nil, "delete my offer", func(ctx context.Context) error {
		return db.stores.MyOffers.Delete(ctx, txID)
	})
}

// IsExistMyOffer probes the local offer collection for a carrier transaction
// id.
func (db *DB) IsExistMyOffer(ctx context.Context, txID domain.Hash256) (bool, error) {
	return db.stores.MyOffers.Exists(ctx, txID)
}

// ---------------------------------------------------------------------------
// Filters: uncached string list.
// ---------------------------------------------------------------------------

// Filters returns the saved offer text filters, always loading from storage.
func (db *DB) Filters(ctx context.Context) ([]string, error) {
	list, err := db.stores.Filters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("dexdb: filters: %w", err)
	}
	return list, nil
}

// AddFilter schedules an insert of a filter string.
func (db *DB) AddFilter(filter string) {
	db.schedule(nil, "add filter", func(ctx context.Context) error {
		return db.stores.Filters.Insert(ctx, filter)
	})
}

// DeleteFilter schedules removal of a filter string.
func (db *DB) DeleteFilter(filter string) {
	db.schedule(nil, "delete filter", func(ctx context.Context) error {
		return db.stores.Filters.Delete(ctx, filter)
	})
}
