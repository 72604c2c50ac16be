// Package dexdb is the local offer store: a cached, persistently backed index
// of offers and reference data keyed by carrier transaction id.
//
// Reads prefer per-collection in-memory caches. Every mutation invalidates
// the collection cache synchronously and then submits the SQL write to a
// single-writer queue that runs concurrently with the caller; the caller
// never blocks on disk I/O and receives no completion signal.
//
// This is a deliberately weak consistency contract: no operation guarantees
// that its own write is visible to an immediately following read, only that
// the write eventually reaches the underlying store once the queue drains.
// Wait flushes the queue for tests and shutdown. Queue failures are logged,
// not returned.
package dexdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bitdex/dexnode/internal/domain"
)

// writeQueueDepth bounds pending write units; submission blocks once the
// queue is full rather than dropping writes.
const writeQueueDepth = 256

// Stores bundles the persistent backends for every collection.
type Stores struct {
	Countries      domain.CountryStore
	Currencies     domain.CurrencyStore
	PaymentMethods domain.PaymentMethodStore
	SellOffers     domain.OfferStore
	BuyOffers      domain.OfferStore
	MyOffers       domain.MyOfferStore
	Filters        domain.FilterStore
}

type writeJob struct {
	id  string
	op  string
	run func(ctx context.Context) error
}

// DB is the local offer store. All mutations for one DB instance are
// serialized through a single writer goroutine, so the storage engine never
// sees concurrent statements from this instance.
type DB struct {
	stores Stores
	logger *slog.Logger

	countries  listCache[domain.Country]
	currencies listCache[domain.Currency]
	payments   listCache[domain.PaymentMethod]
	sellOffers listCache[domain.Offer]
	buyOffers  listCache[domain.Offer]

	jobs      chan writeJob
	done      chan struct{}
	closeOnce sync.Once

	// closeMu lets Close fence off new submissions before the jobs channel
	// is closed; a send racing Close would otherwise panic.
	closeMu sync.RWMutex
	closed  bool
}

// New creates a DB over the given stores and starts its writer goroutine.
func New(stores Stores, logger *slog.Logger) *DB {
	db := &DB{
		stores: stores,
		logger: logger.With(slog.String("component", "dexdb")),
		jobs:   make(chan writeJob, writeQueueDepth),
		done:   make(chan struct{}),
	}
	go db.writeLoop()
	return db
}

// Close stops accepting writes and waits for the queue to drain. Mutations
// submitted after Close are dropped.
func (db *DB) Close() {
	db.closeOnce.Do(func() {
		db.closeMu.Lock()
		db.closed = true
		db.closeMu.Unlock()
		close(db.jobs)
		<-db.done
	})
}

// submit hands a job to the writer queue. It reports false once Close has
// fenced off the queue; the writer goroutine keeps draining while submitters
// hold the read lock, so a full queue cannot deadlock against Close.
func (db *DB) submit(job writeJob) bool {
	db.closeMu.RLock()
	defer db.closeMu.RUnlock()
	if db.closed {
		return false
	}
	db.jobs <- job
	return true
}

// Wait blocks until every write submitted before the call has completed, or
// ctx is cancelled. After Close the queue is already drained and Wait returns
// immediately.
func (db *DB) Wait(ctx context.Context) error {
	settled := make(chan struct{})
	ok := db.submit(writeJob{
		id: uuid.NewString(),
		op: "wait",
		run: func(context.Context) error {
			close(settled)
			return nil
		},
	})
	if !ok {
		return nil
	}
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (db *DB) writeLoop() {
	defer close(db.done)
	for job := range db.jobs {
		if err := job.run(context.Background()); err != nil {
			db.logger.Error("write unit failed",
				slog.String("op", job.op),
				slog.String("job_id", job.id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// invalidator lets nil stand in for collections without a cache.
type invalidator interface {
	invalidate()
}

// schedule is the single mutation path shared by every add/edit/delete:
// invalidate the collection cache first, then hand the write to the queue.
func (db *DB) schedule(cache invalidator, op string, run func(ctx context.Context) error) {
	if cache != nil {
		cache.invalidate()
	}
	job := writeJob{id: uuid.NewString(), op: op, run: run}
	if !db.submit(job) {
		db.logger.Warn("write unit dropped, store closed",
			slog.String("op", job.op),
			slog.String("job_id", job.id),
		)
	}
}

// ---------------------------------------------------------------------------
// Countries
// ---------------------------------------------------------------------------

// Countries returns the country catalog in display order, serving from the
// cache when populated.
func (db *DB) Countries(ctx context.Context) ([]domain.Country, error) {
	if list, ok := db.countries.get(); ok {
		return list, nil
	}
	list, err := db.stores.Countries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("dexdb: countries: %w", err)
	}
	domain.SortCountries(list)
	db.countries.set(list)
	return list, nil
}

// Country is a point lookup routed directly to storage.
func (db *DB) Country(ctx context.Context, iso string) (domain.Country, error) {
	c, err := db.stores.Countries.Get(ctx, iso)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Country{}, domain.ErrNotFound
		}
		return domain.Country{}, fmt.Errorf("dexdb: country %s: %w", iso, err)
	}
	return c, nil
}

// AddCountry schedules an insert of a country row.
func (db *DB) AddCountry(c domain.Country) {
	db.schedule(&db.countries, "add country", func(ctx context.Context) error {
		return db.stores.Countries.Insert(ctx, c)
	})
}

// EditCountry schedules an update of a country row.
func (db *DB) EditCountry(c domain.Country) {
	db.schedule(&db.countries, "edit country", func(ctx context.Context) error {
		return db.stores.Countries.Update(ctx, c)
	})
}

// EditCountries schedules a bulk reorder: each entry's sort order is
// re-derived from its position in list, position zero being the highest
// display priority.
func (db *DB) EditCountries(list []domain.Country) {
	ordered := make([]domain.Country, len(list))
	copy(ordered, list)
	db.schedule(&db.countries, "edit countries", func(ctx context.Context) error {
		for i, c := range ordered {
			if err := db.stores.Countries.UpdateOrder(ctx, c.ISO, c.Enabled, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCountry schedules removal of a country row.
func (db *DB) DeleteCountry(iso string) {
	db.schedule(&db.countries, "delete country", func(ctx context.Context) error {
		return db.stores.Countries.Delete(ctx, iso)
	})
}

// ---------------------------------------------------------------------------
// Currencies
// ---------------------------------------------------------------------------

// Currencies returns the currency catalog in display order, serving from the
// cache when populated.
func (db *DB) Currencies(ctx context.Context) ([]domain.Currency, error) {
	if list, ok := db.currencies.get(); ok {
		return list, nil
	}
	list, err := db.stores.Currencies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("dexdb: currencies: %w", err)
	}
	domain.SortCurrencies(list)
	db.currencies.set(list)
	return list, nil
}

// Currency is a point lookup routed directly to storage.
func (db *DB) Currency(ctx context.Context, iso string) (domain.Currency, error) {
	c, err := db.stores.Currencies.Get(ctx, iso)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Currency{}, domain.ErrNotFound
		}
		return domain.Currency{}, fmt.Errorf("dexdb: currency %s: %w", iso, err)
	}
	return c, nil
}

// AddCurrency schedules an insert of a currency row.
func (db *DB) AddCurrency(c domain.Currency) {
	db.schedule(&db.currencies, "add currency", func(ctx context.Context) error {
		return db.stores.Currencies.Insert(ctx, c)
	})
}

// EditCurrency schedules an update of a currency row.
func (db *DB) EditCurrency(c domain.Currency) {
	db.schedule(&db.currencies, "edit currency", func(ctx context.Context) error {
		return db.stores.Currencies.Update(ctx, c)
	})
}

// EditCurrencies schedules a bulk reorder analogous to EditCountries.
func (db *DB) EditCurrencies(list []domain.Currency) {
	ordered := make([]domain.Currency, len(list))
	copy(ordered, list)
	db.schedule(&db.currencies, "edit currencies", func(ctx context.Context) error {
		for i, c := range ordered {
			if err := db.stores.Currencies.UpdateOrder(ctx, c.ISO, c.Enabled, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCurrency schedules removal of a currency row.
func (db *DB) DeleteCurrency(iso string) {
	db.schedule(&db.currencies, "delete currency", func(ctx context.Context) error {
		return db.stores.Currencies.Delete(ctx, iso)
	})
}

// ---------------------------------------------------------------------------
// Payment methods
// ---------------------------------------------------------------------------

// PaymentMethods returns the payment method catalog in display order,
// serving from the cache when populated.
func (db *DB) PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	if list, ok := db.payments.get(); ok {
		return list, nil
	}
	list, err := db.stores.PaymentMethods.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("dexdb: payment methods: %w", err)
	}
	domain.SortPaymentMethods(list)
	db.payments.set(list)
	return list, nil
}

// PaymentMethod is a point lookup routed directly to storage.
func (db *DB) PaymentMethod(ctx context.Context, typ byte) (domain.PaymentMethod, error) {
	pm, err := db.stores.PaymentMethods.Get(ctx, typ)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PaymentMethod{}, domain.ErrNotFound
		}
		return domain.PaymentMethod{}, fmt.Errorf("dexdb: payment method %d: %w", typ, err)
	}
	return pm, nil
}

// AddPaymentMethod schedules an insert of a payment method row.
func (db *DB) AddPaymentMethod(pm domain.PaymentMethod) {
	db.schedule(&db.payments, "add payment method", func(ctx context.Context) error {
		return db.stores.PaymentMethods.Insert(ctx, pm)
	})
}

// EditPaymentMethod schedules an update of a payment method row.
func (db *DB) EditPaymentMethod(pm domain.PaymentMethod) {
	db.schedule(&db.payments, "edit payment method", func(ctx context.Context) error {
		return db.stores.PaymentMethods.Update(ctx, pm)
	})
}

// DeletePaymentMethod schedules removal of a payment method row.
func (db *DB) DeletePaymentMethod(typ byte) {
	db.schedule(&db.payments, "delete payment method", func(ctx context.Context) error {
		return db.stores.PaymentMethods.Delete(ctx, typ)
	})
}
