package dexdb

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitdex/dexnode/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory fakes. They implement the same contracts as the postgres stores;
// list order is left unspecified because the store sorts catalogs itself.
// ---------------------------------------------------------------------------

type memCountryStore struct {
	mu    sync.Mutex
	rows  map[string]domain.Country
	lists int
}

func newMemCountryStore() *memCountryStore {
	return &memCountryStore{rows: make(map[string]domain.Country)}
}

func (m *memCountryStore) List(context.Context) ([]domain.Country, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	out := make([]domain.Country, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCountryStore) Get(_ context.Context, iso string) (domain.Country, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[iso]
	if !ok {
		return domain.Country{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memCountryStore) Insert(_ context.Context, c domain.Country) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ISO] = c
	return nil
}

func (m *memCountryStore) Update(_ context.Context, c domain.Country) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ISO] = c
	return nil
}

func (m *memCountryStore) UpdateOrder(_ context.Context, iso string, enabled bool, sortOrder int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[iso]
	c.ISO = iso
	c.Enabled = enabled
	c.SortOrder = sortOrder
	m.rows[iso] = c
	return nil
}

func (m *memCountryStore) Delete(_ context.Context, iso string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, iso)
	return nil
}

func (m *memCountryStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memCountryStore) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

type memCurrencyStore struct {
	mu   sync.Mutex
	rows map[string]domain.Currency
}

func newMemCurrencyStore() *memCurrencyStore {
	return &memCurrencyStore{rows: make(map[string]domain.Currency)}
}

func (m *memCurrencyStore) List(context.Context) ([]domain.Currency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Currency, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCurrencyStore) Get(_ context.Context, iso string) (domain.Currency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[iso]
	if !ok {
		return domain.Currency{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memCurrencyStore) Insert(_ context.Context, c domain.Currency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ISO] = c
	return nil
}

func (m *memCurrencyStore) Update(_ context.Context, c domain.Currency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ISO] = c
	return nil
}

func (m *memCurrencyStore) UpdateOrder(_ context.Context, iso string, enabled bool, sortOrder int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[iso]
	c.ISO = iso
	c.Enabled = enabled
	c.SortOrder = sortOrder
	m.rows[iso] = c
	return nil
}

func (m *memCurrencyStore) Delete(_ context.Context, iso string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, iso)
	return nil
}

func (m *memCurrencyStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

type memPaymentMethodStore struct {
	mu   sync.Mutex
	rows map[byte]domain.PaymentMethod
}

func newMemPaymentMethodStore() *memPaymentMethodStore {
	return &memPaymentMethodStore{rows: make(map[byte]domain.PaymentMethod)}
}

func (m *memPaymentMethodStore) List(context.Context) ([]domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PaymentMethod, 0, len(m.rows))
	for _, pm := range m.rows {
		out = append(out, pm)
	}
	return out, nil
}

func (m *memPaymentMethodStore) Get(_ context.Context, typ byte) (domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.rows[typ]
	if !ok {
		return domain.PaymentMethod{}, domain.ErrNotFound
	}
	return pm, nil
}

func (m *memPaymentMethodStore) Insert(_ context.Context, pm domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[pm.Type] = pm
	return nil
}

func (m *memPaymentMethodStore) Update(_ context.Context, pm domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[pm.Type] = pm
	return nil
}

func (m *memPaymentMethodStore) Delete(_ context.Context, typ byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, typ)
	return nil
}

func (m *memPaymentMethodStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

type memOfferStore struct {
	mu          sync.Mutex
	rows        map[domain.Hash256]domain.Offer
	missAfterOK bool // Exists reports true but Get misses, for the defensive path
}

func newMemOfferStore() *memOfferStore {
	return &memOfferStore{rows: make(map[domain.Hash256]domain.Offer)}
}

func (m *memOfferStore) List(context.Context) ([]domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Offer, 0, len(m.rows))
	for _, o := range m.rows {
		out = append(out, o)
	}
	return out, nil
}

func (m *memOfferStore) Get(_ context.Context, txID domain.Hash256) (domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missAfterOK {
		return domain.Offer{}, domain.ErrNotFound
	}
	o, ok := m.rows[txID]
	if !ok {
		return domain.Offer{}, domain.ErrNotFound
	}
	return o, nil
}

func (m *memOfferStore) Insert(_ context.Context, o domain.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[o.TxID] = o
	return nil
}

func (m *memOfferStore) Update(_ context.Context, o domain.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[o.TxID] = o
	return nil
}

func (m *memOfferStore) Delete(_ context.Context, txID domain.Hash256) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, txID)
	return nil
}

func (m *memOfferStore) Exists(_ context.Context, txID domain.Hash256) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missAfterOK {
		return true, nil
	}
	_, ok := m.rows[txID]
	return ok, nil
}

func (m *memOfferStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

type memMyOfferStore struct {
	mu   sync.Mutex
	rows map[domain.Hash256]domain.MyOffer
}

func newMemMyOfferStore() *memMyOfferStore {
	return &memMyOfferStore{rows: make(map[domain.Hash256]domain.MyOffer)}
}

func (m *memMyOfferStore) List(context.Context) ([]domain.MyOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.MyOffer, 0, len(m.rows))
	for _, o := range m.rows {
		out = append(out, o)
	}
	return out, nil
}

func (m *memMyOfferStore) Get(_ context.Context, txID domain.Hash256) (domain.MyOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[txID]
	if !ok {
		return domain.MyOffer{}, domain.ErrNotFound
	}
	return o, nil
}

func (m *memMyOfferStore) Insert(_ context.Context, o domain.MyOffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[o.TxID] = o
	return nil
}

func (m *memMyOfferStore) Update(_ context.Context, o domain.MyOffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[o.TxID] = o
	return nil
}

func (m *memMyOfferStore) Delete(_ context.Context, txID domain.Hash256) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, txID)
	return nil
}

func (m *memMyOfferStore) Exists(_ context.Context, txID domain.Hash256) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[txID]
	return ok, nil
}

type memFilterStore struct {
	mu   sync.Mutex
	rows map[string]struct{}
}

func newMemFilterStore() *memFilterStore {
	return &memFilterStore{rows: make(map[string]struct{})}
}

func (m *memFilterStore) List(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rows))
	for f := range m.rows {
		out = append(out, f)
	}
	return out, nil
}

func (m *memFilterStore) Insert(_ context.Context, filter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[filter] = struct{}{}
	return nil
}

func (m *memFilterStore) Delete(_ context.Context, filter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, filter)
	return nil
}

type testStores struct {
	countries  *memCountryStore
	currencies *memCurrencyStore
	payments   *memPaymentMethodStore
	sell       *memOfferStore
	buy        *memOfferStore
	my         *memMyOfferStore
	filters    *memFilterStore
}

func newTestDB(t *testing.T) (*DB, testStores) {
	t.Helper()
	ts := testStores{
		countries:  newMemCountryStore(),
		currencies: newMemCurrencyStore(),
		payments:   newMemPaymentMethodStore(),
		sell:       newMemOfferStore(),
		buy:        newMemOfferStore(),
		my:         newMemMyOfferStore(),
		filters:    newMemFilterStore(),
	}
	db := New(Stores{
		Countries:      ts.countries,
		Currencies:     ts.currencies,
		PaymentMethods: ts.payments,
		SellOffers:     ts.sell,
		BuyOffers:      ts.buy,
		MyOffers:       ts.my,
		Filters:        ts.filters,
	}, slog.Default())
	t.Cleanup(db.Close)
	return db, ts
}

func testOffer(seed string) domain.Offer {
	o := domain.Offer{
		TxID:             domain.DoubleSHA256([]byte(seed)),
		CountryISO:       "US",
		CurrencyISO:      "USD",
		PaymentMethod:    1,
		Price:            1111111,
		MinAmount:        1000,
		TimeCreate:       1700000000,
		TimeToExpiration: 3600,
		ShortInfo:        "some info",
	}
	o.Hash = o.ContentHash()
	return o
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCountriesListUsesCache(t *testing.T) {
	db, ts := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, ts.countries.Insert(ctx, domain.Country{ISO: "US", Name: "United States", SortOrder: 0}))

	_, err := db.Countries(ctx)
	require.NoError(t, err)
	_, err = db.Countries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ts.countries.listCalls(), "second list must be served from cache")

	db.AddCountry(domain.Country{ISO: "DE", Name: "Germany", SortOrder: 1})
	require.NoError(t, db.Wait(ctx))

	list, err := db.Countries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.countries.listCalls(), "mutation must invalidate the cache")
	assert.Len(t, list, 2)
}

func TestWriteIsEventuallyVisible(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	o := testOffer("sell-1")
	exists, err := db.IsExistSellOffer(ctx, o.TxID)
	require.NoError(t, err)
	assert.False(t, exists)

	// Fire-and-forget: no visibility guarantee until the queue drains.
	db.AddSellOffer(o)
	require.NoError(t, db.Wait(ctx))

	exists, err = db.IsExistSellOffer(ctx, o.TxID)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := db.SellOffer(ctx, o.TxID)
	require.NoError(t, err)
	assert.Equal(t, o, got)
}

func TestDeleteThenReAdd(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	old := domain.Currency{ID: 1, ISO: "USD", Name: "old name", Enabled: true}
	db.AddCurrency(old)
	db.DeleteCurrency("USD")

	fresh := old
	fresh.Name = "US Dollar"
	db.AddCurrency(fresh)
	require.NoError(t, db.Wait(ctx))

	got, err := db.Currency(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, "US Dollar", got.Name)
}

func TestConcurrentAddsBothVisible(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, c := range []domain.Currency{
		{ID: 1, ISO: "USD", Name: "US Dollar", Enabled: true, SortOrder: 0},
		{ID: 2, ISO: "EUR", Name: "Euro", Enabled: true, SortOrder: 1},
	} {
		wg.Add(1)
		go func(c domain.Currency) {
			defer wg.Done()
			db.AddCurrency(c)
		}(c)
	}
	wg.Wait()
	require.NoError(t, db.Wait(ctx))

	list, err := db.Currencies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	isos := []string{list[0].ISO, list[1].ISO}
	assert.Contains(t, isos, "USD")
	assert.Contains(t, isos, "EUR")
}

func TestCurrenciesListOrder(t *testing.T) {
	db, ts := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, ts.currencies.Insert(ctx, domain.Currency{ID: 1, ISO: "USD", SortOrder: 2}))
	require.NoError(t, ts.currencies.Insert(ctx, domain.Currency{ID: 2, ISO: "EUR", SortOrder: domain.SortOrderUnset}))
	require.NoError(t, ts.currencies.Insert(ctx, domain.Currency{ID: 3, ISO: "RUB", SortOrder: 0}))

	list, err := db.Currencies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "RUB", list[0].ISO)
	assert.Equal(t, "USD", list[1].ISO)
	assert.Equal(t, "EUR", list[2].ISO)
}

func TestEditCurrenciesDerivesSortOrder(t *testing.T) {
	db, ts := newTestDB(t)
	ctx := context.Background()

	usd := domain.Currency{ID: 1, ISO: "USD", Enabled: true, SortOrder: 0}
	eur := domain.Currency{ID: 2, ISO: "EUR", Enabled: true, SortOrder: 1}
	require.NoError(t, ts.currencies.Insert(ctx, usd))
	require.NoError(t, ts.currencies.Insert(ctx, eur))

	// Reversed sequence: EUR becomes position 0.
	db.EditCurrencies([]domain.Currency{eur, usd})
	require.NoError(t, db.Wait(ctx))

	got, err := db.Currency(ctx, "EUR")
	require.NoError(t, err)
	assert.Equal(t, 0, got.SortOrder)

	got, err = db.Currency(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, 1, got.SortOrder)

	list, err := db.Currencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", list[0].ISO)
}

func TestOfferLookupMisses(t *testing.T) {
	db, ts := newTestDB(t)
	ctx := context.Background()

	_, err := db.BuyOffer(ctx, domain.DoubleSHA256([]byte("missing")))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Probe says the row exists but the select finds nothing: defensive
	// invalid-state contract, not a recoverable miss.
	ts.buy.missAfterOK = true
	_, err = db.BuyOffer(ctx, domain.DoubleSHA256([]byte("phantom")))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestMyOffersAlwaysReload(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	o := domain.MyOffer{Offer: testOffer("mine"), Type: domain.OfferTypeSell, Status: domain.StatusDraft}
	db.AddMyOffer(o)
	require.NoError(t, db.Wait(ctx))

	list, err := db.MyOffers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusDraft, list[0].Status)

	o.Status = domain.StatusPending
	db.EditMyOffer(o)
	require.NoError(t, db.Wait(ctx))

	list, err = db.MyOffers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusPending, list[0].Status)
}

func TestCloseRejectsLateWrites(t *testing.T) {
	db, ts := newTestDB(t)
	ctx := context.Background()

	db.AddFilter("kept")
	db.Close()

	// Mutations and Wait after Close must be dropped, not panic on the
	// closed queue.
	db.AddFilter("dropped")
	db.DeleteFilter("kept")
	require.NoError(t, db.Wait(ctx))

	list, err := ts.filters.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, list)
}

func TestFilters(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	db.AddFilter("bank")
	db.AddFilter("cash only")
	db.DeleteFilter("bank")
	require.NoError(t, db.Wait(ctx))

	list, err := db.Filters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cash only"}, list)
}
