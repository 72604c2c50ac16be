package dex

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/bitdex/dexnode/internal/dexdb"
	"github.com/bitdex/dexnode/internal/domain"
)

// memTable is the shared storage primitive behind the fake stores.
type memTable[K comparable, V any] struct {
	mu   sync.Mutex
	rows map[K]V
}

func newMemTable[K comparable, V any]() *memTable[K, V] {
	return &memTable[K, V]{rows: make(map[K]V)}
}

func (t *memTable[K, V]) list() []V {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]V, 0, len(t.rows))
	for _, v := range t.rows {
		out = append(out, v)
	}
	return out
}

func (t *memTable[K, V]) get(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.rows[k]
	return v, ok
}

func (t *memTable[K, V]) put(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[k] = v
}

func (t *memTable[K, V]) del(k K) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, k)
}

func (t *memTable[K, V]) count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(len(t.rows))
}

type fakeCountryStore struct{ *memTable[string, domain.Country] }

func (s fakeCountryStore) List(context.Context) ([]domain.Country, error) { return s.list(), nil }

func (s fakeCountryStore) Get(_ context.Context, iso string) (domain.Country, error) {
	c, ok := s.get(iso)
	if !ok {
		return domain.Country{}, domain.ErrNotFound
	}
	return c, nil
}

func (s fakeCountryStore) Insert(_ context.Context, c domain.Country) error {
	s.put(c.ISO, c)
	return nil
}

func (s fakeCountryStore) Update(_ context.Context, c domain.Country) error {
	s.put(c.ISO, c)
	return nil
}

func (s fakeCountryStore) UpdateOrder(_ context.Context, iso string, enabled bool, sortOrder int) error {
	c, _ := s.get(iso)
	c.ISO = iso
	c.Enabled = enabled
	c.SortOrder = sortOrder
	s.put(iso, c)
	return nil
}

func (s fakeCountryStore) Delete(_ context.Context, iso string) error {
	s.del(iso)
	return nil
}

func (s fakeCountryStore) Count(context.Context) (int64, error) { return s.count(), nil }

type fakeCurrencyStore struct{ *memTable[string, domain.Currency] }

func (s fakeCurrencyStore) List(context.Context) ([]domain.Currency, error) { return s.list(), nil }

func (s fakeCurrencyStore) Get(_ context.Context, iso string) (domain.Currency, error) {
	c, ok := s.get(iso)
	if !ok {
		return domain.Currency{}, domain.ErrNotFound
	}
	return c, nil
}

func (s fakeCurrencyStore) Insert(_ context.Context, c domain.Currency) error {
	s.put(c.ISO, c)
	return nil
}

func (s fakeCurrencyStore) Update(_ context.Context, c domain.Currency) error {
	s.put(c.ISO, c)
	return nil
}

func (s fakeCurrencyStore) UpdateOrder(_ context.Context, iso string, enabled bool, sortOrder int) error {
	c, _ := s.get(iso)
	c.ISO = iso
	c.Enabled = enabled
	c.SortOrder = sortOrder
	s.put(iso, c)
	return nil
}

func (s fakeCurrencyStore) Delete(_ context.Context, iso string) error {
	s.del(iso)
	return nil
}

func (s fakeCurrencyStore) Count(context.Context) (int64, error) { return s.count(), nil }

type fakePaymentMethodStore struct{ *memTable[byte, domain.PaymentMethod] }

func (s fakePaymentMethodStore) List(context.Context) ([]domain.PaymentMethod, error) {
	return s.list(), nil
}

func (s fakePaymentMethodStore) Get(_ context.Context, typ byte) (domain.PaymentMethod, error) {
	pm, ok := s.get(typ)
	if !ok {
		return domain.PaymentMethod{}, domain.ErrNotFound
	}
	return pm, nil
}

func (s fakePaymentMethodStore) Insert(_ context.Context, pm domain.PaymentMethod) error {
	s.put(pm.Type, pm)
	return nil
}

func (s fakePaymentMethodStore) Update(_ context.Context, pm domain.PaymentMethod) error {
	s.put(pm.Type, pm)
	return nil
}

func (s fakePaymentMethodStore) Delete(_ context.Context, typ byte) error {
	s.del(typ)
	return nil
}

func (s fakePaymentMethodStore) Count(context.Context) (int64, error) { return s.count(), nil }

type fakeOfferStore struct{ *memTable[domain.Hash256, domain.Offer] }

func (s fakeOfferStore) List(context.Context) ([]domain.Offer, error) { return s.list(), nil }

func (s fakeOfferStore) Get(_ context.Context, txID domain.Hash256) (domain.Offer, error) {
	o, ok := s.get(txID)
	if !ok {
		return domain.Offer{}, domain.ErrNotFound
	}
	return o, nil
}

func (s fakeOfferStore) Insert(_ context.Context, o domain.Offer) error {
	s.put(o.TxID, o)
	return nil
}

func (s fakeOfferStore) Update(_ context.Context, o domain.Offer) error {
	s.put(o.TxID, o)
	return nil
}

func (s fakeOfferStore) Delete(_ context.Context, txID domain.Hash256) error {
	s.del(txID)
	return nil
}

func (s fakeOfferStore) Exists(_ context.Context, txID domain.Hash256) (bool, error) {
	_, ok := s.get(txID)
	return ok, nil
}

func (s fakeOfferStore) Count(context.Context) (int64, error) { return s.count(), nil }

type fakeMyOfferStore struct{ *memTable[domain.Hash256, domain.MyOffer] }

func (s fakeMyOfferStore) List(context.Context) ([]domain.MyOffer, error) { return s.list(), nil }

func (s fakeMyOfferStore) Get(_ context.Context, txID domain.Hash256) (domain.MyOffer, error) {
	o, ok := s.get(txID)
	if !ok {
		return domain.MyOffer{}, domain.ErrNotFound
	}
	return o, nil
}

func (s fakeMyOfferStore) Insert(_ context.Context, o domain.MyOffer) error {
	s.put(o.TxID, o)
	return nil
}

func (s fakeMyOfferStore) Update(_ context.Context, o domain.MyOffer) error {
	s.put(o.TxID, o)
	return nil
}

func (s fakeMyOfferStore) Delete(_ context.Context, txID domain.Hash256) error {
	s.del(txID)
	return nil
}

func (s fakeMyOfferStore) Exists(_ context.Context, txID domain.Hash256) (bool, error) {
	_, ok := s.get(txID)
	return ok, nil
}

type fakeFilterStore struct{ *memTable[string, string] }

func (s fakeFilterStore) List(context.Context) ([]string, error) { return s.list(), nil }

func (s fakeFilterStore) Insert(_ context.Context, filter string) error {
	s.put(filter, filter)
	return nil
}

func (s fakeFilterStore) Delete(_ context.Context, filter string) error {
	s.del(filter)
	return nil
}

// fakeLedger is a scriptable ledger collaborator recording every broadcast.
type fakeLedger struct {
	mu           sync.Mutex
	confs        map[domain.Hash256]int
	unspent      []domain.Unspent
	nextTxID     domain.Hash256
	broadcastErr error
	broadcasts   []domain.RawTransaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{confs: make(map[domain.Hash256]int)}
}

func (l *fakeLedger) SignAndBroadcast(_ context.Context, tx domain.RawTransaction) (domain.Hash256, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.broadcastErr != nil {
		return domain.Hash256{}, l.broadcastErr
	}
	l.broadcasts = append(l.broadcasts, tx)
	return l.nextTxID, nil
}

func (l *fakeLedger) Confirmations(_ context.Context, txID domain.Hash256) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.confs[txID], nil
}

func (l *fakeLedger) ListUnspent(_ context.Context, minConf int) ([]domain.Unspent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Unspent
	for _, u := range l.unspent {
		if u.Confirmations >= minConf {
			out = append(out, u)
		}
	}
	return out, nil
}

func (l *fakeLedger) broadcastCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.broadcasts)
}

func (l *fakeLedger) lastBroadcast() domain.RawTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.broadcasts[len(l.broadcasts)-1]
}

// fakeBus records published payloads per channel.
type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][][]byte)}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (b *fakeBus) events(channel string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[channel]
}

type fixture struct {
	db     *dexdb.DB
	ledger *fakeLedger
	bus    *fakeBus
	proto  *Protocol
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dexdb.New(dexdb.Stores{
		Countries:      fakeCountryStore{newMemTable[string, domain.Country]()},
		Currencies:     fakeCurrencyStore{newMemTable[string, domain.Currency]()},
		PaymentMethods: fakePaymentMethodStore{newMemTable[byte, domain.PaymentMethod]()},
		SellOffers:     fakeOfferStore{newMemTable[domain.Hash256, domain.Offer]()},
		BuyOffers:      fakeOfferStore{newMemTable[domain.Hash256, domain.Offer]()},
		MyOffers:       fakeMyOfferStore{newMemTable[domain.Hash256, domain.MyOffer]()},
		Filters:        fakeFilterStore{newMemTable[string, string]()},
	}, slog.Default())
	t.Cleanup(db.Close)

	ledger := newFakeLedger()
	bus := newFakeBus()
	return &fixture{
		db:     db,
		ledger: ledger,
		bus:    bus,
		proto:  New(db, ledger, slog.Default()),
	}
}

// seedCatalogs installs the reference rows the test offers point at and
// drains the write queue so the protocol sees them.
func (f *fixture) seedCatalogs(t *testing.T) {
	t.Helper()
	f.db.AddCountry(domain.Country{ISO: "US", Name: "United States", CurrencyID: 1, Enabled: true})
	f.db.AddCurrency(domain.Currency{ID: 1, ISO: "USD", Name: "US Dollar", Enabled: true})
	f.db.AddPaymentMethod(domain.PaymentMethod{Type: 1, Name: "Cash"})
	if err := f.db.Wait(context.Background()); err != nil {
		t.Fatalf("settle writes: %v", err)
	}
}

func draftOffer() domain.Offer {
	return domain.Offer{
		CountryISO:       "US",
		CurrencyISO:      "USD",
		PaymentMethod:    1,
		Price:            1111111,
		MinAmount:        1000,
		TimeToExpiration: 3600,
		ShortInfo:        "some info",
	}
}
