package postgres

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitdex/dexnode/internal/domain"
)

// Seeder populates empty catalog tables with the static default dataset and,
// when the buy book is empty, a small set of example offers. Every step is
// guarded by a count probe, so seeding is idempotent and concurrent callers
// degrade to no-ops.
type Seeder struct {
	countries  *CountryStore
	currencies *CurrencyStore
	payments   *PaymentMethodStore
	sellOffers *OfferStore
	buyOffers  *OfferStore
	myOffers   *MyOfferStore
}

// NewSeeder creates a Seeder over the given pool.
func NewSeeder(pool *pgxpool.Pool) (*Seeder, error) {
	sell, err := NewOfferStore(pool, TableOffersSell)
	if err != nil {
		return nil, err
	}
	buy, err := NewOfferStore(pool, TableOffersBuy)
	if err != nil {
		return nil, err
	}
	return &Seeder{
		countries:  NewCountryStore(pool),
		currencies: NewCurrencyStore(pool),
		payments:   NewPaymentMethodStore(pool),
		sellOffers: sell,
		buyOffers:  buy,
		myOffers:   NewMyOfferStore(pool),
	}, nil
}

// Run seeds all empty tables. Currencies go first so country rows can
// reference their numeric ids.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.seedCurrencies(ctx); err != nil {
		return err
	}
	if err := s.seedCountries(ctx); err != nil {
		return err
	}
	if err := s.seedPaymentMethods(ctx); err != nil {
		return err
	}
	return s.seedExampleOffers(ctx)
}

func (s *Seeder) seedCurrencies(ctx context.Context) error {
	count, err := s.currencies.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed currencies: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, c := range defaultCurrencies {
		if err := s.currencies.Insert(ctx, c); err != nil {
			return fmt.Errorf("seed currencies: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedCountries(ctx context.Context) error {
	count, err := s.countries.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed countries: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, dc := range defaultCountries {
		cur, err := s.currencies.Get(ctx, dc.currencyISO)
		if err != nil {
			return fmt.Errorf("seed countries: currency %s: %w", dc.currencyISO, err)
		}
		c := domain.Country{
			ISO:        dc.iso,
			Name:       dc.name,
			CurrencyID: cur.ID,
			Enabled:    true,
			SortOrder:  domain.SortOrderUnset,
		}
		if err := s.countries.Insert(ctx, c); err != nil {
			return fmt.Errorf("seed countries: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedPaymentMethods(ctx context.Context) error {
	count, err := s.payments.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed payment methods: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, pm := range defaultPaymentMethods {
		if err := s.payments.Insert(ctx, pm); err != nil {
			return fmt.Errorf("seed payment methods: %w", err)
		}
	}
	return nil
}

// seedExampleOffers inserts a handful of example offers so a fresh node shows
// a non-empty book. Transaction ids are random placeholders; the records are
// replaced as real offers arrive from the ledger.
func (s *Seeder) seedExampleOffers(ctx context.Context) error {
	count, err := s.buyOffers.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed offers: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().Unix()
	for _, ex := range exampleBuyOffers {
		o := exampleOffer(ex, now)
		if err := s.buyOffers.Insert(ctx, o); err != nil {
			return fmt.Errorf("seed offers: %w", err)
		}
	}

	sell := exampleOffer(exampleSellOffer, now)
	if err := s.sellOffers.Insert(ctx, sell); err != nil {
		return fmt.Errorf("seed offers: %w", err)
	}

	my := domain.MyOffer{Offer: sell, Type: domain.OfferTypeBuy, Status: domain.StatusDraft}
	if err := s.myOffers.Insert(ctx, my); err != nil {
		return fmt.Errorf("seed offers: %w", err)
	}
	return nil
}

type exampleOfferData struct {
	country   string
	currency  string
	payment   byte
	price     uint64
	minAmount uint64
	ttl       uint32
	shortInfo string
}

func exampleOffer(ex exampleOfferData, now int64) domain.Offer {
	o := domain.Offer{
		TxID:             randomHash(),
		CountryISO:       ex.country,
		CurrencyISO:      ex.currency,
		PaymentMethod:    ex.payment,
		Price:            ex.price,
		MinAmount:        ex.minAmount,
		TimeCreate:       now,
		TimeToExpiration: ex.ttl,
		ShortInfo:        ex.shortInfo,
	}
	o.Hash = o.ContentHash()
	return o
}

func randomHash() domain.Hash256 {
	var h domain.Hash256
	_, _ = rand.Read(h[:])
	return h
}

var exampleBuyOffers = []exampleOfferData{
	{country: "RU", currency: "RUB", payment: 1, price: 1234567, minAmount: 10000, ttl: 10, shortInfo: "first info"},
	{country: "RU", currency: "RUB", payment: 128, price: 12567, minAmount: 1000, shortInfo: "fourth info"},
	{country: "UA", currency: "UAH", payment: 1, price: 345435, minAmount: 40000, shortInfo: "second info"},
	{country: "US", currency: "USD", payment: 1, price: 567657567, minAmount: 50000, shortInfo: "third info"},
	{country: "AU", currency: "AUD", payment: 1, price: 432657567, minAmount: 5000, shortInfo: "fifth info"},
}

var exampleSellOffer = exampleOfferData{
	country: "US", currency: "USD", payment: 1, price: 1111111, minAmount: 1000, shortInfo: "some info",
}

var defaultCurrencies = []domain.Currency{
	{ISO: "USD", Name: "US Dollar", Symbol: "$", Enabled: true, SortOrder: 0},
	{ISO: "EUR", Name: "Euro", Symbol: "€", Enabled: true, SortOrder: 1},
	{ISO: "RUB", Name: "Russian Ruble", Symbol: "₽", Enabled: true, SortOrder: 2},
	{ISO: "GBP", Name: "Pound Sterling", Symbol: "£", Enabled: true, SortOrder: 3},
	{ISO: "AUD", Name: "Australian Dollar", Symbol: "A$", Enabled: true, SortOrder: 4},
	{ISO: "CAD", Name: "Canadian Dollar", Symbol: "C$", Enabled: true, SortOrder: 5},
	{ISO: "CNY", Name: "Chinese Yuan", Symbol: "¥", Enabled: true, SortOrder: domain.SortOrderUnset},
	{ISO: "JPY", Name: "Japanese Yen", Symbol: "¥", Enabled: true, SortOrder: domain.SortOrderUnset},
	{ISO: "CHF", Name: "Swiss Franc", Symbol: "Fr", Enabled: true, SortOrder: domain.SortOrderUnset},
	{ISO: "UAH", Name: "Ukrainian Hryvnia", Symbol: "₴", Enabled: true, SortOrder: domain.SortOrderUnset},
	{ISO: "PLN", Name: "Polish Zloty", Symbol: "zł", Enabled: true, SortOrder: domain.SortOrderUnset},
	{ISO: "BRL", Name: "Brazilian Real", Symbol: "R$", Enabled: true, SortOrder: domain.SortOrderUnset},
	{ISO: "INR", Name: "Indian Rupee", Symbol: "₹", Enabled: true, SortOrder: domain.SortOrderUnset},
	{ISO: "TRY", Name: "Turkish Lira", Symbol: "₺", Enabled: true, SortOrder: domain.SortOrderUnset},
	{ISO: "SEK", Name: "Swedish Krona", Symbol: "kr", Enabled: true, SortOrder: domain.SortOrderUnset},
}

var defaultCountries = []struct {
	iso         string
	name        string
	currencyISO string
}{
	{"US", "United States", "USD"},
	{"GB", "United Kingdom", "GBP"},
	{"DE", "Germany", "EUR"},
	{"FR", "France", "EUR"},
	{"ES", "Spain", "EUR"},
	{"IT", "Italy", "EUR"},
	{"NL", "Netherlands", "EUR"},
	{"RU", "Russia", "RUB"},
	{"UA", "Ukraine", "UAH"},
	{"AU", "Australia", "AUD"},
	{"CA", "Canada", "CAD"},
	{"CN", "China", "CNY"},
	{"JP", "Japan", "JPY"},
	{"CH", "Switzerland", "CHF"},
	{"PL", "Poland", "PLN"},
	{"BR", "Brazil", "BRL"},
	{"IN", "India", "INR"},
	{"TR", "Turkey", "TRY"},
	{"SE", "Sweden", "SEK"},
}

var defaultPaymentMethods = []domain.PaymentMethod{
	{Type: 1, Name: "Cash", Description: "Cash payment in person", SortOrder: 0},
	{Type: 128, Name: "Online", Description: "Online payment systems and bank transfer", SortOrder: 1},
}
