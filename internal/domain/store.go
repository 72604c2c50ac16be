package domain

import "context"

// CountryStore persists the country catalog.
type CountryStore interface {
	List(ctx context.Context) ([]Country, error)
	Get(ctx context.Context, iso string) (Country, error)
	Insert(ctx context.Context, c Country) error
	Update(ctx context.Context, c Country) error
	UpdateOrder(ctx context.Context, iso string, enabled bool, sortOrder int) error
	Delete(ctx context.Context, iso string) error
	Count(ctx context.Context) (int64, error)
}

// CurrencyStore persists the currency catalog.
type CurrencyStore interface {
	List(ctx context.Context) ([]Currency, error)
	Get(ctx context.Context, iso string) (Currency, error)
	Insert(ctx context.Context, c Currency) error
	Update(ctx context.Context, c Currency) error
	UpdateOrder(ctx context.Context, iso string, enabled bool, sortOrder int) error
	Delete(ctx context.Context, iso string) error
	Count(ctx context.Context) (int64, error)
}

// PaymentMethodStore persists the payment method catalog.
type PaymentMethodStore interface {
	List(ctx context.Context) ([]PaymentMethod, error)
	Get(ctx context.Context, typ byte) (PaymentMethod, error)
	Insert(ctx context.Context, pm PaymentMethod) error
	Update(ctx context.Context, pm PaymentMethod) error
	Delete(ctx context.Context, typ byte) error
	Count(ctx context.Context) (int64, error)
}

// OfferStore persists one public offer collection (the sell book or the buy
// book), keyed by carrier transaction id.
type OfferStore interface {
	List(ctx context.Context) ([]Offer, error)
	Get(ctx context.Context, txID Hash256) (Offer, error)
	Insert(ctx context.Context, o Offer) error
	Update(ctx context.Context, o Offer) error
	Delete(ctx context.Context, txID Hash256) error
	Exists(ctx context.Context, txID Hash256) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// MyOfferStore persists the local user's offers.
type MyOfferStore interface {
	List(ctx context.Context) ([]MyOffer, error)
	Get(ctx context.Context, txID Hash256) (MyOffer, error)
	Insert(ctx context.Context, o MyOffer) error
	Update(ctx context.Context, o MyOffer) error
	Delete(ctx context.Context, txID Hash256) error
	Exists(ctx context.Context, txID Hash256) (bool, error)
}

// FilterStore persists the user's saved offer text filters.
type FilterStore interface {
	List(ctx context.Context) ([]string, error)
	Insert(ctx context.Context, filter string) error
	Delete(ctx context.Context, filter string) error
}
