package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitdex/dexnode/internal/domain"
)

// Offer table names. The table name is interpolated into query text, so it
// must come from these constants, never from caller input.
const (
	TableOffersSell = "offers_sell"
	TableOffersBuy  = "offers_buy"
)

// OfferStore implements domain.OfferStore for one of the two public offer
// tables.
type OfferStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewOfferStore creates an OfferStore bound to table, which must be
// TableOffersSell or TableOffersBuy.
func NewOfferStore(pool *pgxpool.Pool, table string) (*OfferStore, error) {
	if table != TableOffersSell && table != TableOffersBuy {
		return nil, fmt.Errorf("postgres: unknown offer table %q", table)
	}
	return &OfferStore{pool: pool, table: table}, nil
}

const offerCols = `id_transaction, hash, country_iso, currency_iso, payment_method,
	price, min_amount, time_create, time_to_expiration, short_info, details`

func scanOffer(row pgx.Row) (domain.Offer, error) {
	var o domain.Offer
	var idHex, hashHex string
	var paymentMethod int16
	var price, minAmount, tte int64
	err := row.Scan(&idHex, &hashHex, &o.CountryISO, &o.CurrencyISO, &paymentMethod,
		&price, &minAmount, &o.TimeCreate, &tte, &o.ShortInfo, &o.Details)
	if err != nil {
		return domain.Offer{}, err
	}
	if o.TxID, err = domain.Hash256FromHex(idHex); err != nil {
		return domain.Offer{}, err
	}
	if o.Hash, err = domain.Hash256FromHex(hashHex); err != nil {
		return domain.Offer{}, err
	}
	o.PaymentMethod = byte(paymentMethod)
	o.Price = uint64(price)
	o.MinAmount = uint64(minAmount)
	o.TimeToExpiration = uint32(tte)
	return o, nil
}

func offerArgs(o domain.Offer) []any {
	return []any{
		o.TxID.Hex(), o.Hash.Hex(), o.CountryISO, o.CurrencyISO, int16(o.PaymentMethod),
		int64(o.Price), int64(o.MinAmount), o.TimeCreate, int64(o.TimeToExpiration),
		o.ShortInfo, o.Details,
	}
}

// List returns the full collection.
func (s *OfferStore) List(ctx context.Context) ([]domain.Offer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+offerCols+` FROM `+s.table)
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", s.table, err)
	}
	defer rows.Close()

	var list []domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", s.table, err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list %s rows: %w", s.table, err)
	}
	return list, nil
}

// Get retrieves an offer by carrier transaction id.
func (s *OfferStore) Get(ctx context.Context, txID domain.Hash256) (domain.Offer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+offerCols+` FROM `+s.table+` WHERE id_transaction = $1`, txID.Hex())
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Offer{}, domain.ErrNotFound
		}
		return domain.Offer{}, fmt.Errorf("postgres: get %s %s: %w", s.table, txID, err)
	}
	return o, nil
}

// Insert adds an offer row.
func (s *OfferStore) Insert(ctx context.Context, o domain.Offer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (`+offerCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		offerArgs(o)...)
	if err != nil {
		return fmt.Errorf("postgres: insert %s %s: %w", s.table, o.TxID, err)
	}
	return nil
}

// Update rewrites an offer row keyed by carrier transaction id.
func (s *OfferStore) Update(ctx context.Context, o domain.Offer) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE `+s.table+` SET hash = $2, country_iso = $3, currency_iso = $4,
		 payment_method = $5, price = $6, min_amount = $7, time_create = $8,
		 time_to_expiration = $9, short_info = $10, details = $11
		 WHERE id_transaction = $1`,
		offerArgs(o)...)
	if err != nil {
		return fmt.Errorf("postgres: update %s %s: %w", s.table, o.TxID, err)
	}
	return nil
}

// Delete removes an offer row.
func (s *OfferStore) Delete(ctx context.Context, txID domain.Hash256) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.table+` WHERE id_transaction = $1`, txID.Hex())
	if err != nil {
		return fmt.Errorf("postgres: delete %s %s: %w", s.table, txID, err)
	}
	return nil
}

// Exists probes for an offer row via a count query.
func (s *OfferStore) Exists(ctx context.Context, txID domain.Hash256) (bool, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+s.table+` WHERE id_transaction = $1`, txID.Hex(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("postgres: exists %s %s: %w", s.table, txID, err)
	}
	return count > 0, nil
}

// Count returns the number of offer rows.
func (s *OfferStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+s.table).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", s.table, err)
	}
	return count, nil
}

var _ domain.OfferStore = (*OfferStore)(nil)
