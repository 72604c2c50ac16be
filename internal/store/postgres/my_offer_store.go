package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitdex/dexnode/internal/domain"
)

// MyOfferStore implements domain.MyOfferStore using PostgreSQL.
type MyOfferStore struct {
	pool *pgxpool.Pool
}

// NewMyOfferStore creates a new MyOfferStore backed by the given pool.
func NewMyOfferStore(pool *pgxpool.Pool) *MyOfferStore {
	return &MyOfferStore{pool: pool}
}

const myOfferCols = offerCols + `, type, status`

func scanMyOffer(row pgx.Row) (domain.MyOffer, error) {
	var o domain.MyOffer
	var idHex, hashHex string
	var paymentMethod int16
	var price, minAmount, tte int64
	var typ, status int
	err := row.Scan(&idHex, &hashHex, &o.CountryISO, &o.CurrencyISO, &paymentMethod,
		&price, &minAmount, &o.TimeCreate, &tte, &o.ShortInfo, &o.Details,
		&typ, &status)
	if err != nil {
		return domain.MyOffer{}, err
	}
	if o.TxID, err = domain.Hash256FromHex(idHex); err != nil {
		return domain.MyOffer{}, err
	}
	if o.Hash, err = domain.Hash256FromHex(hashHex); err != nil {
		return domain.MyOffer{}, err
	}
	o.PaymentMethod = byte(paymentMethod)
	o.Price = uint64(price)
	o.MinAmount = uint64(minAmount)
	o.TimeToExpiration = uint32(tte)
	o.Type = domain.OfferType(typ)
	o.Status = domain.OfferStatus(status)
	return o, nil
}

// List returns every local offer. No ordering is applied; callers decide.
func (s *MyOfferStore) List(ctx context.Context) ([]domain.MyOffer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+myOfferCols+` FROM my_offers`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list my offers: %w", err)
	}
	defer rows.Close()

	var list []domain.MyOffer
	for rows.Next() {
		o, err := scanMyOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan my offer: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list my offers rows: %w", err)
	}
	return list, nil
}

// Get retrieves a local offer by carrier transaction id.
func (s *MyOfferStore) Get(ctx context.Context, txID domain.Hash256) (domain.MyOffer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+myOfferCols+` FROM my_offers WHERE id_transaction = $1`, txID.Hex())
	o, err := scanMyOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MyOffer{}, domain.ErrNotFound
		}
		return domain.MyOffer{}, fmt.Errorf("postgres: get my offer %s: %w", txID, err)
	}
	return o, nil
}

// Insert adds a local offer row.
func (s *MyOfferStore) Insert(ctx context.Context, o domain.MyOffer) error {
	args := append(offerArgs(o.Offer), int(o.Type), int(o.Status))
	_, err := s.pool.Exec(ctx,
		`INSERT INTO my_offers (`+myOfferCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		args...)
	if err != nil {
		return fmt.Errorf("postgres: insert my offer %s: %w", o.TxID, err)
	}
	return nil
}

// Update rewrites a local offer row keyed by carrier transaction id.
func (s *MyOfferStore) Update(ctx context.Context, o domain.MyOffer) error {
	args := append(offerArgs(o.Offer), int(o.Type), int(o.Status))
	_, err := s.pool.Exec(ctx,
		`UPDATE my_offers SET hash = $2, country_iso = $3, currency_iso = $4,
		 payment_method = $5, price = $6, min_amount = $7, time_create = $8,
		 time_to_expiration = $9, short_info = $10, details = $11,
		 type = $12, status = $13
		 WHERE id_transaction = $1`,
		args...)
	if err != nil {
		return fmt.Errorf("postgres: update my offer %s: %w", o.TxID, err)
	}
	return nil
}

// Delete removes a local offer row.
func (s *MyOfferStore) Delete(ctx context.Context, txID domain.Hash256) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM my_offers WHERE id_transaction = $1`, txID.Hex())
	if err != nil {
		return fmt.Errorf("postgres: delete my offer %s: %w", txID, err)
	}
	return nil
}

// Exists probes for a local offer row via a count query.
func (s *MyOfferStore) Exists(ctx context.Context, txID domain.Hash256) (bool, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM my_offers WHERE id_transaction = $1`, txID.Hex(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("postgres: exists my offer %s: %w", txID, err)
	}
	return count > 0, nil
}

var _ domain.MyOfferStore = (*MyOfferStore)(nil)
