package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitdex/dexnode/internal/domain"
)

// CurrencyStore implements domain.CurrencyStore using PostgreSQL.
type CurrencyStore struct {
	pool *pgxpool.Pool
}

// NewCurrencyStore creates a new CurrencyStore backed by the given pool.
func NewCurrencyStore(pool *pgxpool.Pool) *CurrencyStore {
	return &CurrencyStore{pool: pool}
}

const currencyCols = `id, iso, name, symbol, enabled, sort_order`

// List returns every currency ordered by explicit sort order; the unset
// sentinel (-1) sorts last.
func (s *CurrencyStore) List(ctx context.Context) ([]domain.Currency, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+currencyCols+` FROM currencies
		 ORDER BY CASE WHEN sort_order = -1 THEN 2147483647 ELSE sort_order END, iso`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list currencies: %w", err)
	}
	defer rows.Close()

	var list []domain.Currency
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.ID, &c.ISO, &c.Name, &c.Symbol, &c.Enabled, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("postgres: scan currency: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list currencies rows: %w", err)
	}
	return list, nil
}

// Get retrieves a currency by its three-letter ISO code.
func (s *CurrencyStore) Get(ctx context.Context, iso string) (domain.Currency, error) {
	var c domain.Currency
	err := s.pool.QueryRow(ctx,
		`SELECT `+currencyCols+` FROM currencies WHERE iso = $1`, iso,
	).Scan(&c.ID, &c.ISO, &c.Name, &c.Symbol, &c.Enabled, &c.SortOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Currency{}, domain.ErrNotFound
		}
		return domain.Currency{}, fmt.Errorf("postgres: get currency %s: %w", iso, err)
	}
	return c, nil
}

// Insert adds a currency row. The numeric id is assigned by the database
// unless a non-zero id is provided.
func (s *CurrencyStore) Insert(ctx context.Context, c domain.Currency) error {
	var err error
	if c.ID != 0 {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO currencies (id, iso, name, symbol, enabled, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.ISO, c.Name, c.Symbol, c.Enabled, c.SortOrder)
	} else {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO currencies (iso, name, symbol, enabled, sort_order)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.ISO, c.Name, c.Symbol, c.Enabled, c.SortOrder)
	}
	if err != nil {
		return fmt.Errorf("postgres: insert currency %s: %w", c.ISO, err)
	}
	return nil
}

// Update rewrites all mutable fields of a currency row.
func (s *CurrencyStore) Update(ctx context.Context, c domain.Currency) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE currencies SET name = $2, symbol = $3, enabled = $4, sort_order = $5
		 WHERE iso = $1`,
		c.ISO, c.Name, c.Symbol, c.Enabled, c.SortOrder)
	if err != nil {
		return fmt.Errorf("postgres: update currency %s: %w", c.ISO, err)
	}
	return nil
}

// UpdateOrder rewrites only the enabled flag and sort position, used by bulk
// reordering.
func (s *CurrencyStore) UpdateOrder(ctx context.Context, iso string, enabled bool, sortOrder int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE currencies SET enabled = $2, sort_order = $3 WHERE iso = $1`,
		iso, enabled, sortOrder)
	if err != nil {
		return fmt.Errorf("postgres: update currency order %s: %w", iso, err)
	}
	return nil
}

// Delete removes a currency row.
func (s *CurrencyStore) Delete(ctx context.Context, iso string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM currencies WHERE iso = $1`, iso)
	if err != nil {
		return fmt.Errorf("postgres: delete currency %s: %w", iso, err)
	}
	return nil
}

// Count returns the number of currency rows.
func (s *CurrencyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM currencies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count currencies: %w", err)
	}
	return count, nil
}

var _ domain.CurrencyStore = (*CurrencyStore)(nil)
