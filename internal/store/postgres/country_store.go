package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitdex/dexnode/internal/domain"
)

// CountryStore implements domain.CountryStore using PostgreSQL.
type CountryStore struct {
	pool *pgxpool.Pool
}

// NewCountryStore creates a new CountryStore backed by the given pool.
func NewCountryStore(pool *pgxpool.Pool) *CountryStore {
	return &CountryStore{pool: pool}
}

const countryCols = `iso, name, enabled, currency_id, sort_order`

// List returns every country ordered by explicit sort order; the unset
// sentinel (-1) sorts last.
func (s *CountryStore) List(ctx context.Context) ([]domain.Country, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+countryCols+` FROM countries
		 ORDER BY CASE WHEN sort_order = -1 THEN 2147483647 ELSE sort_order END, iso`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list countries: %w", err)
	}
	defer rows.Close()

	var list []domain.Country
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.ISO, &c.Name, &c.Enabled, &c.CurrencyID, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("postgres: scan country: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list countries rows: %w", err)
	}
	return list, nil
}

// Get retrieves a country by its two-letter ISO code.
func (s *CountryStore) Get(ctx context.Context, iso string) (domain.Country, error) {
	var c domain.Country
	err := s.pool.QueryRow(ctx,
		`SELECT `+countryCols+` FROM countries WHERE iso = $1`, iso,
	).Scan(&c.ISO, &c.Name, &c.Enabled, &c.CurrencyID, &c.SortOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Country{}, domain.ErrNotFound
		}
		return domain.Country{}, fmt.Errorf("postgres: get country %s: %w", iso, err)
	}
	return c, nil
}

// Insert adds a country row. The currency reference is resolved from the
// currencies table at insert time.
func (s *CountryStore) Insert(ctx context.Context, c domain.Country) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO countries (iso, name, enabled, currency_id, sort_order)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ISO, c.Name, c.Enabled, c.CurrencyID, c.SortOrder)
	if err != nil {
		return fmt.Errorf("postgres: insert country %s: %w", c.ISO, err)
	}
	return nil
}

// Update rewrites all mutable fields of a country row.
func (s *CountryStore) Update(ctx context.Context, c domain.Country) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE countries SET name = $2, enabled = $3, currency_id = $4, sort_order = $5
		 WHERE iso = $1`,
		c.ISO, c.Name, c.Enabled, c.CurrencyID, c.SortOrder)
	if err != nil {
		return fmt.Errorf("postgres: update country %s: %w", c.ISO, err)
	}
	return nil
}

// UpdateOrder rewrites only the enabled flag and sort position, used by bulk
// reordering.
func (s *CountryStore) UpdateOrder(ctx context.Context, iso string, enabled bool, sortOrder int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE countries SET enabled = $2, sort_order = $3 WHERE iso = $1`,
		iso, enabled, sortOrder)
	if err != nil {
		return fmt.Errorf("postgres: update country order %s: %w", iso, err)
	}
	return nil
}

// Delete removes a country row.
func (s *CountryStore) Delete(ctx context.Context, iso string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM countries WHERE iso = $1`, iso)
	if err != nil {
		return fmt.Errorf("postgres: delete country %s: %w", iso, err)
	}
	return nil
}

// Count returns the number of country rows.
func (s *CountryStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM countries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count countries: %w", err)
	}
	return count, nil
}

var _ domain.CountryStore = (*CountryStore)(nil)
