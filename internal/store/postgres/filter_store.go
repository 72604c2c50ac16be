package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitdex/dexnode/internal/domain"
)

// FilterStore implements domain.FilterStore using PostgreSQL.
type FilterStore struct {
	pool *pgxpool.Pool
}

// NewFilterStore creates a new FilterStore backed by the given pool.
func NewFilterStore(pool *pgxpool.Pool) *FilterStore {
	return &FilterStore{pool: pool}
}

// List returns every saved filter string.
func (s *FilterStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT filter FROM filter_list ORDER BY filter`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list filters: %w", err)
	}
	defer rows.Close()

	var list []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("postgres: scan filter: %w", err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list filters rows: %w", err)
	}
	return list, nil
}

// Insert adds a filter string; re-adding an existing filter is a no-op.
func (s *FilterStore) Insert(ctx context.Context, filter string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO filter_list (filter) VALUES ($1) ON CONFLICT (filter) DO NOTHING`,
		filter)
	if err != nil {
		return fmt.Errorf("postgres: insert filter %q: %w", filter, err)
	}
	return nil
}

// Delete removes a filter string.
func (s *FilterStore) Delete(ctx context.Context, filter string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM filter_list WHERE filter = $1`, filter)
	if err != nil {
		return fmt.Errorf("postgres: delete filter %q: %w", filter, err)
	}
	return nil
}

var _ domain.FilterStore = (*FilterStore)(nil)
