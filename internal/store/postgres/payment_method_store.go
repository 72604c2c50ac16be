package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitdex/dexnode/internal/domain"
)

// PaymentMethodStore implements domain.PaymentMethodStore using PostgreSQL.
type PaymentMethodStore struct {
	pool *pgxpool.Pool
}

// NewPaymentMethodStore creates a new PaymentMethodStore backed by the given
// pool.
func NewPaymentMethodStore(pool *pgxpool.Pool) *PaymentMethodStore {
	return &PaymentMethodStore{pool: pool}
}

// List returns every payment method ordered by explicit sort order; the
// unset sentinel (-1) sorts last.
func (s *PaymentMethodStore) List(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT type, name, description, sort_order FROM payment_methods
		 ORDER BY CASE WHEN sort_order = -1 THEN 2147483647 ELSE sort_order END, type`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payment methods: %w", err)
	}
	defer rows.Close()

	var list []domain.PaymentMethod
	for rows.Next() {
		var pm domain.PaymentMethod
		var typ int16
		if err := rows.Scan(&typ, &pm.Name, &pm.Description, &pm.SortOrder); err != nil {
			return nil, fmt.Errorf("postgres: scan payment method: %w", err)
		}
		pm.Type = byte(typ)
		list = append(list, pm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list payment methods rows: %w", err)
	}
	return list, nil
}

// Get retrieves a payment method by its one-byte type.
func (s *PaymentMethodStore) Get(ctx context.Context, typ byte) (domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	var dbType int16
	err := s.pool.QueryRow(ctx,
		`SELECT type, name, description, sort_order FROM payment_methods WHERE type = $1`,
		int16(typ),
	).Scan(&dbType, &pm.Name, &pm.Description, &pm.SortOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PaymentMethod{}, domain.ErrNotFound
		}
		return domain.PaymentMethod{}, fmt.Errorf("postgres: get payment method %d: %w", typ, err)
	}
	pm.Type = byte(dbType)
	return pm, nil
}

// Insert adds a payment method row.
func (s *PaymentMethodStore) Insert(ctx context.Context, pm domain.PaymentMethod) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_methods (type, name, description, sort_order)
		 VALUES ($1, $2, $3, $4)`,
		int16(pm.Type), pm.Name, pm.Description, pm.SortOrder)
	if err != nil {
		return fmt.Errorf("postgres: insert payment method %d: %w", pm.Type, err)
	}
	return nil
}

// Update rewrites all mutable fields of a payment method row.
func (s *PaymentMethodStore) Update(ctx context.Context, pm domain.PaymentMethod) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE payment_methods SET name = $2, description = $3, sort_order = $4
		 WHERE type = $1`,
		int16(pm.Type), pm.Name, pm.Description, pm.SortOrder)
	if err != nil {
		return fmt.Errorf("postgres: update payment method %d: %w", pm.Type, err)
	}
	return nil
}

// Delete removes a payment method row.
func (s *PaymentMethodStore) Delete(ctx context.Context, typ byte) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM payment_methods WHERE type = $1`, int16(typ))
	if err != nil {
		return fmt.Errorf("postgres: delete payment method %d: %w", typ, err)
	}
	return nil
}

// Count returns the number of payment method rows.
func (s *PaymentMethodStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payment_methods`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count payment methods: %w", err)
	}
	return count, nil
}

var _ domain.PaymentMethodStore = (*PaymentMethodStore)(nil)
