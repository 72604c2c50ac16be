//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitdex/dexnode/internal/domain"
	"github.com/bitdex/dexnode/internal/store/postgres"
)

// newIntegrationClient connects to the database named by
// DEXNODE_TEST_POSTGRES_DSN and applies migrations. Tests are skipped when the
// variable is not set.
func newIntegrationClient(t *testing.T) *postgres.Client {
	t.Helper()

	dsn := os.Getenv("DEXNODE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DEXNODE_TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	client, err := postgres.New(ctx, postgres.ClientConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	require.NoError(t, client.RunMigrations(ctx))
	return client
}

func truncate(t *testing.T, client *postgres.Client, tables ...string) {
	t.Helper()
	ctx := context.Background()
	for _, table := range tables {
		_, err := client.Pool().Exec(ctx, "TRUNCATE "+table)
		require.NoError(t, err)
	}
}

func TestCountryStoreIntegration(t *testing.T) {
	client := newIntegrationClient(t)
	truncate(t, client, "countries")

	ctx := context.Background()
	store := postgres.NewCountryStore(client.Pool())

	rows := []domain.Country{
		{ISO: "DE", Name: "Germany", Enabled: true, CurrencyID: 2, SortOrder: 2},
		{ISO: "FR", Name: "France", Enabled: true, CurrencyID: 2, SortOrder: domain.SortOrderUnset},
		{ISO: "US", Name: "United States", Enabled: true, CurrencyID: 1, SortOrder: 0},
	}
	for _, c := range rows {
		require.NoError(t, store.Insert(ctx, c))
	}

	// The unset sentinel sorts after every explicit position.
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "US", list[0].ISO)
	assert.Equal(t, "DE", list[1].ISO)
	assert.Equal(t, "FR", list[2].ISO)

	got, err := store.Get(ctx, "US")
	require.NoError(t, err)
	assert.Equal(t, rows[2], got)

	_, err = store.Get(ctx, "ZZ")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestOfferStoreIntegration(t *testing.T) {
	client := newIntegrationClient(t)
	truncate(t, client, "offers_sell")

	ctx := context.Background()
	store, err := postgres.NewOfferStore(client.Pool(), postgres.TableOffersSell)
	require.NoError(t, err)

	o := domain.Offer{
		TxID:             domain.DoubleSHA256([]byte("integration-sell-1")),
		CountryISO:       "US",
		CurrencyISO:      "USD",
		PaymentMethod:    1,
		Price:            1111111,
		MinAmount:        1000,
		TimeCreate:       1700000000,
		TimeToExpiration: 3600,
		ShortInfo:        "integration offer",
		Details:          "stored and read back through the hex columns",
	}
	o.Hash = o.ContentHash()

	require.NoError(t, store.Insert(ctx, o))

	// The 32-byte hashes must survive the round trip through the hex
	// id_transaction and hash columns.
	got, err := store.Get(ctx, o.TxID)
	require.NoError(t, err)
	assert.Equal(t, o, got)

	exists, err := store.Exists(ctx, o.TxID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.Get(ctx, domain.DoubleSHA256([]byte("missing")))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	o.Price = 2222222
	require.NoError(t, store.Update(ctx, o))
	got, err = store.Get(ctx, o.TxID)
	require.NoError(t, err)
	assert.EqualValues(t, 2222222, got.Price)

	require.NoError(t, store.Delete(ctx, o.TxID))
	exists, err = store.Exists(ctx, o.TxID)
	require.NoError(t, err)
	assert.False(t, exists)
}
