package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitdex/dexnode/internal/dexdb"
	"github.com/bitdex/dexnode/internal/domain"
)

type staticOfferStore struct {
	offers []domain.Offer
}

func (s staticOfferStore) List(context.Context) ([]domain.Offer, error) { return s.offers, nil }

func (s staticOfferStore) Get(context.Context, domain.Hash256) (domain.Offer, error) {
	return domain.Offer{}, domain.ErrNotFound
}

func (s staticOfferStore) Insert(context.Context, domain.Offer) error  { return nil }
func (s staticOfferStore) Update(context.Context, domain.Offer) error  { return nil }
func (s staticOfferStore) Delete(context.Context, domain.Hash256) error { return nil }

func (s staticOfferStore) Exists(context.Context, domain.Hash256) (bool, error) {
	return false, nil
}

func (s staticOfferStore) Count(context.Context) (int64, error) {
	return int64(len(s.offers)), nil
}

type captureWriter struct {
	path      string
	data      []byte
	multipart bool
	partSize  int64
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.path, w.data = path, b
	return nil
}

func (w *captureWriter) PutMultipart(_ context.Context, path string, data io.Reader, partSize int64) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.path, w.data = path, b
	w.multipart = true
	w.partSize = partSize
	return nil
}

func snapshotOffer(seed, iso string) domain.Offer {
	o := domain.Offer{
		TxID:          domain.DoubleSHA256([]byte(seed)),
		CountryISO:    "US",
		CurrencyISO:   iso,
		PaymentMethod: 1,
		Price:         1000,
		MinAmount:     10,
		TimeCreate:    1700000000,
		ShortInfo:     "snapshot " + seed,
	}
	o.Hash = o.ContentHash()
	return o
}

func TestSnapshot(t *testing.T) {
	sell := snapshotOffer("s1", "USD")
	buy := snapshotOffer("b1", "EUR")
	db := dexdb.New(dexdb.Stores{
		SellOffers: staticOfferStore{offers: []domain.Offer{sell}},
		BuyOffers:  staticOfferStore{offers: []domain.Offer{buy}},
	}, slog.Default())
	t.Cleanup(db.Close)

	w := &captureWriter{}
	s := New(db, w, time.Minute, slog.Default())
	s.now = func() time.Time { return time.Date(2026, 8, 28, 15, 10, 4, 0, time.UTC) }

	require.NoError(t, s.Snapshot(context.Background()))
	assert.Equal(t, "snapshots/2026-08-28/offers-20260828T151004Z.jsonl", w.path)

	var recs []record
	sc := bufio.NewScanner(bytes.NewReader(w.data))
	for sc.Scan() {
		var r record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		recs = append(recs, r)
	}
	require.NoError(t, sc.Err())
	require.Len(t, recs, 2)
	assert.Equal(t, "sell", recs[0].Book)
	assert.Equal(t, sell.TxID.Hex(), recs[0].TxID)
	assert.Equal(t, "buy", recs[1].Book)
	assert.Equal(t, "EUR", recs[1].Currency)
	assert.False(t, w.multipart, "small snapshot must use a single put")
}

func TestSnapshotLargeUsesMultipart(t *testing.T) {
	big := snapshotOffer("s1", "USD")
	big.Details = strings.Repeat("x", int(multipartThreshold))
	db := dexdb.New(dexdb.Stores{
		SellOffers: staticOfferStore{offers: []domain.Offer{big}},
		BuyOffers:  staticOfferStore{},
	}, slog.Default())
	t.Cleanup(db.Close)

	w := &captureWriter{}
	s := New(db, w, time.Minute, slog.Default())

	require.NoError(t, s.Snapshot(context.Background()))
	assert.True(t, w.multipart, "snapshot at threshold must use multipart upload")
	assert.Equal(t, snapshotPartSize, w.partSize)
	assert.GreaterOrEqual(t, int64(len(w.data)), multipartThreshold)
}
