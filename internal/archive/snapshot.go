// Package archive periodically snapshots the public offer book to blob
// storage, giving operators an off-box history of what the node served.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitdex/dexnode/internal/dexdb"
	"github.com/bitdex/dexnode/internal/domain"
)

// record is one offer line in a snapshot, serialized as JSONL.
type record struct {
	Book             string `json:"book"` // sell | buy
	TxID             string `json:"txid"`
	Hash             string `json:"hash"`
	Country          string `json:"country"`
	Currency         string `json:"currency"`
	PaymentMethod    byte   `json:"payment_method"`
	Price            uint64 `json:"price"`
	MinAmount        uint64 `json:"min_amount"`
	TimeCreate       int64  `json:"time_create"`
	TimeToExpiration uint32 `json:"time_to_expiration"`
	ShortInfo        string `json:"short_info"`
	Details          string `json:"details,omitempty"`
}

// Snapshots at or above multipartThreshold go through the multipart upload
// path in snapshotPartSize parts; smaller ones use a single put.
const (
	multipartThreshold int64 = 8 << 20
	snapshotPartSize   int64 = 8 << 20
)

// Snapshotter uploads periodic offer book snapshots.
type Snapshotter struct {
	db       *dexdb.DB
	writer   domain.BlobWriter
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Snapshotter taking a snapshot every interval.
func New(db *dexdb.DB, writer domain.BlobWriter, interval time.Duration, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{
		db:       db,
		writer:   writer,
		interval: interval,
		logger:   logger.With(slog.String("component", "archive")),
		now:      time.Now,
	}
}

// Run takes snapshots on the configured interval until ctx is cancelled.
// Failures are logged and the next tick retries.
func (s *Snapshotter) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Snapshot(ctx); err != nil {
				s.logger.Error("snapshot failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Snapshot uploads one JSONL snapshot of both public books.
func (s *Snapshotter) Snapshot(ctx context.Context) error {
	sell, err := s.db.SellOffers(ctx)
	if err != nil {
		return fmt.Errorf("archive: sell offers: %w", err)
	}
	buy, err := s.db.BuyOffers(ctx)
	if err != nil {
		return fmt.Errorf("archive: buy offers: %w", err)
	}

	buf, err := marshalRecords(sell, buy)
	if err != nil {
		return fmt.Errorf("archive: marshal snapshot: %w", err)
	}

	path := snapshotPath(s.now())
	if int64(len(buf)) >= multipartThreshold {
		err = s.writer.PutMultipart(ctx, path, bytes.NewReader(buf), snapshotPartSize)
	} else {
		err = s.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return fmt.Errorf("archive: upload snapshot: %w", err)
	}

	s.logger.Info("snapshot uploaded",
		slog.String("path", path),
		slog.Int("offers", len(sell)+len(buy)),
	)
	return nil
}

// snapshotPath builds the object key, partitioned by day with a full
// timestamp in the name:
//
//	snapshots/2026-08-28/offers-20260828T151004Z.jsonl
func snapshotPath(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("snapshots/%s/offers-%s.jsonl",
		now.Format("2006-01-02"), now.Format("20060102T150405Z"))
}

func marshalRecords(sell, buy []domain.Offer) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	write := func(book string, offers []domain.Offer) error {
		for _, o := range offers {
			if err := enc.Encode(toRecord(book, o)); err != nil {
				return fmt.Errorf("encode %s offer %s: %w", book, o.TxID, err)
			}
		}
		return nil
	}
	if err := write("sell", sell); err != nil {
		return nil, err
	}
	if err := write("buy", buy); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toRecord(book string, o domain.Offer) record {
	return record{
		Book:             book,
		TxID:             o.TxID.Hex(),
		Hash:             o.Hash.Hex(),
		Country:          o.CountryISO,
		Currency:         o.CurrencyISO,
		PaymentMethod:    o.PaymentMethod,
		Price:            o.Price,
		MinAmount:        o.MinAmount,
		TimeCreate:       o.TimeCreate,
		TimeToExpiration: o.TimeToExpiration,
		ShortInfo:        o.ShortInfo,
		Details:          o.Details,
	}
}
