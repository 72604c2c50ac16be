package dex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitdex/dexnode/internal/dexdb"
	"github.com/bitdex/dexnode/internal/domain"
)

// OfferEvent is the lifecycle notification re-published on the offer channel
// for API clients after the monitor reconciles a block.
type OfferEvent struct {
	Event  string `json:"event"` // published | activated | expired | completed
	TxID   string `json:"txid"`
	Kind   string `json:"kind,omitempty"`
	Height int64  `json:"height"`
}

// Monitor bridges the block notification stream to the local store: it
// ingests other parties' offers, promotes the local user's offers through
// their lifecycle, and completes offers whose payment is observed.
type Monitor struct {
	db     *dexdb.DB
	proto  *Protocol
	ledger domain.Ledger
	bus    domain.SignalBus
	logger *slog.Logger
	now    func() time.Time
}

// NewMonitor creates a Monitor over the store, protocol, ledger and signal
// bus.
func NewMonitor(db *dexdb.DB, proto *Protocol, ledger domain.Ledger, bus domain.SignalBus, logger *slog.Logger) *Monitor {
	return &Monitor{
		db:     db,
		proto:  proto,
		ledger: ledger,
		bus:    bus,
		logger: logger.With(slog.String("component", "monitor")),
		now:    time.Now,
	}
}

// Run subscribes to the block channel and reconciles until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	events, err := m.bus.Subscribe(ctx, domain.ChannelBlocks)
	if err != nil {
		return fmt.Errorf("monitor: subscribe: %w", err)
	}
	m.logger.Info("monitor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			var block domain.BlockEvent
			if err := json.Unmarshal(raw, &block); err != nil {
				m.logger.Warn("dropping undecodable block event", slog.String("error", err.Error()))
				continue
			}
			m.HandleBlock(ctx, block)
		}
	}
}

// HandleBlock processes one confirmed block: ingests carrier payloads, then
// reconciles the local user's offers against confirmation depth and expiry.
func (m *Monitor) HandleBlock(ctx context.Context, block domain.BlockEvent) {
	for _, env := range block.Txs {
		if len(env.Payload) == 0 {
			continue
		}
		m.ingestTx(ctx, block, env)
	}
	m.reconcileMyOffers(ctx, block)
}

func (m *Monitor) ingestTx(ctx context.Context, block domain.BlockEvent, env domain.TxEnvelope) {
	txID, err := domain.Hash256FromHex(env.TxID)
	if err != nil {
		m.logger.Warn("dropping tx with bad id", slog.String("txid", env.TxID))
		return
	}

	pl, err := m.proto.ValidateIncoming(ctx, txID, env.Payload)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateOffer):
		m.logger.Debug("duplicate offer dropped", slog.String("txid", env.TxID))
		return
	default:
		m.logger.Warn("dropping invalid carrier payload",
			slog.String("txid", env.TxID),
			slog.String("error", err.Error()),
		)
		return
	}

	switch pl.Kind {
	case KindBuyOffer:
		m.db.AddBuyOffer(pl.Offer)
		m.publishEvent(ctx, OfferEvent{Event: "published", TxID: env.TxID, Kind: pl.Kind.String(), Height: block.Height})
	case KindSellOffer:
		m.db.AddSellOffer(pl.Offer)
		m.publishEvent(ctx, OfferEvent{Event: "published", TxID: env.TxID, Kind: pl.Kind.String(), Height: block.Height})
	case KindPayment:
		m.completeOffer(ctx, block, pl.RefTxID)
	}
}

// completeOffer marks an Active local offer as Completed when a payment
// referencing it confirms. Payments for unknown or non-active offers are
// ignored; they are other parties' business.
func (m *Monitor) completeOffer(ctx context.Context, block domain.BlockEvent, offerTxID domain.Hash256) {
	my, err := m.db.MyOffer(ctx, offerTxID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			m.logger.Error("payment lookup failed",
				slog.String("offer_txid", offerTxID.Hex()),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if my.Status != domain.StatusActive {
		return
	}

	my.Status = domain.StatusCompleted
	m.db.EditMyOffer(my)
	m.logger.Info("offer completed", slog.String("txid", offerTxID.Hex()))
	m.publishEvent(ctx, OfferEvent{Event: "completed", TxID: offerTxID.Hex(), Height: block.Height})
}

func (m *Monitor) reconcileMyOffers(ctx context.Context, block domain.BlockEvent) {
	list, err := m.db.MyOffers(ctx)
	if err != nil {
		m.logger.Error("reconcile: list my offers", slog.String("error", err.Error()))
		return
	}

	now := m.now()
	for _, my := range list {
		switch my.Status {
		case domain.StatusPending:
			m.maybeActivate(ctx, block, my)
		case domain.StatusActive:
			if my.Expired(now) {
				my.Status = domain.StatusExpired
				m.db.EditMyOffer(my)
				m.logger.Info("offer expired", slog.String("txid", my.TxID.Hex()))
				m.publishEvent(ctx, OfferEvent{Event: "expired", TxID: my.TxID.Hex(), Height: block.Height})
			}
		}
	}
}

// maybeActivate promotes a Pending offer to Active once its carrier reaches
// settled depth, and mirrors it into the public book.
func (m *Monitor) maybeActivate(ctx context.Context, block domain.BlockEvent, my domain.MyOffer) {
	confs, err := m.ledger.Confirmations(ctx, my.TxID)
	if err != nil {
		m.logger.Error("reconcile: confirmations",
			slog.String("txid", my.TxID.Hex()),
			slog.String("error", err.Error()),
		)
		return
	}
	if confs < MinConfirmations {
		return
	}

	my.Status = domain.StatusActive
	m.db.EditMyOffer(my)
	if my.Type == domain.OfferTypeBuy {
		m.db.AddBuyOffer(my.Offer)
	} else {
		m.db.AddSellOffer(my.Offer)
	}
	m.logger.Info("offer activated",
		slog.String("txid", my.TxID.Hex()),
		slog.Int("confirmations", confs),
	)
	m.publishEvent(ctx, OfferEvent{Event: "activated", TxID: my.TxID.Hex(), Kind: my.Type.String(), Height: block.Height})
}

func (m *Monitor) publishEvent(ctx context.Context, ev OfferEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		m.logger.Error("marshal offer event", slog.String("error", err.Error()))
		return
	}
	if err := m.bus.Publish(ctx, domain.ChannelOffers, raw); err != nil {
		m.logger.Warn("publish offer event",
			slog.String("event", ev.Event),
			slog.String("error", err.Error()),
		)
	}
}
