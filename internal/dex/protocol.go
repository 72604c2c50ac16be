// Package dex implements the offer transaction protocol: creating offers,
// publishing them inside carrier transactions, paying for published offers,
// and validating offers observed on the ledger.
package dex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitdex/dexnode/internal/dexdb"
	"github.com/bitdex/dexnode/internal/domain"
)

// Ledger protocol constants. Amounts are in the smallest currency unit and are
// fixed by consensus.
const (
	// PaymentReturnFee is the value of the return output attached to offer
	// and payment transactions.
	PaymentReturnFee uint64 = 10000

	// PaymentTxFee is the network fee paid by payment transactions.
	PaymentTxFee uint64 = 50000000

	// MinConfirmations is the confirmation depth at which a carrier
	// transaction counts as settled.
	MinConfirmations = 6
)

// Protocol ties offer records to carrier transactions. It owns no keys; all
// signing goes through the ledger collaborator.
type Protocol struct {
	db     *dexdb.DB
	ledger domain.Ledger
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Protocol over the local store and ledger adapter.
func New(db *dexdb.DB, ledger domain.Ledger, logger *slog.Logger) *Protocol {
	return &Protocol{
		db:     db,
		ledger: ledger,
		logger: logger.With(slog.String("component", "dex")),
		now:    time.Now,
	}
}

// CreateOffer validates o against the enabled reference catalogs and returns
// it as a Draft local offer: creation time stamped, content hash computed,
// carrier transaction id still zero. Nothing is persisted or broadcast.
func (p *Protocol) CreateOffer(ctx context.Context, typ domain.OfferType, o domain.Offer) (domain.MyOffer, error) {
	if err := o.Validate(); err != nil {
		return domain.MyOffer{}, err
	}
	if err := p.checkReferences(ctx, o, true); err != nil {
		return domain.MyOffer{}, err
	}

	o.TxID = domain.Hash256{}
	o.TimeCreate = p.now().Unix()
	o.Hash = o.ContentHash()
	return domain.MyOffer{Offer: o, Type: typ, Status: domain.StatusDraft}, nil
}

// Publish embeds a Draft offer in a carrier transaction and broadcasts it. On
// success the offer is persisted as Pending under the assigned transaction id.
// On rejection the store is left untouched and the caller keeps the Draft.
func (p *Protocol) Publish(ctx context.Context, my domain.MyOffer) (domain.MyOffer, error) {
	if my.Status != domain.StatusDraft {
		return domain.MyOffer{}, fmt.Errorf("dex: publish %s offer: %w", my.Status, domain.ErrInvalidState)
	}

	input, err := p.selectInput(ctx, PaymentReturnFee)
	if err != nil {
		return domain.MyOffer{}, err
	}

	tx := domain.RawTransaction{
		Inputs:  []domain.Outpoint{input},
		Amount:  PaymentReturnFee,
		Payload: EncodeOfferPayload(my.Type, my.Offer),
	}
	txID, err := p.ledger.SignAndBroadcast(ctx, tx)
	if err != nil {
		return domain.MyOffer{}, fmt.Errorf("dex: publish: %v: %w", err, domain.ErrBroadcastFailed)
	}

	my.TxID = txID
	my.Status = domain.StatusPending
	p.db.AddMyOffer(my)

	p.logger.Info("offer published",
		slog.String("txid", txID.Hex()),
		slog.String("type", my.Type.String()),
	)
	return my, nil
}

// PayOffer broadcasts a payment transaction referencing a published offer.
// Both the offer's carrier transaction and the funding input must be at least
// MinConfirmations deep before anything is broadcast.
func (p *Protocol) PayOffer(ctx context.Context, offerTxID domain.Hash256) (domain.Hash256, error) {
	confs, err := p.ledger.Confirmations(ctx, offerTxID)
	if err != nil {
		return domain.Hash256{}, fmt.Errorf("dex: pay offer %s: %w", offerTxID, err)
	}
	if confs < MinConfirmations {
		return domain.Hash256{}, fmt.Errorf("dex: pay offer %s: carrier at %d of %d confirmations: %w",
			offerTxID, confs, MinConfirmations, domain.ErrInsufficientConfs)
	}

	input, err := p.selectInput(ctx, PaymentTxFee+PaymentReturnFee)
	if err != nil {
		return domain.Hash256{}, err
	}

	tx := domain.RawTransaction{
		Inputs:  []domain.Outpoint{input},
		Amount:  PaymentReturnFee,
		Fee:     PaymentTxFee,
		Payload: EncodePaymentPayload(offerTxID),
	}
	txID, err := p.ledger.SignAndBroadcast(ctx, tx)
	if err != nil {
		return domain.Hash256{}, fmt.Errorf("dex: pay offer %s: %v: %w", offerTxID, err, domain.ErrBroadcastFailed)
	}

	p.logger.Info("payment broadcast",
		slog.String("txid", txID.Hex()),
		slog.String("offer_txid", offerTxID.Hex()),
	)
	return txID, nil
}

// ValidateIncoming decodes and checks a carrier payload observed on the
// ledger. Offer payloads are checked against the reference catalogs and the
// already-stored book; a hit on the same transaction id reports
// ErrDuplicateOffer. The returned payload carries the offer with txID stamped.
func (p *Protocol) ValidateIncoming(ctx context.Context, txID domain.Hash256, payload []byte) (Payload, error) {
	pl, err := DecodePayload(payload)
	if err != nil {
		return Payload{}, err
	}
	if pl.Kind == KindPayment {
		return pl, nil
	}

	if err := pl.Offer.Validate(); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if err := p.checkReferences(ctx, pl.Offer, false); err != nil {
		return Payload{}, err
	}

	exists, err := p.bookExists(ctx, pl.Kind, txID)
	if err != nil {
		return Payload{}, fmt.Errorf("dex: validate incoming %s: %w", txID, err)
	}
	if exists {
		return Payload{}, fmt.Errorf("dex: offer %s: %w", txID, domain.ErrDuplicateOffer)
	}

	pl.Offer.TxID = txID
	return pl, nil
}

func (p *Protocol) bookExists(ctx context.Context, kind PayloadKind, txID domain.Hash256) (bool, error) {
	if kind == KindBuyOffer {
		return p.db.IsExistBuyOffer(ctx, txID)
	}
	return p.db.IsExistSellOffer(ctx, txID)
}

// checkReferences verifies the offer's catalog references. Locally created
// offers must reference enabled entries (ErrInvalidReference); inbound offers
// only need the entries to exist (ErrUnknownReference), since the local
// catalog configuration is not consensus.
func (p *Protocol) checkReferences(ctx context.Context, o domain.Offer, requireEnabled bool) error {
	refErr := domain.ErrUnknownReference
	if requireEnabled {
		refErr = domain.ErrInvalidReference
	}

	country, err := p.db.Country(ctx, o.CountryISO)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: country %q", refErr, o.CountryISO)
		}
		return fmt.Errorf("dex: check country %q: %w", o.CountryISO, err)
	}
	if requireEnabled && !country.Enabled {
		return fmt.Errorf("%w: country %q disabled", refErr, o.CountryISO)
	}

	currency, err := p.db.Currency(ctx, o.CurrencyISO)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: currency %q", refErr, o.CurrencyISO)
		}
		return fmt.Errorf("dex: check currency %q: %w", o.CurrencyISO, err)
	}
	if requireEnabled && !currency.Enabled {
		return fmt.Errorf("%w: currency %q disabled", refErr, o.CurrencyISO)
	}

	if _, err := p.db.PaymentMethod(ctx, o.PaymentMethod); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: payment method %d", refErr, o.PaymentMethod)
		}
		return fmt.Errorf("dex: check payment method %d: %w", o.PaymentMethod, err)
	}
	return nil
}

// selectInput picks the first sufficiently funded wallet coin with settled
// confirmation depth.
func (p *Protocol) selectInput(ctx context.Context, need uint64) (domain.Outpoint, error) {
	coins, err := p.ledger.ListUnspent(ctx, MinConfirmations)
	if err != nil {
		return domain.Outpoint{}, fmt.Errorf("dex: list unspent: %w", err)
	}
	for _, c := range coins {
		if c.Amount >= need {
			return c.Outpoint, nil
		}
	}
	return domain.Outpoint{}, fmt.Errorf("dex: no settled input covering %d: %w", need, domain.ErrInsufficientConfs)
}
