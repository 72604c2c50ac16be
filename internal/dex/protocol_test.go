package dex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitdex/dexnode/internal/domain"
)

func TestCreateOffer(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogs(t)
	f.proto.now = func() time.Time { return time.Unix(1700000000, 0) }

	my, err := f.proto.CreateOffer(context.Background(), domain.OfferTypeSell, draftOffer())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, my.Status)
	assert.Equal(t, domain.OfferTypeSell, my.Type)
	assert.True(t, my.TxID.IsZero())
	assert.Equal(t, int64(1700000000), my.TimeCreate)
	assert.Equal(t, my.Offer.ContentHash(), my.Hash)
}

func TestCreateOfferRejectsBadReferences(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogs(t)
	f.db.AddCurrency(domain.Currency{ID: 2, ISO: "EUR", Name: "Euro", Enabled: false})
	require.NoError(t, f.db.Wait(context.Background()))

	ctx := context.Background()

	o := draftOffer()
	o.CountryISO = "ZZ"
	_, err := f.proto.CreateOffer(ctx, domain.OfferTypeSell, o)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	o = draftOffer()
	o.CurrencyISO = "EUR" // present but disabled
	_, err = f.proto.CreateOffer(ctx, domain.OfferTypeSell, o)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	o = draftOffer()
	o.PaymentMethod = 99
	_, err = f.proto.CreateOffer(ctx, domain.OfferTypeSell, o)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	o = draftOffer()
	o.ShortInfo = ""
	_, err = f.proto.CreateOffer(ctx, domain.OfferTypeSell, o)
	assert.ErrorIs(t, err, domain.ErrInvalidOffer)
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogs(t)
	ctx := context.Background()

	assigned := domain.DoubleSHA256([]byte("carrier-tx"))
	f.ledger.nextTxID = assigned
	f.ledger.unspent = []domain.Unspent{{
		Outpoint:      domain.Outpoint{TxID: domain.DoubleSHA256([]byte("coin")), Vout: 0},
		Amount:        PaymentTxFee + PaymentReturnFee,
		Confirmations: 10,
	}}

	draft, err := f.proto.CreateOffer(ctx, domain.OfferTypeSell, draftOffer())
	require.NoError(t, err)

	published, err := f.proto.Publish(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, assigned, published.TxID)
	assert.Equal(t, domain.StatusPending, published.Status)

	// The broadcast payload must decode back to the draft offer.
	tx := f.ledger.lastBroadcast()
	assert.Equal(t, PaymentReturnFee, tx.Amount)
	pl, err := DecodePayload(tx.Payload)
	require.NoError(t, err)
	assert.Equal(t, KindSellOffer, pl.Kind)
	assert.Equal(t, draft.Offer, pl.Offer)

	require.NoError(t, f.db.Wait(ctx))
	got, err := f.db.MyOffer(ctx, assigned)
	require.NoError(t, err)
	assert.Equal(t, published, got)
}

func TestPublishBroadcastFailure(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogs(t)
	ctx := context.Background()

	f.ledger.unspent = []domain.Unspent{{
		Amount:        PaymentTxFee,
		Confirmations: 10,
	}}
	f.ledger.broadcastErr = errors.New("tx rejected by daemon")

	draft, err := f.proto.CreateOffer(ctx, domain.OfferTypeSell, draftOffer())
	require.NoError(t, err)

	_, err = f.proto.Publish(ctx, draft)
	assert.ErrorIs(t, err, domain.ErrBroadcastFailed)

	// A rejected broadcast must leave the store untouched.
	require.NoError(t, f.db.Wait(ctx))
	list, err := f.db.MyOffers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPublishRequiresDraft(t *testing.T) {
	f := newFixture(t)
	my := domain.MyOffer{Offer: draftOffer(), Type: domain.OfferTypeSell, Status: domain.StatusPending}
	_, err := f.proto.Publish(context.Background(), my)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestPayOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	offerTxID := domain.DoubleSHA256([]byte("offer-carrier"))
	paymentTxID := domain.DoubleSHA256([]byte("payment-carrier"))
	f.ledger.confs[offerTxID] = MinConfirmations
	f.ledger.nextTxID = paymentTxID
	f.ledger.unspent = []domain.Unspent{
		{Outpoint: domain.Outpoint{Vout: 1}, Amount: 100, Confirmations: 20},
		{Outpoint: domain.Outpoint{Vout: 2}, Amount: PaymentTxFee + PaymentReturnFee, Confirmations: 20},
	}

	got, err := f.proto.PayOffer(ctx, offerTxID)
	require.NoError(t, err)
	assert.Equal(t, paymentTxID, got)

	tx := f.ledger.lastBroadcast()
	assert.Equal(t, PaymentReturnFee, tx.Amount)
	assert.Equal(t, PaymentTxFee, tx.Fee)
	assert.Equal(t, uint32(2), tx.Inputs[0].Vout, "must skip the underfunded coin")

	pl, err := DecodePayload(tx.Payload)
	require.NoError(t, err)
	assert.Equal(t, KindPayment, pl.Kind)
	assert.Equal(t, offerTxID, pl.RefTxID)
}

func TestPayOfferInsufficientConfs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	offerTxID := domain.DoubleSHA256([]byte("offer-carrier"))
	f.ledger.confs[offerTxID] = MinConfirmations - 1
	f.ledger.unspent = []domain.Unspent{{
		Amount:        PaymentTxFee + PaymentReturnFee,
		Confirmations: 20,
	}}

	_, err := f.proto.PayOffer(ctx, offerTxID)
	assert.ErrorIs(t, err, domain.ErrInsufficientConfs)
	assert.Zero(t, f.ledger.broadcastCount(), "nothing may be broadcast below the confirmation floor")
}

func TestPayOfferNoEligibleInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	offerTxID := domain.DoubleSHA256([]byte("offer-carrier"))
	f.ledger.confs[offerTxID] = MinConfirmations
	f.ledger.unspent = []domain.Unspent{
		{Amount: PaymentTxFee + PaymentReturnFee, Confirmations: 2}, // too shallow
		{Amount: 100, Confirmations: 20},                            // too small
	}

	_, err := f.proto.PayOffer(ctx, offerTxID)
	assert.ErrorIs(t, err, domain.ErrInsufficientConfs)
	assert.Zero(t, f.ledger.broadcastCount())
}

func TestValidateIncoming(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogs(t)
	ctx := context.Background()

	o := draftOffer()
	o.TimeCreate = 1700000000
	o.Hash = o.ContentHash()
	txID := domain.DoubleSHA256([]byte("inbound"))
	raw := EncodeOfferPayload(domain.OfferTypeBuy, o)

	pl, err := f.proto.ValidateIncoming(ctx, txID, raw)
	require.NoError(t, err)
	assert.Equal(t, KindBuyOffer, pl.Kind)
	assert.Equal(t, txID, pl.Offer.TxID)

	// Unknown catalog reference.
	bad := o
	bad.CurrencyISO = "XXX"
	bad.Hash = bad.ContentHash()
	_, err = f.proto.ValidateIncoming(ctx, txID, EncodeOfferPayload(domain.OfferTypeBuy, bad))
	assert.ErrorIs(t, err, domain.ErrUnknownReference)

	// Already in the buy book under the same carrier id.
	stored := o
	stored.TxID = txID
	f.db.AddBuyOffer(stored)
	require.NoError(t, f.db.Wait(ctx))
	_, err = f.proto.ValidateIncoming(ctx, txID, raw)
	assert.ErrorIs(t, err, domain.ErrDuplicateOffer)

	// Payments pass through without catalog checks.
	pl, err = f.proto.ValidateIncoming(ctx, txID, EncodePaymentPayload(txID))
	require.NoError(t, err)
	assert.Equal(t, KindPayment, pl.Kind)
}
