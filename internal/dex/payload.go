package dex

import (
	"fmt"

	"github.com/bitdex/dexnode/internal/domain"
)

// PayloadKind is the explicit discriminant on every carrier payload. The kind
// byte is part of the wire format; there is no sniffing of payload shapes.
type PayloadKind byte

const (
	KindBuyOffer  PayloadKind = 0x01
	KindSellOffer PayloadKind = 0x02
	KindPayment   PayloadKind = 0x03
)

func (k PayloadKind) String() string {
	switch k {
	case KindBuyOffer:
		return "buy offer"
	case KindSellOffer:
		return "sell offer"
	case KindPayment:
		return "payment"
	default:
		return fmt.Sprintf("payload_kind(0x%02x)", byte(k))
	}
}

// Payload is a decoded carrier payload. Offer is set for the offer kinds with
// the declared content hash stamped; RefTxID is set for payments.
type Payload struct {
	Kind    PayloadKind
	Offer   domain.Offer
	RefTxID domain.Hash256
}

// EncodeOfferPayload builds the carrier payload for an offer: the kind byte,
// the content hash, then the canonical body. The hash travels with the body so
// receivers can detect payloads whose body was altered after hashing.
func EncodeOfferPayload(typ domain.OfferType, o domain.Offer) []byte {
	kind := KindSellOffer
	if typ == domain.OfferTypeBuy {
		kind = KindBuyOffer
	}
	body := o.EncodeBody()
	out := make([]byte, 0, 1+len(o.Hash)+len(body))
	out = append(out, byte(kind))
	out = append(out, o.Hash[:]...)
	return append(out, body...)
}

// EncodePaymentPayload builds the carrier payload for a payment: the kind byte
// followed by the transaction id of the offer being paid.
func EncodePaymentPayload(offerTxID domain.Hash256) []byte {
	out := make([]byte, 0, 1+len(offerTxID))
	out = append(out, byte(KindPayment))
	return append(out, offerTxID[:]...)
}

// DecodePayload parses a carrier payload. For offer kinds the declared content
// hash must match the hash recomputed from the body; a mismatch is treated as
// a malformed payload, not a recoverable variant.
func DecodePayload(data []byte) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, fmt.Errorf("%w: empty payload", domain.ErrMalformedPayload)
	}
	kind := PayloadKind(data[0])
	rest := data[1:]

	switch kind {
	case KindBuyOffer, KindSellOffer:
		if len(rest) < 32 {
			return Payload{}, fmt.Errorf("%w: offer payload truncated before hash", domain.ErrMalformedPayload)
		}
		var declared domain.Hash256
		copy(declared[:], rest[:32])
		body := rest[32:]
		o, err := domain.DecodeBody(body)
		if err != nil {
			return Payload{}, err
		}
		if got := domain.DoubleSHA256(body); got != declared {
			return Payload{}, fmt.Errorf("%w: content hash mismatch: declared %s, computed %s",
				domain.ErrMalformedPayload, declared, got)
		}
		o.Hash = declared
		return Payload{Kind: kind, Offer: o}, nil

	case KindPayment:
		if len(rest) != 32 {
			return Payload{}, fmt.Errorf("%w: payment payload is %d bytes, want 32", domain.ErrMalformedPayload, len(rest))
		}
		var ref domain.Hash256
		copy(ref[:], rest)
		return Payload{Kind: kind, RefTxID: ref}, nil

	default:
		return Payload{}, fmt.Errorf("%w: unknown payload kind 0x%02x", domain.ErrMalformedPayload, data[0])
	}
}
