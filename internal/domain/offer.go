package domain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// OfferType is the direction of a user-owned offer.
type OfferType int

const (
	OfferTypeBuy OfferType = iota
	OfferTypeSell
)

func (t OfferType) String() string {
	switch t {
	case OfferTypeBuy:
		return "buy"
	case OfferTypeSell:
		return "sell"
	default:
		return fmt.Sprintf("offer_type(%d)", int(t))
	}
}

// OfferStatus is the lifecycle state of a user-owned offer. Transitions are
// monotonic: Draft -> Pending -> Active -> (Expired | Cancelled | Completed).
// A Draft may also be discarded without ever reaching the ledger.
type OfferStatus int

const (
	StatusDraft OfferStatus = iota
	StatusPending
	StatusActive
	StatusExpired
	StatusCancelled
	StatusCompleted
)

func (s OfferStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusExpired:
		return "expired"
	case StatusCancelled:
		return "cancelled"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("offer_status(%d)", int(s))
	}
}

// maxShortInfoBytes is the consensus bound on the short summary field.
const maxShortInfoBytes = 140

// Offer is a published buy/sell intent, either the local user's or another
// party's, as carried by a ledger transaction. TxID identifies the carrier
// transaction and is assigned at broadcast time; Hash is the content hash of
// the payload and is recomputed from the remaining fields.
type Offer struct {
	TxID             Hash256
	Hash             Hash256
	CountryISO       string
	CurrencyISO      string
	PaymentMethod    byte
	Price            uint64
	MinAmount        uint64
	TimeCreate       int64
	TimeToExpiration uint32 // seconds, 0 = never expires
	ShortInfo        string
	Details          string
}

// MyOffer is an Offer owned by the local user, extended with direction and
// lifecycle status.
type MyOffer struct {
	Offer
	Type   OfferType
	Status OfferStatus
}

// Validate checks the field-level invariants that hold for every offer,
// local or inbound. It does not consult the reference catalogs.
func (o Offer) Validate() error {
	if len(o.CountryISO) != 2 {
		return fmt.Errorf("%w: country iso %q", ErrInvalidOffer, o.CountryISO)
	}
	if len(o.CurrencyISO) != 3 {
		return fmt.Errorf("%w: currency iso %q", ErrInvalidOffer, o.CurrencyISO)
	}
	if o.ShortInfo == "" {
		return fmt.Errorf("%w: empty short info", ErrInvalidOffer)
	}
	if len(o.ShortInfo) > maxShortInfoBytes {
		return fmt.Errorf("%w: short info %d bytes, max %d", ErrInvalidOffer, len(o.ShortInfo), maxShortInfoBytes)
	}
	return nil
}

// Equal reports whether two offers refer to the same carrier transaction.
func (o Offer) Equal(other Offer) bool {
	return o.TxID == other.TxID
}

// Expired reports whether the offer's time-to-expiration has elapsed at now.
func (o Offer) Expired(now time.Time) bool {
	if o.TimeToExpiration == 0 {
		return false
	}
	return now.Unix() >= o.TimeCreate+int64(o.TimeToExpiration)
}

// EncodeBody serializes the offer payload fields in canonical order:
// country, currency, payment method, price, min amount, creation time,
// time-to-expiration, short info, details. Integers are big-endian fixed
// width; variable-length fields carry a length prefix. The same bytes are
// consumed by both publishing and inbound validation, and are the input to
// the content hash.
func (o Offer) EncodeBody() []byte {
	var buf bytes.Buffer
	writeShortString(&buf, o.CountryISO)
	writeShortString(&buf, o.CurrencyISO)
	buf.WriteByte(o.PaymentMethod)
	binary.Write(&buf, binary.BigEndian, o.Price)
	binary.Write(&buf, binary.BigEndian, o.MinAmount)
	binary.Write(&buf, binary.BigEndian, uint64(o.TimeCreate))
	binary.Write(&buf, binary.BigEndian, o.TimeToExpiration)
	writeShortString(&buf, o.ShortInfo)
	writeLongString(&buf, o.Details)
	return buf.Bytes()
}

// DecodeBody parses a canonical offer body produced by EncodeBody. The TxID
// and Hash fields are left zero; callers stamp the carrier transaction id and
// recompute the content hash themselves.
func DecodeBody(data []byte) (Offer, error) {
	r := bytes.NewReader(data)

	var o Offer
	var err error
	if o.CountryISO, err = readShortString(r); err != nil {
		return Offer{}, fmt.Errorf("%w: country: %v", ErrMalformedPayload, err)
	}
	if o.CurrencyISO, err = readShortString(r); err != nil {
		return Offer{}, fmt.Errorf("%w: currency: %v", ErrMalformedPayload, err)
	}
	if o.PaymentMethod, err = r.ReadByte(); err != nil {
		return Offer{}, fmt.Errorf("%w: payment method: %v", ErrMalformedPayload, err)
	}
	if err = binary.Read(r, binary.BigEndian, &o.Price); err != nil {
		return Offer{}, fmt.Errorf("%w: price: %v", ErrMalformedPayload, err)
	}
	if err = binary.Read(r, binary.BigEndian, &o.MinAmount); err != nil {
		return Offer{}, fmt.Errorf("%w: min amount: %v", ErrMalformedPayload, err)
	}
	var timeCreate uint64
	if err = binary.Read(r, binary.BigEndian, &timeCreate); err != nil {
		return Offer{}, fmt.Errorf("%w: time create: %v", ErrMalformedPayload, err)
	}
	o.TimeCreate = int64(timeCreate)
	if err = binary.Read(r, binary.BigEndian, &o.TimeToExpiration); err != nil {
		return Offer{}, fmt.Errorf("%w: time to expiration: %v", ErrMalformedPayload, err)
	}
	if o.ShortInfo, err = readShortString(r); err != nil {
		return Offer{}, fmt.Errorf("%w: short info: %v", ErrMalformedPayload, err)
	}
	if o.Details, err = readLongString(r); err != nil {
		return Offer{}, fmt.Errorf("%w: details: %v", ErrMalformedPayload, err)
	}
	if r.Len() != 0 {
		return Offer{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedPayload, r.Len())
	}
	return o, nil
}

// ContentHash computes the content hash of the offer payload. Two offers with
// byte-identical payloads hash identically regardless of which transactions
// carry them.
func (o Offer) ContentHash() Hash256 {
	return DoubleSHA256(o.EncodeBody())
}

func writeShortString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint16(len(s)))
	buf.WriteString(s)
}

func writeLongString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint32(len(s)))
	buf.WriteString(s)
}

func readShortString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	return readStringBytes(r, int(n))
}

func readLongString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	return readStringBytes(r, int(n))
}

func readStringBytes(r *bytes.Reader, n int) (string, error) {
	if n > r.Len() {
		return "", fmt.Errorf("length prefix %d exceeds remaining %d bytes", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}
