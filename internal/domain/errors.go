package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidOffer      = errors.New("invalid offer parameters")
	ErrInvalidReference  = errors.New("unknown or disabled reference entry")
	ErrMalformedPayload  = errors.New("malformed carrier payload")
	ErrUnknownReference  = errors.New("payload references unknown catalog entry")
	ErrDuplicateOffer    = errors.New("offer already known")
	ErrInsufficientConfs = errors.New("insufficient confirmations")
	ErrBroadcastFailed   = errors.New("transaction broadcast failed")
	ErrInvalidState      = errors.New("storage in invalid state")
)
