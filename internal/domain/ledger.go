package domain

import "context"

// Outpoint identifies a spendable output of a prior transaction.
type Outpoint struct {
	TxID Hash256
	Vout uint32
}

// Unspent is a wallet coin eligible for funding a transaction.
type Unspent struct {
	Outpoint      Outpoint
	Amount        uint64
	Confirmations int
}

// RawTransaction is the ledger-agnostic description of a transaction the
// protocol wants signed and broadcast. Payload is embedded as the carrier
// data output; fee and change handling belong to the signing daemon.
type RawTransaction struct {
	Inputs  []Outpoint
	Amount  uint64 // value of the return output, smallest unit
	Fee     uint64
	Payload []byte
}

// Ledger is the external ledger/signing collaborator. Implementations talk to
// the coin daemon; the protocol layer never touches keys or consensus rules
// directly.
type Ledger interface {
	// SignAndBroadcast signs tx with the daemon wallet and submits it,
	// returning the assigned transaction id.
	SignAndBroadcast(ctx context.Context, tx RawTransaction) (Hash256, error)

	// Confirmations reports the confirmation depth of a transaction.
	// Unconfirmed transactions report 0.
	Confirmations(ctx context.Context, txID Hash256) (int, error)

	// ListUnspent returns wallet coins with at least minConf confirmations.
	ListUnspent(ctx context.Context, minConf int) ([]Unspent, error)
}
