package domain

import "context"

// Signal bus channel names.
const (
	ChannelBlocks = "ch:blocks" // confirmed block events from the node
	ChannelOffers = "ch:offers" // offer lifecycle events for API clients
)

// TxEnvelope is one confirmed transaction inside a block event: the assigned
// transaction id plus the raw carrier payload, if any.
type TxEnvelope struct {
	TxID    string `json:"txid"`
	Payload []byte `json:"payload,omitempty"`
}

// BlockEvent is the notification published by the node for each newly
// confirmed block.
type BlockEvent struct {
	Height int64        `json:"height"`
	Txs    []TxEnvelope `json:"txs,omitempty"`
}

// SignalBus is a publish/subscribe transport for block and offer events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a channel of raw payloads. The subscription is torn
	// down and the channel closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
