package model

// Pool variants.
const (
	VariantClassic  = "classic"
	VariantWeighted = "weighted"
)

// Event names.
const (
	EventMint         = "Mint"
	EventBurn         = "Burn"
	EventSwap         = "Swap"
	EventSync         = "Sync"
	EventWeightedSwap = "LOG_SWAP"
	EventCommit       = "Commit"
)

// PoolEvent is one entry of a pool's event journal.
type PoolEvent struct {
	Pool      string      `json:"pool"`
	Variant   string      `json:"variant"`
	Sequence  uint64      `json:"sequence"`
	EventName string      `json:"event_name"`
	Timestamp uint64      `json:"timestamp"`
	Decoded   interface{} `json:"decoded"`
}
