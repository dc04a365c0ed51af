package model

// PairSnapshot is the persisted state of a constant-product pair.
type PairSnapshot struct {
	Pool       string            `json:"pool"`
	Factory    string            `json:"factory"`
	Token0     string            `json:"token0"`
	Token1     string            `json:"token1"`
	Reserve0   string            `json:"reserve0"`
	Reserve1   string            `json:"reserve1"`
	SwapFee    uint64            `json:"swap_fee"`
	LPBalances map[string]string `json:"lp_balances"`
	Sequence   uint64            `json:"sequence"`
	UpdatedAt  string            `json:"updated_at"`
}
