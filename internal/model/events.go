package model

// MintEventData is the payload of a liquidity deposit.
type MintEventData struct {
	Sender    string `json:"sender"`
	To        string `json:"to"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Liquidity string `json:"liquidity"`
}

// BurnEventData is the payload of a liquidity withdrawal.
type BurnEventData struct {
	Sender    string `json:"sender"`
	To        string `json:"to"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Liquidity string `json:"liquidity"`
}

// SwapEventData is the payload of a constant-product swap.
type SwapEventData struct {
	Sender     string `json:"sender"`
	To         string `json:"to"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
}

// SyncEventData records committed reserves.
type SyncEventData struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// WeightedSwapEventData is the payload of a weighted-pool swap.
type WeightedSwapEventData struct {
	Caller          string `json:"caller"`
	TokenIn         string `json:"token_in"`
	TokenOut        string `json:"token_out"`
	AmountIn        string `json:"amount_in"`
	AmountOut       string `json:"amount_out"`
	SpotPriceBefore string `json:"spot_price_before"`
	SpotPriceAfter  string `json:"spot_price_after"`
}

// CommitEventData records an order commitment set by the solution settler.
type CommitEventData struct {
	Sender    string `json:"sender"`
	OrderHash string `json:"order_hash"`
}
