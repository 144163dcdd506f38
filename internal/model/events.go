package model

// Event names carried in PoolEvent.EventName.
const (
	EventLiquidityAdded   = "LiquidityAdded"
	EventLiquidityRemoved = "LiquidityRemoved"
	EventSwap             = "Swap"
)

// PoolEvent is an emitted pool record enriched with sequencing metadata.
type PoolEvent struct {
	Pool      string      `json:"pool"`
	Seq       uint64      `json:"seq"`
	EventName string      `json:"event_name"`
	Timestamp uint64      `json:"timestamp"`
	Decoded   interface{} `json:"decoded"`
}

// LiquidityAddedEvent is the payload of a LiquidityAdded record.
type LiquidityAddedEvent struct {
	Provider string `json:"provider"`
	AmountA  string `json:"amount_a"`
	AmountB  string `json:"amount_b"`
	Shares   string `json:"shares"`
}

// LiquidityRemovedEvent is the payload of a LiquidityRemoved record.
type LiquidityRemovedEvent struct {
	Provider string `json:"provider"`
	AmountA  string `json:"amount_a"`
	AmountB  string `json:"amount_b"`
	Shares   string `json:"shares"`
}

// SwapEvent is the payload of a Swap record.
type SwapEvent struct {
	Sender    string `json:"sender"`
	AssetIn   string `json:"asset_in"`
	AssetOut  string `json:"asset_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Recipient string `json:"recipient"`
}
