package model

// Operation kinds accepted in a scenario file.
const (
	OpMint            = "mint"
	OpApprove         = "approve"
	OpDonate          = "donate"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwapExactIn     = "swap_exact_in"
	OpSwapExactOut    = "swap_exact_out"
)

// Operation is one scenario step. Amounts are base-10 strings; which fields
// apply depends on Op.
type Operation struct {
	Op        string `json:"op"`
	Caller    string `json:"caller"`
	Asset     string `json:"asset,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	AmountA   string `json:"amount_a,omitempty"`
	AmountB   string `json:"amount_b,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Shares    string `json:"shares,omitempty"`
	Limit     string `json:"limit,omitempty"`
}

// OperationFailure records a rejected scenario step.
type OperationFailure struct {
	Line  uint64    `json:"line"`
	Op    Operation `json:"op"`
	Kind  string    `json:"kind"`
	Error string    `json:"error"`
}
