package model

// PoolSnapshot is a point-in-time copy of pool state for storage.
type PoolSnapshot struct {
	Address     string            `json:"address"`
	AssetA      string            `json:"asset_a"`
	AssetB      string            `json:"asset_b"`
	FeeBps      uint16            `json:"fee_bps"`
	ReserveA    string            `json:"reserve_a"`
	ReserveB    string            `json:"reserve_b"`
	TotalShares string            `json:"total_shares"`
	FeesA       string            `json:"accumulated_fees_a"`
	FeesB       string            `json:"accumulated_fees_b"`
	Shares      map[string]string `json:"shares"`
	Seq         uint64            `json:"seq"`
	TakenAt     string            `json:"taken_at"`
}
