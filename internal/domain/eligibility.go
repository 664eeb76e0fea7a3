package domain

// EligibilitySnapshot gathers everything the gate needs to decide whether a
// submission can be funded and satisfies market minimums. It is recomputed
// from live sources before every evaluation and read-only afterwards.
type EligibilitySnapshot struct {
	// CollateralBalance is the owner's collateral (USDC) balance.
	CollateralBalance float64

	// SpenderAllowance is what the exchange spender may move on the owner's
	// behalf. Nil means the allowance could not be read; allowance-based
	// conditions are skipped rather than guessed.
	SpenderAllowance *float64

	// RequiredNotional is the cost (BUY) or proceeds (SELL) of the order at
	// its resolved price.
	RequiredNotional float64

	// MinNotional and MinSize are the market's minimum-order constraints.
	MinNotional float64
	MinSize     float64

	// MaxSellSize is the owner's position in the token, the ceiling for a
	// SELL order's size.
	MaxSellSize float64
}

// Funds pairs a collateral balance with the exchange spender allowance.
type Funds struct {
	Balance   float64
	Allowance *float64
}

// Position is the owner's holding of one outcome token.
type Position struct {
	TokenID string
	Size    float64
}
