package domain

// Package domain holds the token model shared by the filter, pipeline and
// dispatch layers.

// TokenDescriptor is an immutable snapshot of a candidate token at
// evaluation time. Every numeric field is always populated; normalization
// substitutes fallback defaults when the metadata source cannot provide a
// value, so the evaluator never sees an absent field.
type TokenDescriptor struct {
	Address                string  // unique chain identifier, primary key
	Name                   string  // display only
	LiquidityUsd           float64 // non-negative
	MarketCapUsd           float64 // non-negative
	DevHoldingPct          float64 // [0,100]
	PoolSupplyPct          float64 // [0,100]
	LaunchPrice            float64 // positive, denominated in base asset
	MintAuthorityRevoked   bool
	FreezeAuthorityRevoked bool

	// Degraded is set when the address was recovered from a low-confidence
	// source (event signature) or is not a plausible base58 pubkey.
	Degraded bool
}

// TokenMetadata is what a metadata source can report for a mint. Pointer
// fields distinguish "not provided" from a real zero so the normalizer knows
// which fallbacks to apply.
type TokenMetadata struct {
	Name                   string
	LiquidityUsd           *float64
	MarketCapUsd           *float64
	DevHoldingPct          *float64
	PoolSupplyPct          *float64
	LaunchPrice            *float64
	MintAuthorityRevoked   *bool
	FreezeAuthorityRevoked *bool
}
