package filters

import "pumpwatch/internal/domain"

// Matches reports whether the token satisfies the configuration: every
// ranged attribute inside its inclusive bounds and both authority flags
// equal exactly (a required false must be false, not merely "at most true").
// Pure and total; inverted ranges match nothing via Range.Contains.
//
// Operator bypass is a caller-level override in the pipeline, deliberately
// not a parameter here.
func Matches(t domain.TokenDescriptor, c Config) bool {
	return c.LiquidityUsd.Contains(t.LiquidityUsd) &&
		c.MarketCapUsd.Contains(t.MarketCapUsd) &&
		c.DevHoldingPct.Contains(t.DevHoldingPct) &&
		c.PoolSupplyPct.Contains(t.PoolSupplyPct) &&
		c.LaunchPrice.Contains(t.LaunchPrice) &&
		t.MintAuthorityRevoked == c.MintAuthorityRevoked &&
		t.FreezeAuthorityRevoked == c.FreezeAuthorityRevoked
}
