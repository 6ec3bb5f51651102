package filters

// Package filters owns the mutable acceptance-criteria configuration and the
// pure token evaluator. The config is exposed only via copy-on-read
// snapshots and validated writes.

import (
	"fmt"
	"strings"
)

// Range is an inclusive [Min, Max] bound over one numeric token attribute.
type Range struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// Contains reports whether v falls inside the range, both ends inclusive.
// An inverted range (Min > Max) matches nothing; the store rejects such
// ranges on write, but the evaluator must not misbehave if one slips in.
func (r Range) Contains(v float64) bool {
	if r.Min > r.Max {
		return false
	}
	return v >= r.Min && v <= r.Max
}

// Config is one subscriber scope's acceptance criteria. Tokens must fall
// inside all five ranges and match both authority flags exactly.
type Config struct {
	LiquidityUsd  Range `json:"liquidityUsd" mapstructure:"liquidity_usd"`
	MarketCapUsd  Range `json:"marketCapUsd" mapstructure:"market_cap_usd"`
	DevHoldingPct Range `json:"devHoldingPct" mapstructure:"dev_holding_pct"`
	PoolSupplyPct Range `json:"poolSupplyPct" mapstructure:"pool_supply_pct"`
	LaunchPrice   Range `json:"launchPrice" mapstructure:"launch_price"`

	MintAuthorityRevoked   bool `json:"mintAuthorityRevoked" mapstructure:"mint_authority_revoked"`
	FreezeAuthorityRevoked bool `json:"freezeAuthorityRevoked" mapstructure:"freeze_authority_revoked"`
}

// DefaultConfig returns the acceptance criteria applied at subscriber first
// contact, before any /setfilter command has run.
func DefaultConfig() Config {
	return Config{
		LiquidityUsd:           Range{Min: 7000, Max: 12000},
		MarketCapUsd:           Range{Min: 2000, Max: 80000},
		DevHoldingPct:          Range{Min: 2, Max: 7},
		PoolSupplyPct:          Range{Min: 40, Max: 100},
		LaunchPrice:            Range{Min: 0.0000000023, Max: 0.0010},
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: false,
	}
}

// Named range fields accepted by SetRange and the /setfilter command.
const (
	FieldLiquidity  = "liquidity"
	FieldMarketCap  = "marketcap"
	FieldDevHolding = "devholding"
	FieldPoolSupply = "poolsupply"
	FieldPrice      = "price"
)

// Named boolean fields accepted by SetFlag and the /setflag command.
const (
	FieldMintRevoked   = "mintrevoked"
	FieldFreezeRevoked = "freezerevoked"
)

// RangeFields lists the range field names in display order.
func RangeFields() []string {
	return []string{FieldLiquidity, FieldMarketCap, FieldDevHolding, FieldPoolSupply, FieldPrice}
}

// FlagFields lists the boolean field names in display order.
func FlagFields() []string {
	return []string{FieldMintRevoked, FieldFreezeRevoked}
}

func (c *Config) rangeByName(field string) (*Range, error) {
	switch strings.ToLower(field) {
	case FieldLiquidity:
		return &c.LiquidityUsd, nil
	case FieldMarketCap:
		return &c.MarketCapUsd, nil
	case FieldDevHolding:
		return &c.DevHoldingPct, nil
	case FieldPoolSupply:
		return &c.PoolSupplyPct, nil
	case FieldPrice:
		return &c.LaunchPrice, nil
	default:
		return nil, fmt.Errorf("%w: unknown range field %q (expected one of %s)",
			ErrInvalidFilterUpdate, field, strings.Join(RangeFields(), ", "))
	}
}

func (c *Config) flagByName(field string) (*bool, error) {
	switch strings.ToLower(field) {
	case FieldMintRevoked:
		return &c.MintAuthorityRevoked, nil
	case FieldFreezeRevoked:
		return &c.FreezeAuthorityRevoked, nil
	default:
		return nil, fmt.Errorf("%w: unknown flag field %q (expected one of %s)",
			ErrInvalidFilterUpdate, field, strings.Join(FlagFields(), ", "))
	}
}

// Validate checks the min <= max invariant on every range.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		r    Range
	}{
		{FieldLiquidity, c.LiquidityUsd},
		{FieldMarketCap, c.MarketCapUsd},
		{FieldDevHolding, c.DevHoldingPct},
		{FieldPoolSupply, c.PoolSupplyPct},
		{FieldPrice, c.LaunchPrice},
	}
	for _, chk := range checks {
		if chk.r.Min > chk.r.Max {
			return fmt.Errorf("%w: %s range min %g is greater than max %g",
				ErrInvalidFilterUpdate, chk.name, chk.r.Min, chk.r.Max)
		}
	}
	return nil
}
