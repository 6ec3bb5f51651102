package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"pumpwatch/internal/domain"
	logging "pumpwatch/internal/infra/log"
)

// ErrMissingAddress means the raw event carried no usable token identifier.
// The event is skipped with no side effects and no dedup record.
var ErrMissingAddress = errors.New("no token address in event")

// Fallback defaults substituted when neither the event nor the metadata
// source provides a field. Normalization degrades gracefully instead of
// failing on a single lookup.
const (
	FallbackLiquidityUsd  = 1000
	FallbackMarketCapUsd  = 1000
	FallbackDevHoldingPct = 5
	FallbackPoolSupplyPct = 50
	FallbackLaunchPrice   = 0.000005
)

// MetadataSource is the lookup capability the normalizer needs from the
// chain/RPC provider. Implementations must honor ctx deadlines; a stalled
// lookup is treated the same as a failed one.
type MetadataSource interface {
	TokenMetadata(ctx context.Context, address string) (domain.TokenMetadata, error)
}

// Normalizer converts raw events into complete TokenDescriptors.
type Normalizer struct {
	source MetadataSource
}

// NewNormalizer builds a normalizer over the given metadata source.
func NewNormalizer(source MetadataSource) *Normalizer {
	return &Normalizer{source: source}
}

// extractAddress applies the per-variant priority chain:
// explicit mint -> first listed account -> event signature. The signature is
// a last resort and signals degraded confidence.
func extractAddress(e RawEvent) (addr string, degraded bool, err error) {
	switch e.Kind() {
	case KindTokenMint:
		if e.TokenMint != "" {
			return e.TokenMint, false, nil
		}
	case KindProgramAccountChange:
		// Kind() guarantees a first account.
		return e.Accounts[0], false, nil
	}
	if e.TokenMint != "" {
		return e.TokenMint, false, nil
	}
	if len(e.Accounts) > 0 && e.Accounts[0] != "" {
		return e.Accounts[0], false, nil
	}
	if e.Signature != "" {
		return e.Signature, true, nil
	}
	return "", false, ErrMissingAddress
}

// plausibleAddress reports whether s decodes to a 32-byte base58 pubkey.
// Webhook payloads are not trusted; implausible addresses still flow through
// but are flagged on the descriptor.
func plausibleAddress(s string) bool {
	decoded, err := base58.Decode(s)
	return err == nil && len(decoded) == 32
}

// Normalize turns a raw event into a canonical descriptor. It returns
// ErrMissingAddress when no candidate address exists; any other degradation
// (metadata lookup failure, missing fields) is recovered locally with the
// documented defaults and surfaced only as a warning log.
func (n *Normalizer) Normalize(ctx context.Context, event RawEvent) (domain.TokenDescriptor, error) {
	addr, degraded, err := extractAddress(event)
	if err != nil {
		return domain.TokenDescriptor{}, err
	}
	if !degraded && !plausibleAddress(addr) {
		degraded = true
	}

	desc := domain.TokenDescriptor{
		Address:  addr,
		Name:     event.Name,
		Degraded: degraded,
	}

	// One metadata lookup covers everything the event itself did not carry.
	var meta domain.TokenMetadata
	if missingFields(event) {
		meta, err = n.source.TokenMetadata(ctx, addr)
		if err != nil {
			logging.LogWarn("Token metadata lookup failed, using fallback defaults",
				zap.String("address", addr),
				zap.String("kind", event.Kind().String()),
				zap.Error(err))
			meta = domain.TokenMetadata{}
		}
	}

	if desc.Name == "" {
		desc.Name = meta.Name
	}
	if desc.Name == "" {
		desc.Name = fallbackName(addr)
	}

	desc.LiquidityUsd = pickFloat(event.LiquidityUsd, meta.LiquidityUsd, FallbackLiquidityUsd)
	desc.MarketCapUsd = pickFloat(event.MarketCapUsd, meta.MarketCapUsd, FallbackMarketCapUsd)
	desc.DevHoldingPct = pickFloat(event.DevHoldingPct, meta.DevHoldingPct, FallbackDevHoldingPct)
	desc.PoolSupplyPct = pickFloat(event.PoolSupplyPct, meta.PoolSupplyPct, FallbackPoolSupplyPct)
	desc.LaunchPrice = pickFloat(event.LaunchPrice, meta.LaunchPrice, FallbackLaunchPrice)
	desc.MintAuthorityRevoked = pickBool(event.MintAuthorityRevoked, meta.MintAuthorityRevoked, false)
	desc.FreezeAuthorityRevoked = pickBool(event.FreezeAuthorityRevoked, meta.FreezeAuthorityRevoked, false)

	return desc, nil
}

func missingFields(e RawEvent) bool {
	return e.Name == "" || e.LiquidityUsd == nil || e.MarketCapUsd == nil ||
		e.DevHoldingPct == nil || e.PoolSupplyPct == nil || e.LaunchPrice == nil ||
		e.MintAuthorityRevoked == nil || e.FreezeAuthorityRevoked == nil
}

func fallbackName(addr string) string {
	if len(addr) > 8 {
		addr = addr[:8]
	}
	return fmt.Sprintf("Token_%s", addr)
}

func pickFloat(fromEvent, fromMeta *float64, fallback float64) float64 {
	if fromEvent != nil {
		return *fromEvent
	}
	if fromMeta != nil {
		return *fromMeta
	}
	return fallback
}

func pickBool(fromEvent, fromMeta *bool, fallback bool) bool {
	if fromEvent != nil {
		return *fromEvent
	}
	if fromMeta != nil {
		return *fromMeta
	}
	return fallback
}
