package helius

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"pumpwatch/internal/domain"
	logging "pumpwatch/internal/infra/log"
)

// tokenMetadataRequest is the body of POST /v0/tokens/metadata.
type tokenMetadataRequest struct {
	MintAccounts []string `json:"mintAccounts"`
}

// tokenMetadataEntry is one element of the metadata response. Helius omits
// market fields it has no data for; pointers keep that distinction.
type tokenMetadataEntry struct {
	Name         string   `json:"name"`
	LiquidityUsd *float64 `json:"liquidity"`
	MarketCapUsd *float64 `json:"marketCap"`
	DevHolding   *float64 `json:"devHolding"`
	PoolSupply   *float64 `json:"poolSupply"`
	Price        *float64 `json:"price"`
}

// mintAccountInfo is the slice of getAccountInfo jsonParsed data the
// authority checks need.
type mintAccountInfo struct {
	Value *struct {
		Data struct {
			Parsed struct {
				Info struct {
					MintAuthority   *string `json:"mintAuthority"`
					FreezeAuthority *string `json:"freezeAuthority"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"value"`
}

// TokenMetadata looks up a mint's market metadata and authority flags.
// Implements the pipeline's MetadataSource. A failed or partial answer is
// normal for fresh launches; the caller substitutes its documented defaults
// for whatever stays nil.
func (c *Client) TokenMetadata(ctx context.Context, address string) (domain.TokenMetadata, error) {
	respBody, err := c.makeRequest(ctx, http.MethodPost, c.restURL("/tokens/metadata"),
		tokenMetadataRequest{MintAccounts: []string{address}})
	if err != nil {
		return domain.TokenMetadata{}, fmt.Errorf("failed to get token metadata: %w", err)
	}

	var entries []tokenMetadataEntry
	if err := json.Unmarshal(respBody, &entries); err != nil {
		return domain.TokenMetadata{}, fmt.Errorf("failed to unmarshal token metadata: %w", err)
	}
	if len(entries) == 0 {
		return domain.TokenMetadata{}, fmt.Errorf("no metadata returned for %s", address)
	}

	entry := entries[0]
	meta := domain.TokenMetadata{
		Name:          entry.Name,
		LiquidityUsd:  entry.LiquidityUsd,
		MarketCapUsd:  entry.MarketCapUsd,
		DevHoldingPct: entry.DevHolding,
		PoolSupplyPct: entry.PoolSupply,
		LaunchPrice:   entry.Price,
	}

	// Authority flags come from the mint account itself; a revoked authority
	// is a null authority field. Lookup failure leaves the flags nil rather
	// than failing the whole metadata answer.
	mintRevoked, freezeRevoked, err := c.mintAuthorities(ctx, address)
	if err != nil {
		logging.LogWarn("Mint account lookup failed, authority flags unknown",
			zap.String("address", address), zap.Error(err))
		return meta, nil
	}
	meta.MintAuthorityRevoked = &mintRevoked
	meta.FreezeAuthorityRevoked = &freezeRevoked

	return meta, nil
}

// mintAuthorities reads the mint account and reports whether its mint and
// freeze authorities have been revoked.
func (c *Client) mintAuthorities(ctx context.Context, address string) (mintRevoked, freezeRevoked bool, err error) {
	var info mintAccountInfo
	err = c.rpcCall(ctx, "getAccountInfo",
		[]interface{}{address, map[string]string{"encoding": "jsonParsed"}}, &info)
	if err != nil {
		return false, false, err
	}
	if info.Value == nil {
		return false, false, fmt.Errorf("mint account %s not found", address)
	}

	parsed := info.Value.Data.Parsed.Info
	return parsed.MintAuthority == nil, parsed.FreezeAuthority == nil, nil
}
