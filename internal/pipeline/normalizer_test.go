package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpwatch/internal/domain"
)

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

// fakeMetadataSource is a canned MetadataSource for tests.
type fakeMetadataSource struct {
	meta  domain.TokenMetadata
	err   error
	calls int
}

func (f *fakeMetadataSource) TokenMetadata(ctx context.Context, address string) (domain.TokenMetadata, error) {
	f.calls++
	if f.err != nil {
		return domain.TokenMetadata{}, f.err
	}
	return f.meta, nil
}

// A syntactically valid 32-byte base58 pubkey (the system program id).
const plausibleAddr = "11111111111111111111111111111111"

func TestExtractAddress_PriorityChain(t *testing.T) {
	cases := []struct {
		name     string
		event    RawEvent
		addr     string
		degraded bool
	}{
		{
			name:  "explicit mint wins",
			event: RawEvent{Type: "TOKEN_MINT", TokenMint: "Mint1", Accounts: []string{"Acc1"}, Signature: "Sig1"},
			addr:  "Mint1",
		},
		{
			name:  "first account when no mint",
			event: RawEvent{Accounts: []string{"Acc1", "Acc2"}, Signature: "Sig1"},
			addr:  "Acc1",
		},
		{
			name:     "signature as last resort is degraded",
			event:    RawEvent{Signature: "Sig1"},
			addr:     "Sig1",
			degraded: true,
		},
		{
			name:  "program account change uses first account",
			event: RawEvent{ProgramID: PumpFunProgramID, Accounts: []string{"Acc1"}, TokenMint: "Mint1"},
			addr:  "Acc1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			addr, degraded, err := extractAddress(tc.event)
			require.NoError(t, err)
			assert.Equal(t, tc.addr, addr)
			assert.Equal(t, tc.degraded, degraded)
		})
	}
}

func TestExtractAddress_Missing(t *testing.T) {
	_, _, err := extractAddress(RawEvent{Type: "TOKEN_MINT"})
	assert.ErrorIs(t, err, ErrMissingAddress)
}

func TestNormalize_MissingAddressHasNoSideEffects(t *testing.T) {
	source := &fakeMetadataSource{}
	n := NewNormalizer(source)

	_, err := n.Normalize(context.Background(), RawEvent{})
	require.ErrorIs(t, err, ErrMissingAddress)
	assert.Zero(t, source.calls, "no metadata lookup for an unaddressable event")
}

func TestNormalize_FallbackDefaultsOnFailingSource(t *testing.T) {
	// Event carries nothing, the source fails: the descriptor is still
	// complete and populated with the documented defaults.
	source := &fakeMetadataSource{err: errors.New("timeout")}
	n := NewNormalizer(source)

	desc, err := n.Normalize(context.Background(), RawEvent{Type: "TOKEN_MINT", TokenMint: plausibleAddr})
	require.NoError(t, err)

	assert.Equal(t, plausibleAddr, desc.Address)
	assert.Equal(t, "Token_11111111", desc.Name)
	assert.Equal(t, float64(FallbackLiquidityUsd), desc.LiquidityUsd)
	assert.Equal(t, float64(FallbackMarketCapUsd), desc.MarketCapUsd)
	assert.Equal(t, float64(FallbackDevHoldingPct), desc.DevHoldingPct)
	assert.Equal(t, float64(FallbackPoolSupplyPct), desc.PoolSupplyPct)
	assert.Equal(t, FallbackLaunchPrice, desc.LaunchPrice)
	assert.False(t, desc.MintAuthorityRevoked)
	assert.False(t, desc.FreezeAuthorityRevoked)
	assert.False(t, desc.Degraded)
}

func TestNormalize_MetadataFillsMissingFields(t *testing.T) {
	source := &fakeMetadataSource{meta: domain.TokenMetadata{
		Name:                   "Moon",
		LiquidityUsd:           fptr(8000),
		MarketCapUsd:           fptr(20000),
		DevHoldingPct:          fptr(5),
		PoolSupplyPct:          fptr(50),
		LaunchPrice:            fptr(0.000005),
		MintAuthorityRevoked:   bptr(true),
		FreezeAuthorityRevoked: bptr(false),
	}}
	n := NewNormalizer(source)

	desc, err := n.Normalize(context.Background(), RawEvent{Type: "TOKEN_MINT", TokenMint: plausibleAddr})
	require.NoError(t, err)

	assert.Equal(t, "Moon", desc.Name)
	assert.Equal(t, 8000.0, desc.LiquidityUsd)
	assert.True(t, desc.MintAuthorityRevoked)
	assert.Equal(t, 1, source.calls)
}

func TestNormalize_EventFieldsWinOverMetadata(t *testing.T) {
	source := &fakeMetadataSource{meta: domain.TokenMetadata{
		LiquidityUsd: fptr(8000),
	}}
	n := NewNormalizer(source)

	desc, err := n.Normalize(context.Background(), RawEvent{
		Type:         "TOKEN_MINT",
		TokenMint:    plausibleAddr,
		LiquidityUsd: fptr(123),
	})
	require.NoError(t, err)
	assert.Equal(t, 123.0, desc.LiquidityUsd)
}

func TestNormalize_ImplausibleAddressFlagged(t *testing.T) {
	source := &fakeMetadataSource{err: errors.New("not found")}
	n := NewNormalizer(source)

	desc, err := n.Normalize(context.Background(), RawEvent{Type: "TOKEN_MINT", TokenMint: "TEST_TOKEN_ADDRESS"})
	require.NoError(t, err)
	assert.True(t, desc.Degraded)
	assert.Equal(t, "TEST_TOKEN_ADDRESS", desc.Address)
}
