package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpwatch/internal/domain"
)

func sampleToken() domain.TokenDescriptor {
	return domain.TokenDescriptor{
		Address:                "So11111111111111111111111111111111111111112",
		Name:                   "Moon",
		LiquidityUsd:           8000,
		MarketCapUsd:           20000,
		DevHoldingPct:          5,
		PoolSupplyPct:          50,
		LaunchPrice:            0.000005,
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: false,
	}
}

func TestRenderAlert(t *testing.T) {
	text := RenderAlert(sampleToken())

	assert.Contains(t, text, "New Token Alert on Pump.fun!")
	assert.Contains(t, text, "Name: Moon")
	assert.Contains(t, text, "Contract: So11111111111111111111111111111111111111112")
	assert.Contains(t, text, "Liquidity: $8000.00")
	assert.Contains(t, text, "Market Cap: $20000.00")
	assert.Contains(t, text, "Dev Holding: 5.00%")
	assert.Contains(t, text, "Pool Supply: 50.00%")
	assert.Contains(t, text, "Launch Price: $0.000005000")
	assert.Contains(t, text, "Mint Revoked: true")
	assert.Contains(t, text, "Freeze Revoked: false")
	assert.Contains(t, text, ChartURL(sampleToken().Address))
}

func TestRenderAlert_Deterministic(t *testing.T) {
	token := sampleToken()
	assert.Equal(t, RenderAlert(token), RenderAlert(token))
}

func TestCallbackDataRoundTrip(t *testing.T) {
	addr := sampleToken().Address

	for _, action := range []string{ActionRefresh, ActionBuy, ActionDetails} {
		data := CallbackData(action, addr)
		gotAction, gotAddr := ParseCallbackData(data)
		assert.Equal(t, action, gotAction)
		assert.Equal(t, addr, gotAddr)
	}

	// Ignore carries no address.
	data := CallbackData(ActionIgnore, addr)
	assert.Equal(t, ActionIgnore, data)
	gotAction, gotAddr := ParseCallbackData(data)
	assert.Equal(t, ActionIgnore, gotAction)
	assert.Empty(t, gotAddr)
}

func TestControls(t *testing.T) {
	addr := sampleToken().Address
	rows := Controls(addr)

	require.Len(t, rows, 2)
	require.Len(t, rows[0], 2)
	require.Len(t, rows[1], 2)

	var datas []string
	for _, row := range rows {
		for _, c := range row {
			assert.NotEmpty(t, c.Label)
			datas = append(datas, c.Data)
		}
	}

	assert.Contains(t, datas, ActionRefresh+"_"+addr)
	assert.Contains(t, datas, ActionBuy+"_"+addr)
	assert.Contains(t, datas, ActionDetails+"_"+addr)
	assert.Contains(t, datas, ActionIgnore)

	// Telegram caps callback data at 64 bytes; a full-length pubkey plus the
	// longest action tag must fit.
	for _, d := range datas {
		assert.LessOrEqual(t, len(d), 64, d)
	}
}
