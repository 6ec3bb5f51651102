package dispatch

// Alert message rendering. The text is deterministic for a given descriptor
// so duplicate-detection tests and message edits stay stable.

import (
	"fmt"
	"strings"

	"pumpwatch/internal/domain"
)

// Inline control actions attached to every alert. Callback data carries the
// token address as correlation data, "<action>_<address>".
const (
	ActionRefresh = "refresh"
	ActionBuy     = "buy"
	ActionDetails = "details"
	ActionIgnore  = "ignore"
)

// ChartURL builds the external chart link included in every alert.
func ChartURL(address string) string {
	return "https://dexscreener.com/solana/" + address
}

// CallbackData encodes an action button's payload.
func CallbackData(action, address string) string {
	if action == ActionIgnore {
		return ActionIgnore
	}
	return action + "_" + address
}

// ParseCallbackData splits a button payload back into action and address.
func ParseCallbackData(data string) (action, address string) {
	action, address, _ = strings.Cut(data, "_")
	return action, address
}

// RenderAlert produces the alert text for a qualifying token.
func RenderAlert(t domain.TokenDescriptor) string {
	var b strings.Builder
	b.WriteString("🚀 New Token Alert on Pump.fun! 🚀\n")
	fmt.Fprintf(&b, "Name: %s\n", t.Name)
	fmt.Fprintf(&b, "Contract: %s\n", t.Address)
	fmt.Fprintf(&b, "Liquidity: $%.2f\n", t.LiquidityUsd)
	fmt.Fprintf(&b, "Market Cap: $%.2f\n", t.MarketCapUsd)
	fmt.Fprintf(&b, "Dev Holding: %.2f%%\n", t.DevHoldingPct)
	fmt.Fprintf(&b, "Pool Supply: %.2f%%\n", t.PoolSupplyPct)
	fmt.Fprintf(&b, "Launch Price: $%.9f\n", t.LaunchPrice)
	fmt.Fprintf(&b, "Mint Revoked: %t\n", t.MintAuthorityRevoked)
	fmt.Fprintf(&b, "Freeze Revoked: %t\n", t.FreezeAuthorityRevoked)
	fmt.Fprintf(&b, "📊 Chart: %s", ChartURL(t.Address))
	return b.String()
}

// Controls returns the fixed button set for an alert, two rows of two.
func Controls(address string) [][]Control {
	return [][]Control{
		{
			{Label: "🔄 Refresh", Data: CallbackData(ActionRefresh, address)},
			{Label: "💰 Buy Now", Data: CallbackData(ActionBuy, address)},
		},
		{
			{Label: "➡️ Details", Data: CallbackData(ActionDetails, address)},
			{Label: "❌ Ignore", Data: CallbackData(ActionIgnore, address)},
		},
	}
}

// Control is one inline button: its label and callback payload.
type Control struct {
	Label string
	Data  string
}
