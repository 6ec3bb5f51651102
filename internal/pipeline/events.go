package pipeline

// Package pipeline contains the event ingestion core: raw event
// normalization, duplicate suppression and per-event orchestration from an
// inbound batch to a recorded outcome.

import "encoding/json"

// PumpFunProgramID is the launch-platform program whose events we treat as
// token creations even when the event type tag is missing.
const PumpFunProgramID = "675kPX9G2jELzfT5vY26a6qCa3YkoF5qL78xJ6nQozT"

// EventKind discriminates the known raw-event variants. Webhook payloads are
// duck-typed upstream; we pin them to a tagged union here instead of probing
// optional fields all over the pipeline.
type EventKind int

const (
	// KindTokenMint is an explicit TOKEN_MINT event.
	KindTokenMint EventKind = iota
	// KindProgramAccountChange is an account-change event attributed to the
	// launch program, with the mint as the first listed account.
	KindProgramAccountChange
	// KindGeneric is anything else; the full address priority chain applies.
	KindGeneric
)

func (k EventKind) String() string {
	switch k {
	case KindTokenMint:
		return "TOKEN_MINT"
	case KindProgramAccountChange:
		return "PROGRAM_ACCOUNT_CHANGE"
	default:
		return "GENERIC"
	}
}

// RawEvent is one element of an inbound webhook batch or one chain
// subscription callback, before normalization. Pointer fields are webhook
// enrichments that may or may not be present; absent ones are resolved via
// the metadata source.
type RawEvent struct {
	Type      string   `json:"type"`
	ProgramID string   `json:"programId"`
	TokenMint string   `json:"tokenMint"`
	Accounts  []string `json:"accounts"`
	Signature string   `json:"signature"`

	Name                   string   `json:"name,omitempty"`
	LiquidityUsd           *float64 `json:"liquidity,omitempty"`
	MarketCapUsd           *float64 `json:"marketCap,omitempty"`
	DevHoldingPct          *float64 `json:"devHolding,omitempty"`
	PoolSupplyPct          *float64 `json:"poolSupply,omitempty"`
	LaunchPrice            *float64 `json:"price,omitempty"`
	MintAuthorityRevoked   *bool    `json:"mintAuthorityRevoked,omitempty"`
	FreezeAuthorityRevoked *bool    `json:"freezeAuthorityRevoked,omitempty"`
}

// Kind classifies the event into the tagged union.
func (e RawEvent) Kind() EventKind {
	switch {
	case e.Type == "TOKEN_MINT":
		return KindTokenMint
	case e.ProgramID == PumpFunProgramID && len(e.Accounts) > 0:
		return KindProgramAccountChange
	default:
		return KindGeneric
	}
}

// ParseBatch decodes a webhook body into a batch of raw events. The body
// must be a JSON array; anything else is a malformed batch and the caller
// answers with HTTP 400.
func ParseBatch(body []byte) ([]RawEvent, error) {
	var events []RawEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// TestEvent returns the canned event pushed through the pipeline by the
// /test-webhook endpoint.
func TestEvent() RawEvent {
	return RawEvent{
		Type:      "TOKEN_MINT",
		TokenMint: "TEST_TOKEN_ADDRESS",
		ProgramID: PumpFunProgramID,
		Accounts:  []string{"TEST_TOKEN_ADDRESS"},
	}
}
