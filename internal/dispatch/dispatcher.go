package dispatch

// Package dispatch renders qualifying tokens into chat notifications and
// hands them to the Notifier, optionally firing an automated buy.

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pumpwatch/internal/domain"
	logging "pumpwatch/internal/infra/log"
)

// ErrDispatchFailed marks a notifier send that did not go through. The
// dispatcher does not retry; that policy belongs to the operator/transport.
var ErrDispatchFailed = errors.New("alert dispatch failed")

// Notifier is the chat transport capability. Implementations must honor ctx
// deadlines so a stuck transport fails fast instead of stalling the
// pipeline.
type Notifier interface {
	SendAlert(ctx context.Context, text string, controls [][]Control) error
}

// TradeExecutor is the trade-execution capability. Buy returns the
// transaction signature on success.
type TradeExecutor interface {
	Buy(ctx context.Context, address string, amountSol float64) (string, error)
}

// TradeResult reports the optional auto-snipe attempt attached to an alert.
type TradeResult struct {
	Signature string
	Err       error
}

// Result is the outcome of one Dispatch call. AlertErr is nil iff the
// notification went out; Trade is non-nil iff an auto-buy was attempted.
// Alert-then-trade is deliberately not atomic: a failed trade never retracts
// the alert that already went out.
type Result struct {
	AlertErr error
	Trade    *TradeResult
}

// Dispatcher sends token alerts and optional auto-snipe buys.
type Dispatcher struct {
	notifier Notifier
	executor TradeExecutor

	// autoSnipe and snipeAmountSol are explicit deployment switches, read
	// once at startup and passed in, never re-read ambiently.
	autoSnipe      bool
	snipeAmountSol float64
}

// NewDispatcher builds a dispatcher. executor may be nil when autoSnipe is
// off.
func NewDispatcher(notifier Notifier, executor TradeExecutor, autoSnipe bool, snipeAmountSol float64) *Dispatcher {
	return &Dispatcher{
		notifier:       notifier,
		executor:       executor,
		autoSnipe:      autoSnipe,
		snipeAmountSol: snipeAmountSol,
	}
}

// Dispatch renders the token and sends the alert; with auto-snipe on it then
// fires the buy. Dispatch succeeds independently of the trade outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, token domain.TokenDescriptor) Result {
	text := RenderAlert(token)
	if err := d.notifier.SendAlert(ctx, text, Controls(token.Address)); err != nil {
		logging.LogError("Failed to send token alert",
			zap.String("address", token.Address), zap.Error(err))
		return Result{AlertErr: fmt.Errorf("%w: %w", ErrDispatchFailed, err)}
	}

	if !d.autoSnipe || d.executor == nil {
		return Result{}
	}

	sig, err := d.executor.Buy(ctx, token.Address, d.snipeAmountSol)
	if err != nil {
		logging.LogError("Auto-snipe buy failed",
			zap.String("address", token.Address),
			zap.Float64("amount_sol", d.snipeAmountSol),
			zap.Error(err))
	} else {
		logging.LogSuccess("Auto-snipe buy submitted",
			zap.String("address", token.Address),
			zap.String("signature", sig),
			zap.Float64("amount_sol", d.snipeAmountSol))
	}
	return Result{Trade: &TradeResult{Signature: sig, Err: err}}
}
