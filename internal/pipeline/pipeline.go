package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pumpwatch/internal/dispatch"
	"pumpwatch/internal/domain"
	"pumpwatch/internal/filters"
	logging "pumpwatch/internal/infra/log"
)

// Status is the terminal state of one event's trip through the pipeline.
type Status int

const (
	// StatusDispatched: the token matched (or bypass was on) and an alert
	// went out.
	StatusDispatched Status = iota
	// StatusSuppressed: dedup or the evaluator stopped the event; no alert.
	StatusSuppressed
	// StatusSkipped: the event never produced a usable address, or
	// processing faulted before a verdict. No alert.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusDispatched:
		return "dispatched"
	case StatusSuppressed:
		return "suppressed"
	default:
		return "skipped"
	}
}

// EventResult reports the outcome of one event in a batch.
type EventResult struct {
	Address    string
	Status     Status
	Generation uint64
	Reason     string
	Err        error
	Trade      *dispatch.TradeResult
}

// Report aggregates per-event results for one batch. One event's failure
// never aborts its siblings, so the report can mix all three statuses.
type Report struct {
	Results []EventResult
}

// Count returns how many events ended in the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Dispatcher is the alert-sending capability the pipeline depends on.
// *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, token domain.TokenDescriptor) dispatch.Result
}

// Pipeline orchestrates normalize -> dedup -> evaluate -> dispatch for
// inbound event batches.
type Pipeline struct {
	normalizer *Normalizer
	store      *filters.Store
	guard      *DedupGuard
	dispatcher Dispatcher

	// bypass forces every normalized token to be treated as matching.
	// Operator deployment switch, passed in explicitly at construction.
	bypass bool
}

// New assembles a pipeline. bypass is the operator-controlled switch that
// short-circuits the evaluator (dedup still applies).
func New(normalizer *Normalizer, store *filters.Store, guard *DedupGuard, dispatcher Dispatcher, bypass bool) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		store:      store,
		guard:      guard,
		dispatcher: dispatcher,
		bypass:     bypass,
	}
}

// ProcessBatch runs every event of a batch through the pipeline in order.
// Per-event errors are contained: normalization faults, dispatch failures
// and panics mark that event's result and processing moves on.
func (p *Pipeline) ProcessBatch(ctx context.Context, events []RawEvent) Report {
	report := Report{Results: make([]EventResult, 0, len(events))}
	for _, event := range events {
		report.Results = append(report.Results, p.processEvent(ctx, event))
	}

	logging.LogInfo("Batch processed",
		zap.Int("events", len(events)),
		zap.Int("dispatched", report.Count(StatusDispatched)),
		zap.Int("suppressed", report.Count(StatusSuppressed)),
		zap.Int("skipped", report.Count(StatusSkipped)))

	return report
}

// processEvent drives one event through the state machine:
// Received -> Normalized -> Deduplicated -> Evaluated ->
// (Dispatched | Suppressed | Skipped) -> Recorded.
func (p *Pipeline) processEvent(ctx context.Context, event RawEvent) (result EventResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("pipeline fault: %v", r)
			logging.LogError("Recovered from panic while processing event",
				zap.String("address", result.Address), zap.Error(err))
			if result.Address != "" && result.Generation != 0 {
				p.guard.Settle(result.Address, result.Generation, OutcomeErrored)
			}
			result.Status = StatusSkipped
			result.Reason = "pipeline fault"
			result.Err = err
		}
	}()

	token, err := p.normalizer.Normalize(ctx, event)
	if err != nil {
		if errors.Is(err, ErrMissingAddress) {
			logging.LogWarn("Event without token address skipped",
				zap.String("kind", event.Kind().String()),
				zap.String("signature", event.Signature))
			return EventResult{Status: StatusSkipped, Reason: "missing address", Err: err}
		}
		return EventResult{Status: StatusSkipped, Reason: "normalization failed", Err: err}
	}

	if token.Degraded {
		logging.LogWarn("Token address recovered from low-confidence source",
			zap.String("address", token.Address))
	}

	config, generation := p.store.Snapshot()
	result = EventResult{Address: token.Address, Generation: generation}

	if !p.guard.Claim(token.Address, generation) {
		result.Status = StatusSuppressed
		result.Reason = "already processed this generation"
		logging.LogDebug("Duplicate delivery suppressed",
			zap.String("address", token.Address),
			zap.Uint64("generation", generation))
		return result
	}

	if !p.bypass && !filters.Matches(token, config) {
		p.guard.Settle(token.Address, generation, OutcomeFiltered)
		result.Status = StatusSuppressed
		result.Reason = "did not match filters"
		logging.LogDebug("Token filtered out",
			zap.String("address", token.Address),
			zap.Uint64("generation", generation))
		return result
	}

	dres := p.dispatcher.Dispatch(ctx, token)
	if dres.Trade != nil {
		result.Trade = dres.Trade
	}
	if dres.AlertErr != nil {
		// Alert never left; recorded as errored, replays this generation
		// stay suppressed. Retry policy belongs to the operator.
		p.guard.Settle(token.Address, generation, OutcomeErrored)
		result.Status = StatusSkipped
		result.Reason = "dispatch failed"
		result.Err = dres.AlertErr
		return result
	}

	p.guard.Settle(token.Address, generation, OutcomeAlerted)
	result.Status = StatusDispatched
	logging.LogSuccess("Token alert dispatched",
		zap.String("address", token.Address),
		zap.String("name", token.Name),
		zap.Uint64("generation", generation))
	return result
}
