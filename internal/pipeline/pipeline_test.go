package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpwatch/internal/dispatch"
	"pumpwatch/internal/domain"
	"pumpwatch/internal/filters"
)

// fakeDispatcher records every dispatch and answers with a canned result.
type fakeDispatcher struct {
	mu       sync.Mutex
	sent     []string
	alertErr error
	trade    *dispatch.TradeResult
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, token domain.TokenDescriptor) dispatch.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, token.Address)
	return dispatch.Result{AlertErr: f.alertErr, Trade: f.trade}
}

func (f *fakeDispatcher) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// matchingEvent carries a full set of fields inside the default filter
// ranges, so no metadata lookup is needed and the token qualifies.
func matchingEvent(addr string) RawEvent {
	return RawEvent{
		Type:                   "TOKEN_MINT",
		TokenMint:              addr,
		Name:                   "Moon",
		LiquidityUsd:           fptr(8000),
		MarketCapUsd:           fptr(20000),
		DevHoldingPct:          fptr(5),
		PoolSupplyPct:          fptr(50),
		LaunchPrice:            fptr(0.000005),
		MintAuthorityRevoked:   bptr(true),
		FreezeAuthorityRevoked: bptr(false),
	}
}

func newTestPipeline(t *testing.T, disp Dispatcher, bypass bool) (*Pipeline, *filters.Store) {
	t.Helper()
	store := filters.NewDefaultStore()
	p := New(NewNormalizer(&fakeMetadataSource{err: errors.New("unused")}), store, NewDedupGuard(0), disp, bypass)
	return p, store
}

func TestPipeline_MatchingTokenDispatchedOnce(t *testing.T) {
	disp := &fakeDispatcher{}
	p, _ := newTestPipeline(t, disp, false)

	report := p.ProcessBatch(context.Background(), []RawEvent{matchingEvent(plausibleAddr)})
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusDispatched, report.Results[0].Status)
	assert.Equal(t, plausibleAddr, report.Results[0].Address)
	assert.Equal(t, 1, disp.sentCount())

	// Replay of the same event is suppressed, not re-alerted.
	report = p.ProcessBatch(context.Background(), []RawEvent{matchingEvent(plausibleAddr)})
	assert.Equal(t, StatusSuppressed, report.Results[0].Status)
	assert.Equal(t, "already processed this generation", report.Results[0].Reason)
	assert.Equal(t, 1, disp.sentCount())
}

func TestPipeline_NonMatchingTokenSuppressed(t *testing.T) {
	disp := &fakeDispatcher{}
	p, _ := newTestPipeline(t, disp, false)

	event := matchingEvent(plausibleAddr)
	event.LiquidityUsd = fptr(500) // below the default minimum

	report := p.ProcessBatch(context.Background(), []RawEvent{event})
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusSuppressed, report.Results[0].Status)
	assert.Equal(t, "did not match filters", report.Results[0].Reason)
	assert.Zero(t, disp.sentCount())

	outcome, ok := p.guard.Outcome(plausibleAddr, report.Results[0].Generation)
	require.True(t, ok)
	assert.Equal(t, OutcomeFiltered, outcome)
}

func TestPipeline_ConfigChangeReopensFilteredToken(t *testing.T) {
	disp := &fakeDispatcher{}
	p, store := newTestPipeline(t, disp, false)

	event := matchingEvent(plausibleAddr)
	event.LiquidityUsd = fptr(500)

	report := p.ProcessBatch(context.Background(), []RawEvent{event})
	require.Equal(t, StatusSuppressed, report.Results[0].Status)

	// Widening the liquidity range bumps the generation; the same token now
	// qualifies on redelivery.
	require.NoError(t, store.SetRange(filters.FieldLiquidity, 0, 1000))

	report = p.ProcessBatch(context.Background(), []RawEvent{event})
	require.Equal(t, StatusDispatched, report.Results[0].Status)
	assert.Equal(t, 1, disp.sentCount())
}

func TestPipeline_DispatchFailureRecordedAsErrored(t *testing.T) {
	disp := &fakeDispatcher{alertErr: dispatch.ErrDispatchFailed}
	p, _ := newTestPipeline(t, disp, false)

	report := p.ProcessBatch(context.Background(), []RawEvent{matchingEvent(plausibleAddr)})
	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, "dispatch failed", res.Reason)
	assert.ErrorIs(t, res.Err, dispatch.ErrDispatchFailed)

	outcome, ok := p.guard.Outcome(plausibleAddr, res.Generation)
	require.True(t, ok)
	assert.Equal(t, OutcomeErrored, outcome)

	// Replays within the same generation stay suppressed.
	report = p.ProcessBatch(context.Background(), []RawEvent{matchingEvent(plausibleAddr)})
	assert.Equal(t, StatusSuppressed, report.Results[0].Status)
}

func TestPipeline_BypassSkipsEvaluatorButNotDedup(t *testing.T) {
	disp := &fakeDispatcher{}
	p, _ := newTestPipeline(t, disp, true)

	event := matchingEvent(plausibleAddr)
	event.LiquidityUsd = fptr(0) // would never match

	report := p.ProcessBatch(context.Background(), []RawEvent{event, event})
	require.Len(t, report.Results, 2)
	assert.Equal(t, StatusDispatched, report.Results[0].Status)
	assert.Equal(t, StatusSuppressed, report.Results[1].Status)
	assert.Equal(t, 1, disp.sentCount())
}

func TestPipeline_BatchSiblingsAreIsolated(t *testing.T) {
	disp := &fakeDispatcher{}
	p, _ := newTestPipeline(t, disp, false)

	nonMatching := matchingEvent("3Kt2VEyyk7TJkrmyeSyHXiTDDg1FFhDHCZTiz21r3Pba")
	nonMatching.MarketCapUsd = fptr(500000)

	report := p.ProcessBatch(context.Background(), []RawEvent{
		{}, // no address at all
		matchingEvent(plausibleAddr),
		nonMatching,
	})
	require.Len(t, report.Results, 3)

	assert.Equal(t, StatusSkipped, report.Results[0].Status)
	assert.ErrorIs(t, report.Results[0].Err, ErrMissingAddress)
	assert.Equal(t, StatusDispatched, report.Results[1].Status)
	assert.Equal(t, StatusSuppressed, report.Results[2].Status)

	assert.Equal(t, 1, report.Count(StatusSkipped))
	assert.Equal(t, 1, report.Count(StatusDispatched))
	assert.Equal(t, 1, report.Count(StatusSuppressed))
}

func TestPipeline_ConcurrentReplayAlertsOnce(t *testing.T) {
	disp := &fakeDispatcher{}
	p, _ := newTestPipeline(t, disp, false)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.ProcessBatch(context.Background(), []RawEvent{matchingEvent(plausibleAddr)})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, disp.sentCount())
}

func TestPipeline_TradeResultPropagated(t *testing.T) {
	disp := &fakeDispatcher{trade: &dispatch.TradeResult{Signature: "sig123"}}
	p, _ := newTestPipeline(t, disp, false)

	report := p.ProcessBatch(context.Background(), []RawEvent{matchingEvent(plausibleAddr)})
	require.Len(t, report.Results, 1)
	require.NotNil(t, report.Results[0].Trade)
	assert.Equal(t, "sig123", report.Results[0].Trade.Signature)
}
