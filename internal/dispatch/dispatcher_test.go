package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	texts    []string
	controls [][][]Control
	err      error
}

func (f *fakeNotifier) SendAlert(ctx context.Context, text string, controls [][]Control) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	f.controls = append(f.controls, controls)
	return nil
}

type fakeExecutor struct {
	buys      []float64
	addresses []string
	sig       string
	err       error
}

func (f *fakeExecutor) Buy(ctx context.Context, address string, amountSol float64) (string, error) {
	f.addresses = append(f.addresses, address)
	f.buys = append(f.buys, amountSol)
	if f.err != nil {
		return "", f.err
	}
	return f.sig, nil
}

func TestDispatch_SendsRenderedAlert(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDispatcher(notifier, nil, false, 0)

	res := d.Dispatch(context.Background(), sampleToken())
	require.NoError(t, res.AlertErr)
	assert.Nil(t, res.Trade)

	require.Len(t, notifier.texts, 1)
	assert.Equal(t, RenderAlert(sampleToken()), notifier.texts[0])
	require.Len(t, notifier.controls, 1)
	assert.Equal(t, Controls(sampleToken().Address), notifier.controls[0])
}

func TestDispatch_NotifierFailure(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("telegram: 502")}
	executor := &fakeExecutor{sig: "sig"}
	d := NewDispatcher(notifier, executor, true, 0.1)

	res := d.Dispatch(context.Background(), sampleToken())
	require.ErrorIs(t, res.AlertErr, ErrDispatchFailed)
	assert.Nil(t, res.Trade)
	assert.Empty(t, executor.buys, "no buy without a delivered alert")
}

func TestDispatch_AutoSnipe(t *testing.T) {
	notifier := &fakeNotifier{}
	executor := &fakeExecutor{sig: "5xTxSig"}
	d := NewDispatcher(notifier, executor, true, 0.25)

	res := d.Dispatch(context.Background(), sampleToken())
	require.NoError(t, res.AlertErr)
	require.NotNil(t, res.Trade)
	assert.Equal(t, "5xTxSig", res.Trade.Signature)
	assert.NoError(t, res.Trade.Err)

	require.Len(t, executor.buys, 1)
	assert.Equal(t, 0.25, executor.buys[0])
	assert.Equal(t, sampleToken().Address, executor.addresses[0])
}

func TestDispatch_TradeFailureDoesNotRetractAlert(t *testing.T) {
	notifier := &fakeNotifier{}
	executor := &fakeExecutor{err: errors.New("insufficient balance")}
	d := NewDispatcher(notifier, executor, true, 0.1)

	res := d.Dispatch(context.Background(), sampleToken())
	require.NoError(t, res.AlertErr, "alert stands even when the buy fails")
	require.NotNil(t, res.Trade)
	assert.Error(t, res.Trade.Err)
	assert.Len(t, notifier.texts, 1)
}

func TestDispatch_AutoSnipeOffSkipsExecutor(t *testing.T) {
	notifier := &fakeNotifier{}
	executor := &fakeExecutor{sig: "sig"}
	d := NewDispatcher(notifier, executor, false, 0.1)

	res := d.Dispatch(context.Background(), sampleToken())
	require.NoError(t, res.AlertErr)
	assert.Nil(t, res.Trade)
	assert.Empty(t, executor.buys)
}
