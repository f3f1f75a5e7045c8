package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-trading/matchcore/internal/matching/bus"
	"github.com/lattice-trading/matchcore/internal/matching/command"
	"github.com/lattice-trading/matchcore/internal/matching/directory"
	"github.com/lattice-trading/matchcore/internal/matching/event"
	"github.com/lattice-trading/matchcore/internal/matching/metrics"
	"github.com/lattice-trading/matchcore/internal/matching/types"
)

func newTestEngine(t *testing.T) (*Engine, <-chan event.Event) {
	t.Helper()
	eb := bus.New(nil)
	ch, err := eb.Subscribe(context.Background())
	require.NoError(t, err)
	e := New(directory.New(0), eb, metrics.New(), nil)
	return e, ch
}

func drain(t *testing.T, ch <-chan event.Event, n int) []event.Event {
	t.Helper()
	var out []event.Event
	for i := 0; i < n; i++ {
		select {
		case evt := <-ch:
			out = append(out, evt)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d/%d", i+1, n)
		}
	}
	return out
}

func newCmd(action command.Action, id types.OrderID, ts types.Timestamp, symbol string, side types.Side, typ types.OrderType, price types.Price, qty types.Quantity) command.Command {
	return command.Command{Action: action, OrderID: id, Timestamp: ts, Symbol: symbol, Side: side, OrderType: typ, Price: price, Quantity: qty}
}

func TestDispatchNewAcceptsAndPublishes(t *testing.T) {
	e, ch := newTestEngine(t)
	c := newCmd(command.ActionNew, 1, 1, "AB", types.SideBuy, types.TypeLimit, 10453, 100)

	require.NoError(t, e.Dispatch(c))
	evts := drain(t, ch, 1)
	assert.Equal(t, event.KindAccept, evts[0].Kind)
	assert.EqualValues(t, 1, evts[0].OrderID)
}

func TestDispatchRejectsTimestampRegression(t *testing.T) {
	e, ch := newTestEngine(t)
	require.NoError(t, e.Dispatch(newCmd(command.ActionNew, 1, 5, "AB", types.SideBuy, types.TypeLimit, 1000, 1)))
	drain(t, ch, 1)

	err := e.Dispatch(newCmd(command.ActionNew, 2, 3, "AB", types.SideSell, types.TypeLimit, 900, 1))
	assert.Error(t, err)
	evts := drain(t, ch, 1)
	assert.Equal(t, event.KindReject, evts[0].Kind)
	assert.Equal(t, event.CodeInvalidOrderDetails, evts[0].Code)
}

func TestDispatchCancelUnknownOrder(t *testing.T) {
	e, ch := newTestEngine(t)
	err := e.Dispatch(command.Command{Action: command.ActionCancel, OrderID: 999, Timestamp: 10})
	assert.Error(t, err)
	evts := drain(t, ch, 1)
	assert.Equal(t, event.KindCancelReject, evts[0].Kind)
	assert.Equal(t, event.CodeOrderDoesNotExist, evts[0].Code)
}

func TestDispatchMatchProducesTrade(t *testing.T) {
	e, ch := newTestEngine(t)
	require.NoError(t, e.Dispatch(newCmd(command.ActionNew, 1, 1, "AB", types.SideBuy, types.TypeLimit, 10453, 100)))
	drain(t, ch, 1)
	require.NoError(t, e.Dispatch(newCmd(command.ActionNew, 2, 2, "AB", types.SideSell, types.TypeLimit, 10000, 50)))
	drain(t, ch, 1)

	require.NoError(t, e.Dispatch(command.Command{Action: command.ActionMatch, Timestamp: 3, Format: command.FormatGlobal}))
	evts := drain(t, ch, 1)
	require.Equal(t, event.KindTrade, evts[0].Kind)
	assert.EqualValues(t, 1, evts[0].Trade.BuyID)
	assert.EqualValues(t, 2, evts[0].Trade.SellID)
}

func TestDispatchMatchUnknownSymbolIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.Dispatch(command.Command{Action: command.ActionMatch, Timestamp: 1, Format: command.FormatSymbol, Symbol: "NOPE"})
	assert.NoError(t, err)
}

func TestDispatchAmendThenCancel(t *testing.T) {
	e, ch := newTestEngine(t)
	require.NoError(t, e.Dispatch(newCmd(command.ActionNew, 1, 1, "AB", types.SideBuy, types.TypeLimit, 10000, 10)))
	drain(t, ch, 1)

	require.NoError(t, e.Dispatch(newCmd(command.ActionAmend, 1, 3, "AB", types.SideBuy, types.TypeLimit, 10100, 20)))
	evts := drain(t, ch, 1)
	assert.Equal(t, event.KindAmendAccept, evts[0].Kind)

	require.NoError(t, e.Dispatch(command.Command{Action: command.ActionCancel, OrderID: 1, Timestamp: 5}))
	evts = drain(t, ch, 1)
	assert.Equal(t, event.KindCancelAccept, evts[0].Kind)
}
