package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-trading/matchcore/internal/matching/event"
	"github.com/lattice-trading/matchcore/internal/matching/types"
)

func TestRenderAccept(t *testing.T) {
	line, ok := Render(event.Accept(1))
	require.True(t, ok)
	assert.Equal(t, "1 - Accept", line)
}

func TestRenderReject(t *testing.T) {
	line, ok := Render(event.Reject(7, event.CodeInvalidOrderDetails, "timestamp must not regress"))
	require.True(t, ok)
	assert.Equal(t, "7 - Reject - 303 - timestamp must not regress", line)
}

func TestRenderCancelReject(t *testing.T) {
	line, ok := Render(event.CancelReject(999, event.CodeOrderDoesNotExist, "Order does not exist"))
	require.True(t, ok)
	assert.Equal(t, "999 - CancelReject - 404 - Order does not exist", line)
}

func TestRenderTrade(t *testing.T) {
	tr := &event.Trade{
		Symbol: "AB", BuyID: 1, BuyType: types.TypeLimit, BuyQtyBefore: 100, BuyPrice: 10453,
		SellPrice: 10442, SellQtyBefore: 100, SellType: types.TypeLimit, SellID: 2,
	}
	line, ok := Render(event.TradeEvent(tr))
	require.True(t, ok)
	assert.Equal(t, "AB|1,L,100,104.53|104.42,100,L,2", line)
}

func TestRenderSnapshotRowBothSides(t *testing.T) {
	row := &event.SnapshotRow{
		Symbol: "AB",
		Buy:    &event.BookSide{ID: 1, Type: types.TypeLimit, Qty: 10, Price: 10000},
		Sell:   &event.BookSide{ID: 2, Type: types.TypeLimit, Qty: 5, Price: 10100},
	}
	line, ok := Render(event.SnapshotRowEvent(row))
	require.True(t, ok)
	assert.Equal(t, "AB|1,L,10,100.00|101.00,5,L,2", line)
}

func TestRenderSnapshotRowOneSideEmpty(t *testing.T) {
	row := &event.SnapshotRow{Symbol: "AB", Buy: &event.BookSide{ID: 1, Type: types.TypeLimit, Qty: 10, Price: 10000}}
	line, ok := Render(event.SnapshotRowEvent(row))
	require.True(t, ok)
	assert.Equal(t, "AB|1,L,10,100.00|", line)
}

func TestWriterWritesNewlineSeparatedLines(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, nil)
	require.NoError(t, w.Write(event.Accept(1)))
	require.NoError(t, w.Write(event.CancelAccept(2)))
	require.NoError(t, w.Flush())

	assert.Equal(t, "1 - Accept\n2 - CancelAccept\n", buf.String())
}
