package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-trading/matchcore/internal/matching/types"
)

func TestSymbolBookLimitOrdersRestUntilMatch(t *testing.T) {
	sb := NewSymbolBook("ACME", 0)

	trades, err := sb.Add(types.SideBuy, types.TypeLimit, 1, 100, 1000, 10)
	require.NoError(t, err)
	assert.Empty(t, trades)

	trades, err = sb.Add(types.SideSell, types.TypeLimit, 2, 101, 900, 6)
	require.NoError(t, err)
	assert.Empty(t, trades, "plain New does not auto-match; only an explicit Match call crosses the book")

	matched := sb.Match(102)
	require.Len(t, matched, 1)
	tr := matched[0]
	assert.EqualValues(t, 1, tr.BuyID)
	assert.EqualValues(t, 2, tr.SellID)
	assert.EqualValues(t, 6, tr.SellQtyBefore)
	assert.Equal(t, tr.BuyPrice, types.Price(1000), "trade price is always the buy side's price")
}

func TestSymbolBookMatchLoopDrainsUntilNoCross(t *testing.T) {
	sb := NewSymbolBook("ACME", 0)
	sb.Add(types.SideBuy, types.TypeLimit, 1, 100, 1000, 10)
	sb.Add(types.SideSell, types.TypeLimit, 2, 101, 900, 4)
	sb.Add(types.SideSell, types.TypeLimit, 3, 102, 950, 6)

	trades := sb.Match(200)
	require.Len(t, trades, 2)
	assert.Nil(t, sb.Buys.Top())
	assert.Nil(t, sb.Sells.Top())
}

func TestSymbolBookIOCCrossesOnArrival(t *testing.T) {
	sb := NewSymbolBook("ACME", 0)
	sb.Add(types.SideSell, types.TypeLimit, 1, 100, 1000, 10)

	trades, err := sb.Add(types.SideBuy, types.TypeIOC, 2, 150, 1000, 4)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.EqualValues(t, 6, sb.Sells.Top().Current().QuantityRemaining)

	_, found := sb.Buys.Get(2)
	assert.False(t, found, "IOC order is never inserted into the SideBook at all")
	assert.Nil(t, sb.Buys.Top(), "IOC order must never rest in the book")
}

func TestSymbolBookIOCUnfilledRemainderCancels(t *testing.T) {
	sb := NewSymbolBook("ACME", 0)

	trades, err := sb.Add(types.SideBuy, types.TypeIOC, 1, 100, 1000, 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Nil(t, sb.Buys.Top())

	_, found := sb.Buys.Get(1)
	assert.False(t, found, "an unfilled IOC order is never inserted into the SideBook either")
}

func TestSymbolBookMarketIgnoresPriceLimit(t *testing.T) {
	sb := NewSymbolBook("ACME", 0)
	sb.Add(types.SideSell, types.TypeLimit, 1, 100, 5000, 10)

	trades, err := sb.Add(types.SideBuy, types.TypeMarket, 2, 150, 0, 3)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, trades[0].BuyPrice, types.Price(0), "market orders carry no limit price of their own")
	assert.EqualValues(t, 7, sb.Sells.Top().Current().QuantityRemaining)
}

func TestSymbolBookSnapshotMemoizesUntilMutation(t *testing.T) {
	sb := NewSymbolBook("ACME", 0)
	sb.Add(types.SideBuy, types.TypeLimit, 1, 100, 1000, 10)

	first := sb.Snapshot(200)
	require.Len(t, first, 1)

	sb.Add(types.SideBuy, types.TypeLimit, 2, 150, 1100, 5)
	second := sb.Snapshot(200)
	require.Len(t, second, 2, "mutation must invalidate the memoized snapshot")
	assert.EqualValues(t, 2, second[0].Buy.ID, "higher price ranks first")
}
