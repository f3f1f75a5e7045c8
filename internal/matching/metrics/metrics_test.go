package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-trading/matchcore/internal/matching/event"
	"github.com/lattice-trading/matchcore/internal/matching/types"
)

func trade(symbol string, buyPrice types.Price, buyQty, sellQty types.Quantity) *event.Trade {
	return &event.Trade{
		Symbol:        symbol,
		BuyPrice:      buyPrice,
		BuyQtyBefore:  buyQty,
		SellQtyBefore: sellQty,
	}
}

func TestRecordTradeUpdatesCounterAndMovingAverage(t *testing.T) {
	m := New()
	m.RecordTrade(trade("AB", 10000, 10, 10))
	m.RecordTrade(trade("AB", 10200, 10, 10))

	avg, ok := m.MovingAverage("AB")
	require.True(t, ok)
	assert.InDelta(t, 101.0, avg, 0.001)
}

func TestMovingAverageUnknownSymbol(t *testing.T) {
	m := New()
	_, ok := m.MovingAverage("NOPE")
	assert.False(t, ok)
}

func TestSMARequiresEnoughHistory(t *testing.T) {
	m := New()
	for i := 0; i < smaPeriod-1; i++ {
		m.RecordTrade(trade("AB", 10000, 1, 1))
	}
	_, ok := m.SMA("AB")
	assert.False(t, ok)

	m.RecordTrade(trade("AB", 10000, 1, 1))
	_, ok = m.SMA("AB")
	assert.True(t, ok)
}

func TestRecordCommandIncrementsVec(t *testing.T) {
	m := New()
	m.RecordCommand("New")
	m.RecordAccept()
	dump := m.Dump()
	assert.Contains(t, dump, "matchcore_commands_total")
	assert.Contains(t, dump, "matchcore_orders_accepted_total")
}
