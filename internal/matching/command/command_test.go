package command

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lattice-trading/matchcore/internal/matching/types"
)

func TestValidateNewRequiresFields(t *testing.T) {
	c := Command{Action: ActionNew, OrderID: 1, Symbol: "AB", Quantity: 10, Price: 100}
	assert.NoError(t, c.Validate())

	bad := Command{Action: ActionNew, OrderID: 0, Symbol: "AB", Quantity: 10}
	assert.Error(t, bad.Validate())

	bad2 := Command{Action: ActionNew, OrderID: 1, Symbol: "", Quantity: 10}
	assert.Error(t, bad2.Validate())

	bad3 := Command{Action: ActionNew, OrderID: 1, Symbol: "AB", Quantity: 0}
	assert.Error(t, bad3.Validate())
}

func TestValidateNegativePriceRejected(t *testing.T) {
	c := Command{Action: ActionNew, OrderID: 1, Symbol: "AB", Quantity: 1, Price: -1}
	assert.Error(t, c.Validate())
}

func TestValidateCancelOnlyNeedsOrderID(t *testing.T) {
	c := Command{Action: ActionCancel, OrderID: 5}
	assert.NoError(t, c.Validate())

	bad := Command{Action: ActionCancel}
	assert.Error(t, bad.Validate())
}

func TestValidateMatchSymbolFormRequiresSymbol(t *testing.T) {
	global := Command{Action: ActionMatch, Format: FormatGlobal}
	assert.NoError(t, global.Validate())

	bySymbol := Command{Action: ActionMatch, Format: FormatSymbol}
	assert.Error(t, bySymbol.Validate())

	ok := Command{Action: ActionMatch, Format: FormatSymbol, Symbol: "AB"}
	assert.NoError(t, ok.Validate())
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "New", ActionNew.String())
	assert.Equal(t, "Query", ActionQuery.String())
}

func TestSideAndOrderTypeRoundTrip(t *testing.T) {
	s, err := types.ParseSide("B")
	assert.NoError(t, err)
	assert.Equal(t, types.SideBuy, s)
	assert.Equal(t, "B", s.String())

	ot, err := types.ParseOrderType("I")
	assert.NoError(t, err)
	assert.Equal(t, types.TypeIOC, ot)
	assert.Equal(t, "I", ot.String())
}
