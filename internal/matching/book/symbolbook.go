package book

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/segmentio/ksuid"

	"github.com/lattice-trading/matchcore/internal/matching/event"
	"github.com/lattice-trading/matchcore/internal/matching/types"
)

// SymbolBook pairs a buy and a sell SideBook for one symbol and owns the
// match loop and the top-5 snapshot (§4.3).
type SymbolBook struct {
	Symbol string
	Buys   *SideBook
	Sells  *SideBook

	// snapshots memoizes snapshot(t) until the next mutating operation
	// invalidates the whole cache (§4.3); keyed by the decimal rendering
	// of t since Timestamp itself isn't a valid cache key type.
	snapshots *cache.Cache
}

// NewSymbolBook creates an empty book for symbol with the given
// per-side capacity (0 means book.DefaultCapacity).
func NewSymbolBook(symbol string, capacity int) *SymbolBook {
	return &SymbolBook{
		Symbol:    symbol,
		Buys:      NewSideBook(symbol, types.SideBuy, capacity),
		Sells:     NewSideBook(symbol, types.SideSell, capacity),
		snapshots: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func (sb *SymbolBook) sideBook(side types.Side) *SideBook {
	if side == types.SideBuy {
		return sb.Buys
	}
	return sb.Sells
}

// Add admits a freshly parsed order. Limit orders rest unconditionally;
// IOC and Market orders are resolved against the opposite side immediately
// and never rest with a remainder (§3, §4.3). Returns any trades produced
// by arrival-matching.
func (sb *SymbolBook) Add(side types.Side, typ types.OrderType, id types.OrderID, t types.Timestamp, price types.Price, qty types.Quantity) ([]*event.Trade, error) {
	defer sb.snapshots.Flush()

	own := sb.sideBook(side)
	seq := own.NextSeq()
	o := types.NewOrder(id, sb.Symbol, side, typ, seq, t, price, qty)

	if typ.RestsOnArrival() {
		if err := own.Insert(o); err != nil {
			return nil, err
		}
		return nil, nil
	}

	// IOC / Market: cross against the opposite side first, ignoring our
	// own price entirely for Market (it never limits what it will take).
	opposite := sb.sideBook(side.Opposite())
	var trades []*event.Trade
	remaining := qty
	for remaining > 0 {
		best := opposite.Top()
		if best == nil {
			break
		}
		if typ != types.TypeMarket && !crosses(side, price, best.Current().Price) {
			break
		}
		tradeQty := best.Current().QuantityRemaining
		if remaining < tradeQty {
			tradeQty = remaining
		}
		trades = append(trades, sb.settle(side, id, typ, remaining, price, best))
		remaining -= tradeQty
		opposite.ApplyFill(best.ID, tradeQty, t)
	}

	if remaining < qty {
		// at least one fill happened; record the fills directly on the
		// incoming order without ever inserting it into the book.
		o.PartialFill(t, remaining)
	}
	if remaining > 0 {
		o.Cancel(t)
	}
	return trades, nil
}

// crosses reports whether a limit price on side would cross a resting
// price on the opposite side.
func crosses(side types.Side, incoming, resting types.Price) bool {
	if side == types.SideBuy {
		return incoming >= resting
	}
	return incoming <= resting
}

// settle builds a Trade event for one match, always pricing at the buy
// side's price per §4.3/§9 (the literal, tested rule — not the
// maker-price-improvement convention some venues use).
func (sb *SymbolBook) settle(incomingSide types.Side, incomingID types.OrderID, incomingType types.OrderType, incomingQty types.Quantity, incomingPrice types.Price, resting *types.Order) *event.Trade {
	var tr event.Trade
	tr.Symbol = sb.Symbol
	tr.TradeID = ksuid.New().String()

	if incomingSide == types.SideBuy {
		tr.BuyID = incomingID
		tr.BuyType = incomingType
		tr.BuyQtyBefore = incomingQty
		tr.BuyPrice = incomingPrice
		tr.SellID = resting.ID
		tr.SellType = resting.Type
		tr.SellQtyBefore = resting.Current().QuantityRemaining
		tr.SellPrice = resting.Current().Price
	} else {
		tr.SellID = incomingID
		tr.SellType = incomingType
		tr.SellQtyBefore = incomingQty
		tr.SellPrice = incomingPrice
		tr.BuyID = resting.ID
		tr.BuyType = resting.Type
		tr.BuyQtyBefore = resting.Current().QuantityRemaining
		tr.BuyPrice = resting.Current().Price
	}
	return &tr
}

// Amend routes an amendment to the correct side. Returns an error if the
// id is not resting on that side.
func (sb *SymbolBook) Amend(side types.Side, id types.OrderID, price types.Price, qty types.Quantity) error {
	defer sb.snapshots.Flush()
	if !sb.sideBook(side).Amend(id, price, qty) {
		return fmt.Errorf("order %d does not exist on %s side of %s", id, side, sb.Symbol)
	}
	return nil
}

// Cancel routes a cancellation to the correct side.
func (sb *SymbolBook) Cancel(side types.Side, id types.OrderID, t types.Timestamp) error {
	defer sb.snapshots.Flush()
	if !sb.sideBook(side).CancelByID(id, t) {
		return fmt.Errorf("order %d does not exist on %s side of %s", id, side, sb.Symbol)
	}
	return nil
}

// Match runs the crossing loop described in §4.3 until no cross remains,
// emitting one Trade per iteration.
func (sb *SymbolBook) Match(t types.Timestamp) []*event.Trade {
	defer sb.snapshots.Flush()

	var trades []*event.Trade
	for {
		b := sb.Buys.Top()
		s := sb.Sells.Top()
		if b == nil || s == nil {
			break
		}
		bPrice := b.Current().Price
		sPrice := s.Current().Price
		if bPrice < sPrice {
			break
		}

		bQty := b.Current().QuantityRemaining
		sQty := s.Current().QuantityRemaining
		tradeQty := bQty
		if sQty < tradeQty {
			tradeQty = sQty
		}

		tr := &event.Trade{
			Symbol:        sb.Symbol,
			BuyID:         b.ID,
			BuyType:       b.Type,
			BuyQtyBefore:  bQty,
			BuyPrice:      bPrice,
			SellPrice:     sPrice,
			SellQtyBefore: sQty,
			SellType:      s.Type,
			SellID:        s.ID,
			TradeID:       ksuid.New().String(),
		}
		trades = append(trades, tr)

		sb.Buys.ApplyFill(b.ID, tradeQty, t)
		sb.Sells.ApplyFill(s.ID, tradeQty, t)
	}
	return trades
}

// Snapshot renders the top-5 rows as of t, memoized until the next
// mutation (§4.3, §4.7 Metrics/ReportWriter consumers).
func (sb *SymbolBook) Snapshot(t types.Timestamp) []*event.SnapshotRow {
	key := fmt.Sprintf("%d", t)
	if cached, ok := sb.snapshots.Get(key); ok {
		return cached.([]*event.SnapshotRow)
	}

	buys := sb.Buys.TopNAsOf(t, 5)
	sells := sb.Sells.TopNAsOf(t, 5)

	n := len(buys)
	if len(sells) > n {
		n = len(sells)
	}

	rows := make([]*event.SnapshotRow, n)
	for i := 0; i < n; i++ {
		row := &event.SnapshotRow{Symbol: sb.Symbol}
		if i < len(buys) {
			rec, _ := buys[i].AsOf(t)
			row.Buy = &event.BookSide{ID: buys[i].ID, Type: buys[i].Type, Qty: rec.QuantityRemaining, Price: rec.Price}
		}
		if i < len(sells) {
			rec, _ := sells[i].AsOf(t)
			row.Sell = &event.BookSide{ID: sells[i].ID, Type: sells[i].Type, Qty: rec.QuantityRemaining, Price: rec.Price}
		}
		rows[i] = row
	}

	sb.snapshots.Set(key, rows, time.Minute)
	return rows
}
