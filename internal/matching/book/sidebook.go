// Package book implements the per-symbol order book: one SideBook per
// side (buy/sell), paired into a SymbolBook that runs the match loop and
// renders snapshots. Grounded on the teacher's pkg/matching/engine_core.go
// OrderHeap (container/heap shape, Peek helper) and pkg/matching/types.go
// Order map, adapted to the spec's history-on-Order model: rather than an
// inactive region living inside the heap's backing array, every order ever
// inserted stays in a lookup map and the heap only ever holds active ones.
package book

import (
	"container/heap"
	"fmt"

	"github.com/lattice-trading/matchcore/internal/matching/types"
)

// DefaultCapacity is the default bound on orders per side (§4.2). The
// bound counts every order ever inserted on the side, active or terminal,
// since terminal orders stay in the lookup map for as-of queries.
// Exceeding it is a fatal configuration error, not a recoverable one.
const DefaultCapacity = 1 << 16

// ErrCapacityExceeded is returned by Insert when the side is already at
// capacity. The caller (SymbolBook, Engine) treats this as fatal.
type ErrCapacityExceeded struct {
	Symbol string
	Side   types.Side
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("sidebook %s/%s: capacity exceeded", e.Symbol, e.Side)
}

// heapEntry backs the container/heap; its Order pointer is shared with
// SideBook.byID so both views always observe the same mutations.
type heapEntry struct {
	order *types.Order
	index int // position in the heap slice, kept in sync by Swap
}

// orderHeap is the active-region priority queue. less is supplied by the
// owning SideBook so the same type serves both buy and sell sides.
type orderHeap struct {
	entries []*heapEntry
	less    func(a, b *types.Order) bool
}

func (h orderHeap) Len() int { return len(h.entries) }

func (h orderHeap) Less(i, j int) bool {
	return h.less(h.entries[i].order, h.entries[j].order)
}

func (h orderHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.entries[i].index = i
	h.entries[j].index = j
}

func (h *orderHeap) Push(x interface{}) {
	e := x.(*heapEntry)
	e.index = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *orderHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.entries = old[:n-1]
	e.index = -1
	return e
}

// SideBook is one side (buy or sell) of one symbol's book: an active
// priority queue plus a map of every order ever inserted (active or
// terminal), used for O(1) lookups, as-of queries and historical top-N
// snapshots (§4.2).
type SideBook struct {
	symbol   string
	side     types.Side
	capacity int

	active orderHeap
	byID   map[types.OrderID]*heapEntry

	nextSeq uint64
}

// NewSideBook constructs an empty SideBook for symbol/side with the given
// capacity (0 means DefaultCapacity).
func NewSideBook(symbol string, side types.Side, capacity int) *SideBook {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	sb := &SideBook{
		symbol:   symbol,
		side:     side,
		capacity: capacity,
		byID:     make(map[types.OrderID]*heapEntry),
	}
	sb.active.less = sb.less
	return sb
}

// less implements the price-time-arrival comparator of §4.2: for buys,
// higher price wins; for sells, lower price wins; ties broken by earlier
// timestamp, then by earlier arrival sequence.
func (sb *SideBook) less(a, b *types.Order) bool {
	ca, cb := a.Current(), b.Current()
	if ca.Price != cb.Price {
		if sb.side == types.SideBuy {
			return ca.Price > cb.Price
		}
		return ca.Price < cb.Price
	}
	if ca.Timestamp != cb.Timestamp {
		return ca.Timestamp < cb.Timestamp
	}
	return a.Sequence() < b.Sequence()
}

// Len returns the number of active (resting) orders.
func (sb *SideBook) Len() int { return sb.active.Len() }

// Insert pushes a freshly created order onto the book. The caller is
// responsible for assigning the order's arrival sequence via NextSeq
// before calling Insert.
func (sb *SideBook) Insert(o *types.Order) error {
	if len(sb.byID) >= sb.capacity {
		return &ErrCapacityExceeded{Symbol: sb.symbol, Side: sb.side}
	}
	e := &heapEntry{order: o}
	heap.Push(&sb.active, e)
	sb.byID[o.ID] = e
	return nil
}

// NextSeq returns the next arrival-order sequence number and advances the
// counter. Used by SymbolBook when admitting a new order.
func (sb *SideBook) NextSeq() uint64 {
	seq := sb.nextSeq
	sb.nextSeq++
	return seq
}

// Top returns the best active order, or nil if the side is empty.
func (sb *SideBook) Top() *types.Order {
	if sb.active.Len() == 0 {
		return nil
	}
	return sb.active.entries[0].order
}

// Get returns the order with the given id, whether active or terminal,
// and whether it was found at all (I6-adjacent: membership, not activity).
func (sb *SideBook) Get(id types.OrderID) (*types.Order, bool) {
	e, ok := sb.byID[id]
	if !ok {
		return nil, false
	}
	return e.order, true
}

// removeActive pops the given entry out of the heap, if it is still
// active (index >= 0); a no-op if it already left the heap.
func (sb *SideBook) removeActive(e *heapEntry) {
	if e.index < 0 {
		return
	}
	heap.Remove(&sb.active, e.index)
}

// fix restores heap order around an entry after its price/quantity
// changed in place, if it is still active.
func (sb *SideBook) fix(e *heapEntry) {
	if e.index < 0 {
		return
	}
	heap.Fix(&sb.active, e.index)
}

// Amend rewrites the order's price/quantity (preserving arrival priority,
// §4.1) and restores heap order. Returns false if id is unknown or the
// order is no longer active.
func (sb *SideBook) Amend(id types.OrderID, newPrice types.Price, newQty types.Quantity) bool {
	e, ok := sb.byID[id]
	if !ok || !e.order.IsActive() {
		return false
	}
	e.order.Amend(newPrice, newQty)
	sb.fix(e)
	return true
}

// CancelByID marks the order cancelled at time t and removes it from the
// active heap. Returns false if id is unknown or already terminal.
func (sb *SideBook) CancelByID(id types.OrderID, t types.Timestamp) bool {
	e, ok := sb.byID[id]
	if !ok || !e.order.IsActive() {
		return false
	}
	e.order.Cancel(t)
	sb.removeActive(e)
	return true
}

// ApplyFill reduces the order's remaining quantity by filledQty at time t.
// If the order becomes fully filled it leaves the active heap; otherwise
// heap order is restored around it (amendments can move an order either
// direction relative to its neighbours only in price, but a fill never
// changes price, so in practice this is always a no-op shift — it is kept
// for symmetry with Amend and because a future price-improving fill would
// need it).
func (sb *SideBook) ApplyFill(id types.OrderID, filledQty types.Quantity, t types.Timestamp) {
	e, ok := sb.byID[id]
	if !ok {
		return
	}
	remaining := e.order.Current().QuantityRemaining
	var newRemaining types.Quantity
	if filledQty >= remaining {
		newRemaining = 0
	} else {
		newRemaining = remaining - filledQty
	}
	e.order.PartialFill(t, newRemaining)
	if newRemaining == 0 {
		sb.removeActive(e)
	} else {
		sb.fix(e)
	}
}

// Remove evicts an order from the active heap without altering its
// history. SymbolBook.Add does not use it: IOC and Market orders are never
// inserted, and their unfilled remainder is cancelled on the order itself.
func (sb *SideBook) Remove(id types.OrderID) {
	if e, ok := sb.byID[id]; ok {
		sb.removeActive(e)
	}
}

// TopNAsOf returns up to n orders active at time t, in priority order,
// scanning every order ever inserted on this side (active or since
// terminated) so historical queries can still see them (§4.2).
func (sb *SideBook) TopNAsOf(t types.Timestamp, n int) []*types.Order {
	type candidate struct {
		order *types.Order
		rec   types.AlterationRecord
	}
	var cands []candidate
	for _, e := range sb.byID {
		rec, ok := e.order.AsOf(t)
		if !ok || !rec.Status.IsActive() {
			continue
		}
		cands = append(cands, candidate{order: e.order, rec: rec})
	}

	less := func(i, j candidate) bool {
		if i.rec.Price != j.rec.Price {
			if sb.side == types.SideBuy {
				return i.rec.Price > j.rec.Price
			}
			return i.rec.Price < j.rec.Price
		}
		if i.rec.Timestamp != j.rec.Timestamp {
			return i.rec.Timestamp < j.rec.Timestamp
		}
		return i.order.Sequence() < j.order.Sequence()
	}

	// bounded insertion sort of size n, O(m*n) as specified in §4.2.
	top := make([]candidate, 0, n)
	for _, c := range cands {
		pos := len(top)
		for pos > 0 && less(c, top[pos-1]) {
			pos--
		}
		if pos >= n {
			continue
		}
		top = append(top, candidate{})
		copy(top[pos+1:], top[pos:len(top)-1])
		top[pos] = c
		if len(top) > n {
			top = top[:n]
		}
	}

	out := make([]*types.Order, len(top))
	for i, c := range top {
		out[i] = c.order
	}
	return out
}
