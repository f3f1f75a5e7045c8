package types

// maxHistoryRecords bounds the append-only alteration log per order (§5
// Memory discipline). When an append would exceed the cap, the oldest
// record is dropped (see coalesceOldest), so as_of queries for timestamps
// before the oldest retained record report that the order is unknown.
const maxHistoryRecords = 64

// AlterationRecord is a single entry in an order's history: the order's
// full state as of some timestamp.
type AlterationRecord struct {
	Status            ExecutionStatus
	Timestamp         Timestamp
	Price             Price
	QuantityRemaining Quantity
}

// Order is an order with identity and an append-only history of state
// alterations (SPEC_FULL.md §3/§4.1). The zero value is not valid; use
// NewOrder.
type Order struct {
	ID     OrderID
	Type   OrderType
	Symbol string
	Side   Side

	// sequence breaks ties between orders with identical price and
	// timestamp by arrival order (I3).
	sequence uint64

	history []AlterationRecord
}

// NewOrder creates an order whose history starts with a single
// NotExecuted record at the given timestamp, price and quantity.
func NewOrder(id OrderID, symbol string, side Side, typ OrderType, seq uint64, t Timestamp, price Price, qty Quantity) *Order {
	return &Order{
		ID:       id,
		Type:     typ,
		Symbol:   symbol,
		Side:     side,
		sequence: seq,
		history: []AlterationRecord{{
			Status:            NotExecuted,
			Timestamp:         t,
			Price:             price,
			QuantityRemaining: qty,
		}},
	}
}

// Sequence returns the order's arrival sequence number, used only to break
// ties beyond price and timestamp (I3).
func (o *Order) Sequence() uint64 { return o.sequence }

// Current returns the most recent alteration record.
func (o *Order) Current() AlterationRecord {
	return o.history[len(o.history)-1]
}

// AsOf returns the history record in force at time t: the record with the
// largest timestamp <= t. Complexity is O(h) in the history length, per
// SPEC_FULL.md §4.1. Returns false if the order did not yet exist at t.
func (o *Order) AsOf(t Timestamp) (AlterationRecord, bool) {
	best := -1
	for i, rec := range o.history {
		if rec.Timestamp <= t {
			best = i
		} else {
			break
		}
	}
	if best < 0 {
		return AlterationRecord{}, false
	}
	return o.history[best], true
}

// IsActiveAt reports whether the order is active (NotExecuted or
// PartiallyExecuted) as of t.
func (o *Order) IsActiveAt(t Timestamp) bool {
	rec, ok := o.AsOf(t)
	return ok && rec.Status.IsActive()
}

// IsActive reports whether the order's current (latest) state is active.
func (o *Order) IsActive() bool {
	return o.Current().Status.IsActive()
}

// Amend appends a record that preserves the current status and timestamp
// but updates price/quantity. It does not advance the order's timestamp,
// preserving price-time priority (§4.1, resolved amend-timestamp question).
func (o *Order) Amend(newPrice Price, newQty Quantity) {
	cur := o.Current()
	o.append(AlterationRecord{
		Status:            cur.Status,
		Timestamp:         cur.Timestamp,
		Price:             newPrice,
		QuantityRemaining: newQty,
	})
}

// PartialFill appends a fill record at time t leaving newRemaining
// quantity outstanding; status becomes Executed iff newRemaining == 0.
func (o *Order) PartialFill(t Timestamp, newRemaining Quantity) {
	cur := o.Current()
	status := PartiallyExecuted
	if newRemaining == 0 {
		status = Executed
	}
	o.append(AlterationRecord{
		Status:            status,
		Timestamp:         t,
		Price:             cur.Price,
		QuantityRemaining: newRemaining,
	})
}

// Cancel appends a terminal Cancelled record at time t.
func (o *Order) Cancel(t Timestamp) {
	cur := o.Current()
	o.append(AlterationRecord{
		Status:            Cancelled,
		Timestamp:         t,
		Price:             cur.Price,
		QuantityRemaining: cur.QuantityRemaining,
	})
}

func (o *Order) append(rec AlterationRecord) {
	o.history = append(o.history, rec)
	if len(o.history) > maxHistoryRecords {
		o.coalesceOldest()
	}
}

// coalesceOldest drops the oldest record once the cap is exceeded. As_of
// queries for a timestamp older than the new oldest record fall back to
// "unknown" rather than the dropped state; in exchange the order's history
// never grows past maxHistoryRecords. No scenario in SPEC_FULL.md §8
// approaches the cap.
func (o *Order) coalesceOldest() {
	o.history = o.history[1:]
}

// HistoryLen reports the number of alteration records retained; exported
// for tests verifying the memory-discipline cap.
func (o *Order) HistoryLen() int { return len(o.history) }
