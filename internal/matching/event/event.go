// Package event defines the structured outcomes the matching engine
// produces (SPEC_FULL.md §3 "Event", §6). Values here are published onto
// the EventBus and rendered by the ReportWriter; nothing in this package
// knows how to render itself to text — that responsibility stays in
// internal/matching/report, mirroring the spec's separation between the
// engine's output contract and the report writer.
package event

import "github.com/lattice-trading/matchcore/internal/matching/types"

// Kind discriminates the Event sum type.
type Kind uint8

const (
	KindAccept Kind = iota
	KindReject
	KindAmendAccept
	KindAmendReject
	KindCancelAccept
	KindCancelReject
	KindTrade
	KindSnapshotRow
)

// Error codes from SPEC_FULL.md §6.
const (
	CodeInvalidAmendmentDetails = 101
	CodeInvalidOrderDetails     = 303
	CodeOrderDoesNotExist       = 404
)

// Event is the sum type published on the EventBus. Exactly one of the
// typed fields is meaningful, selected by Kind.
type Event struct {
	Kind Kind

	// Accept / Reject / AmendAccept / AmendReject / CancelAccept / CancelReject
	OrderID types.OrderID
	Code    int
	Message string

	Trade        *Trade
	SnapshotRow  *SnapshotRow
}

// Trade is the settlement of one match-loop iteration (§4.3).
type Trade struct {
	Symbol string

	BuyID       types.OrderID
	BuyType     types.OrderType
	BuyQtyBefore types.Quantity
	BuyPrice    types.Price

	SellPrice    types.Price
	SellQtyBefore types.Quantity
	SellType     types.OrderType
	SellID       types.OrderID

	// TradeID is an internal, time-sortable correlation id (not part of
	// the rendered wire line, which SPEC_FULL.md §6 fixes exactly) used
	// for metrics and log correlation.
	TradeID string
}

// BookSide is the optional buy or sell half of a SnapshotRow.
type BookSide struct {
	ID    types.OrderID
	Type  types.OrderType
	Qty   types.Quantity
	Price types.Price
}

// SnapshotRow is one rank of a top-5 book snapshot (§4.3).
type SnapshotRow struct {
	Symbol string
	Buy    *BookSide
	Sell   *BookSide
}

// Accept builds an Accept event.
func Accept(id types.OrderID) Event { return Event{Kind: KindAccept, OrderID: id} }

// Reject builds a Reject event.
func Reject(id types.OrderID, code int, msg string) Event {
	return Event{Kind: KindReject, OrderID: id, Code: code, Message: msg}
}

// AmendAccept builds an AmendAccept event.
func AmendAccept(id types.OrderID) Event { return Event{Kind: KindAmendAccept, OrderID: id} }

// AmendReject builds an AmendReject event.
func AmendReject(id types.OrderID, code int, msg string) Event {
	return Event{Kind: KindAmendReject, OrderID: id, Code: code, Message: msg}
}

// CancelAccept builds a CancelAccept event.
func CancelAccept(id types.OrderID) Event { return Event{Kind: KindCancelAccept, OrderID: id} }

// CancelReject builds a CancelReject event.
func CancelReject(id types.OrderID, code int, msg string) Event {
	return Event{Kind: KindCancelReject, OrderID: id, Code: code, Message: msg}
}

// TradeEvent wraps a Trade as an Event.
func TradeEvent(t *Trade) Event { return Event{Kind: KindTrade, Trade: t} }

// SnapshotRowEvent wraps a SnapshotRow as an Event.
func SnapshotRowEvent(r *SnapshotRow) Event { return Event{Kind: KindSnapshotRow, SnapshotRow: r} }
