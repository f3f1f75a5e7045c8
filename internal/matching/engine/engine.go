// Package engine implements the Engine (SPEC_FULL.md §4.5/C5): the
// single-threaded command dispatcher sitting between the parser and the
// SymbolDirectory/SymbolBook layers. Grounded on the teacher's
// pkg/matching/engine_core.go MatchingEngine (per-call validation,
// zap.Logger field logging, an explicit dispatch-by-kind switch)
// generalized from its single AddOrder/CancelOrder pair to the full
// New/Amend/Cancel/Match/Query vocabulary this spec requires.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lattice-trading/matchcore/internal/matching/book"
	"github.com/lattice-trading/matchcore/internal/matching/bus"
	"github.com/lattice-trading/matchcore/internal/matching/command"
	"github.com/lattice-trading/matchcore/internal/matching/directory"
	"github.com/lattice-trading/matchcore/internal/matching/event"
	"github.com/lattice-trading/matchcore/internal/matching/metrics"
	"github.com/lattice-trading/matchcore/internal/matching/types"
)

// ErrCapacity is a fatal error: the driver must stop processing further
// commands once it sees this (§7 "Fatal").
type ErrCapacity struct{ Cause error }

func (e *ErrCapacity) Error() string { return fmt.Sprintf("engine: fatal capacity error: %v", e.Cause) }
func (e *ErrCapacity) Unwrap() error { return e.Cause }

// Engine dispatches Command values, enforces the monotonic-timestamp
// invariant (I1), and publishes every resulting Event onto the bus. Not
// safe for concurrent Dispatch calls: the entire design (I7) assumes a
// single caller driving it synchronously.
type Engine struct {
	directory *directory.SymbolDirectory
	bus       *bus.EventBus
	metrics   *metrics.Metrics
	logger    *zap.Logger

	lastTimestamp types.Timestamp
}

// New constructs an Engine over dir, publishing to eventBus and
// recording to m. logger may be nil, in which case logging is skipped.
func New(dir *directory.SymbolDirectory, eventBus *bus.EventBus, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{directory: dir, bus: eventBus, metrics: m, logger: logger}
}

// LastTimestamp returns the timestamp of the most recently accepted
// command, for P1 verification and diagnostics.
func (e *Engine) LastTimestamp() types.Timestamp { return e.lastTimestamp }

// Dispatch processes one Command to completion, publishing every Event
// it produces before returning. A non-nil error other than *ErrCapacity
// indicates the command was rejected (an Event was still published); a
// *ErrCapacity error is fatal and the driver should stop.
func (e *Engine) Dispatch(c command.Command) error {
	e.metrics.RecordCommand(c.Action.String())

	mutating := c.Action != command.ActionMatch && c.Action != command.ActionQuery
	if mutating && c.Timestamp < e.lastTimestamp {
		return e.reject(c)
	}

	var err error
	switch c.Action {
	case command.ActionNew:
		err = e.dispatchNew(c)
	case command.ActionAmend:
		err = e.dispatchAmend(c)
	case command.ActionCancel:
		err = e.dispatchCancel(c)
	case command.ActionMatch:
		err = e.dispatchMatch(c)
	case command.ActionQuery:
		err = e.dispatchQuery(c)
	default:
		return e.reject(c)
	}

	if err == nil && mutating && c.Timestamp > e.lastTimestamp {
		e.lastTimestamp = c.Timestamp
	}
	return err
}

func (e *Engine) reject(c command.Command) error {
	msg := "timestamp must not regress"
	e.metrics.RecordReject()
	e.publish(event.Reject(c.OrderID, event.CodeInvalidOrderDetails, msg))
	return fmt.Errorf("engine: %s: %w", msg, errInvalidOrderDetails)
}

var errInvalidOrderDetails = fmt.Errorf("invalid order details")

func (e *Engine) publish(evt event.Event) {
	if err := e.bus.Publish(evt); err != nil {
		e.logger.Error("engine: publish event failed", zap.Error(err))
	}
}

func (e *Engine) dispatchNew(c command.Command) error {
	b := e.directory.GetOrCreate(c.Symbol)
	trades, err := b.Add(c.Side, c.OrderType, c.OrderID, c.Timestamp, c.Price, c.Quantity)
	if err != nil {
		var capErr *book.ErrCapacityExceeded
		if errors.As(err, &capErr) {
			return &ErrCapacity{Cause: err}
		}
		e.metrics.RecordReject()
		e.publish(event.Reject(c.OrderID, event.CodeInvalidOrderDetails, err.Error()))
		return err
	}

	e.directory.Record(c.OrderID, c.Symbol)
	e.metrics.RecordAccept()
	e.publish(event.Accept(c.OrderID))

	for _, tr := range trades {
		e.metrics.RecordTrade(tr)
		e.publish(event.TradeEvent(tr))
	}
	return nil
}

func (e *Engine) dispatchAmend(c command.Command) error {
	symbol, ok := e.directory.SymbolOf(c.OrderID)
	if !ok {
		symbol = c.Symbol
	}
	b, ok := e.directory.Lookup(symbol)
	if !ok {
		e.metrics.RecordAmendReject()
		e.publish(event.AmendReject(c.OrderID, event.CodeOrderDoesNotExist, "order does not exist"))
		return fmt.Errorf("engine: amend %d: %w", c.OrderID, errOrderDoesNotExist)
	}

	side := sideOf(b, c.OrderID)
	if err := b.Amend(side, c.OrderID, c.Price, c.Quantity); err != nil {
		e.metrics.RecordAmendReject()
		e.publish(event.AmendReject(c.OrderID, event.CodeOrderDoesNotExist, err.Error()))
		return err
	}

	e.metrics.RecordAmendAccept()
	e.publish(event.AmendAccept(c.OrderID))
	return nil
}

func (e *Engine) dispatchCancel(c command.Command) error {
	symbol, ok := e.directory.SymbolOf(c.OrderID)
	if !ok {
		e.metrics.RecordCancelReject()
		e.publish(event.CancelReject(c.OrderID, event.CodeOrderDoesNotExist, "order does not exist"))
		return fmt.Errorf("engine: cancel %d: %w", c.OrderID, errOrderDoesNotExist)
	}
	b, ok := e.directory.Lookup(symbol)
	if !ok {
		e.metrics.RecordCancelReject()
		e.publish(event.CancelReject(c.OrderID, event.CodeOrderDoesNotExist, "order does not exist"))
		return fmt.Errorf("engine: cancel %d: %w", c.OrderID, errOrderDoesNotExist)
	}

	side := sideOf(b, c.OrderID)
	if err := b.Cancel(side, c.OrderID, c.Timestamp); err != nil {
		e.metrics.RecordCancelReject()
		e.publish(event.CancelReject(c.OrderID, event.CodeOrderDoesNotExist, err.Error()))
		return err
	}

	e.metrics.RecordCancelAccept()
	e.publish(event.CancelAccept(c.OrderID))
	return nil
}

func (e *Engine) dispatchMatch(c command.Command) error {
	if c.Format == command.FormatSymbol {
		b, ok := e.directory.Lookup(c.Symbol)
		if !ok {
			return nil // unknown symbol: no-op, per §4.5
		}
		e.publishTrades(b.Match(c.Timestamp))
		return nil
	}

	e.directory.IterSorted(func(_ string, b *book.SymbolBook) {
		e.publishTrades(b.Match(c.Timestamp))
	})
	return nil
}

func (e *Engine) publishTrades(trades []*event.Trade) {
	for _, tr := range trades {
		e.metrics.RecordTrade(tr)
		e.publish(event.TradeEvent(tr))
	}
}

func (e *Engine) dispatchQuery(c command.Command) error {
	if c.Format == command.FormatSymbol {
		b, ok := e.directory.Lookup(c.Symbol)
		if !ok {
			return nil // unknown symbol: emits nothing, per §4.5
		}
		e.publishSnapshot(b.Snapshot(c.Timestamp))
		return nil
	}

	e.directory.IterSorted(func(_ string, b *book.SymbolBook) {
		e.publishSnapshot(b.Snapshot(c.Timestamp))
	})
	return nil
}

func (e *Engine) publishSnapshot(rows []*event.SnapshotRow) {
	for _, row := range rows {
		e.publish(event.SnapshotRowEvent(row))
	}
}

var errOrderDoesNotExist = fmt.Errorf("order does not exist")

// sideOf determines which side of b an order id rests on (or last rested
// on) by checking both SideBooks. Cancel commands don't carry the side on
// the wire (§6); for Amend the side field of the command is not used
// either, the book's own record decides.
func sideOf(b *book.SymbolBook, id types.OrderID) types.Side {
	if _, ok := b.Buys.Get(id); ok {
		return types.SideBuy
	}
	return types.SideSell
}
