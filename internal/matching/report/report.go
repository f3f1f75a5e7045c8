// Package report implements the ReportWriter (SPEC_FULL.md §4.7/C7):
// subscribes to the EventBus and renders each Event to the textual wire
// format of §6, in arrival order, optionally through a gzip-compressing
// sink and a rate-limited flush cadence.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lattice-trading/matchcore/internal/matching/bus"
	"github.com/lattice-trading/matchcore/internal/matching/event"
)

// Writer renders Event values onto an io.Writer, one line per event, in
// the exact format §6 specifies. Output goes through a bufio.Writer;
// NewGzip adds a gzip-compressing sink, and RunChannel bounds how often the
// buffer is flushed.
type Writer struct {
	out    *bufio.Writer
	logger *zap.Logger
}

// New wraps dst in a buffered writer.
func New(dst io.Writer, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{out: bufio.NewWriter(dst), logger: logger}
}

// NewGzip wraps dst in a gzip-compressing sink before buffering; the
// caller is responsible for calling Flush on the Writer and then Close on
// the returned gzip.Writer once no more events will arrive.
func NewGzip(dst io.Writer, logger *zap.Logger) (*Writer, *gzip.Writer) {
	gz := gzip.NewWriter(dst)
	return New(gz, logger), gz
}

// Render renders a single Event to its §6 line, without a trailing
// newline.
func Render(evt event.Event) (string, bool) {
	switch evt.Kind {
	case event.KindAccept:
		return fmt.Sprintf("%d - Accept", evt.OrderID), true
	case event.KindReject:
		return fmt.Sprintf("%d - Reject - %d - %s", evt.OrderID, evt.Code, evt.Message), true
	case event.KindAmendAccept:
		return fmt.Sprintf("%d - AmmendAccept", evt.OrderID), true
	case event.KindAmendReject:
		return fmt.Sprintf("%d - AmmendReject - %d - %s", evt.OrderID, evt.Code, evt.Message), true
	case event.KindCancelAccept:
		return fmt.Sprintf("%d - CancelAccept", evt.OrderID), true
	case event.KindCancelReject:
		return fmt.Sprintf("%d - CancelReject - %d - %s", evt.OrderID, evt.Code, evt.Message), true
	case event.KindTrade:
		t := evt.Trade
		return fmt.Sprintf("%s|%d,%s,%d,%s|%s,%d,%s,%d",
			t.Symbol, t.BuyID, t.BuyType, t.BuyQtyBefore, t.BuyPrice,
			t.SellPrice, t.SellQtyBefore, t.SellType, t.SellID), true
	case event.KindSnapshotRow:
		r := evt.SnapshotRow
		return fmt.Sprintf("%s|%s|%s", r.Symbol, renderBookSide(r.Buy), renderSellSide(r.Sell)), true
	default:
		return "", false
	}
}

func renderBookSide(s *event.BookSide) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%d,%s,%d,%s", s.ID, s.Type, s.Qty, s.Price)
}

// renderSellSide renders the sell half of a snapshot row mirrored, as
// price, qty, type, id, matching the sell half of a Trade line.
func renderSellSide(s *event.BookSide) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%s,%d,%s,%d", s.Price, s.Qty, s.Type, s.ID)
}

// Write renders and writes one event followed by a newline.
func (w *Writer) Write(evt event.Event) error {
	line, ok := Render(evt)
	if !ok {
		w.logger.Warn("report: dropping event with unknown kind", zap.Uint8("kind", uint8(evt.Kind)))
		return nil
	}
	if _, err := fmt.Fprintln(w.out, line); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

// Flush flushes buffered bytes to the underlying sink.
func (w *Writer) Flush() error {
	return w.out.Flush()
}

// Run subscribes to bus and writes every event until ctx is cancelled or
// the bus closes its channel, flushing at most once per tick of limiter
// (bounded flush rate, §4.7) and always on exit.
//
// Run subscribes before returning control to the caller's goroutine, but
// callers racing Run against a concurrent publisher (e.g. a Driver
// dispatching commands in its own goroutine) should instead call
// eb.Subscribe themselves before starting either goroutine and drive
// RunChannel directly, the way cmd/matchcore/main.go does —
// gochannel is non-persistent, so anything published before a subscriber
// is registered is dropped, not queued.
func (w *Writer) Run(ctx context.Context, eb *bus.EventBus, limiter *rate.Limiter) error {
	events, err := eb.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("report: subscribe: %w", err)
	}
	return w.RunChannel(ctx, events, limiter)
}

// RunChannel writes every event arriving on events until the channel
// closes, flushing at most once per tick of limiter and always on exit.
// Split out of Run so a caller can subscribe synchronously and hand off
// the resulting channel before starting any goroutine that might publish.
func (w *Writer) RunChannel(ctx context.Context, events <-chan event.Event, limiter *rate.Limiter) error {
	defer w.Flush()

	for evt := range events {
		if err := w.Write(evt); err != nil {
			return err
		}
		if limiter == nil || limiter.Allow() {
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}
