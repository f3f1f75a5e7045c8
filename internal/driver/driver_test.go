package driver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/lattice-trading/matchcore/internal/matching/bus"
	"github.com/lattice-trading/matchcore/internal/matching/directory"
	"github.com/lattice-trading/matchcore/internal/matching/engine"
	"github.com/lattice-trading/matchcore/internal/matching/metrics"
	"github.com/lattice-trading/matchcore/internal/matching/report"
)

func TestRunProcessesValidLines(t *testing.T) {
	eb := bus.New(nil)
	eng := engine.New(directory.New(0), eb, metrics.New(), nil)

	d := New(eng, nil)
	input := strings.NewReader("N,1,1,AB,L,B,104.53,100\nN,2,2,AB,L,S,105.53,100\nM,3\n")

	require.NoError(t, d.Run(context.Background(), input))

	processed, rejected := d.Stats()
	assert.EqualValues(t, 3, processed)
	assert.EqualValues(t, 0, rejected)
}

func TestRunSkipsMalformedLines(t *testing.T) {
	eb := bus.New(nil)
	eng := engine.New(directory.New(0), eb, metrics.New(), nil)

	d := New(eng, nil)
	input := strings.NewReader("GARBAGE\nN,1,1,AB,L,B,10.00,1\n")

	require.NoError(t, d.Run(context.Background(), input))
	processed, rejected := d.Stats()
	assert.EqualValues(t, 1, processed)
	assert.EqualValues(t, 1, rejected)
}

func TestRunStopsOnCapacityError(t *testing.T) {
	eb := bus.New(nil)
	eng := engine.New(directory.New(1), eb, metrics.New(), nil)

	d := New(eng, nil)
	input := strings.NewReader("N,1,1,AB,L,B,10.00,1\nN,2,2,AB,L,B,10.00,1\n")

	err := d.Run(context.Background(), input)
	assert.Error(t, err)
}

// TestRunEventsReachReportWriter exercises the §4.6 decoupling directly:
// the ReportWriter subscribes to the same EventBus the Engine publishes
// to and runs independently of the Driver's read loop. Subscribing
// happens synchronously, before the Driver starts, exactly as it must in
// production (cmd/matchcore/main.go) and in newTestEngine: gochannel is
// non-persistent, so a publish racing an unregistered subscriber is
// dropped rather than queued, and that drop is permanent, not just
// delayed, so this test asserts on the final buffer content rather than
// polling for it.
func TestRunEventsReachReportWriter(t *testing.T) {
	eb := bus.New(nil)
	eng := engine.New(directory.New(0), eb, metrics.New(), nil)

	var out bytes.Buffer
	w := report.New(&out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := eb.Subscribe(ctx)
	require.NoError(t, err)

	limiter := rate.NewLimiter(rate.Inf, 1)
	done := make(chan error, 1)
	go func() { done <- w.RunChannel(ctx, events, limiter) }()

	d := New(eng, nil)
	input := strings.NewReader("N,1,1,AB,L,B,104.53,100\n")
	require.NoError(t, d.Run(context.Background(), input))

	require.NoError(t, eb.Close())
	cancel()
	<-done

	assert.Contains(t, out.String(), "1 - Accept")
}
