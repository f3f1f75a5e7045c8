// Package bus wraps a single in-process watermill pub/sub topic as the
// EventBus (SPEC_FULL.md §4.6): the Engine's only output path, decoupled
// from whatever renders it. Built on watermill's pubsub/gochannel
// transport exclusively — never the nats transport the teacher also
// wires up elsewhere, since this spec has no network-transport
// component (see DESIGN.md).
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/lattice-trading/matchcore/internal/matching/event"
)

// Topic is the single topic every Event is published to (§4.6).
const Topic = "events"

// EventBus publishes event.Event values published by one dispatch before
// the next dispatch may publish anything, making I7's single-threaded
// guarantee observable to subscribers (§4.6).
type EventBus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
}

// New constructs an EventBus backed by an in-memory gochannel pub/sub.
// Publish blocks until every subscriber has acked the message, so
// publish ordering is preserved end to end.
func New(logger *zap.Logger) *EventBus {
	gc := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            256,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewStdLogger(false, false),
	)
	return &EventBus{pubsub: gc, logger: logger}
}

// Publish marshals and publishes one event.Event. Events are published
// synchronously, in call order, onto the single topic.
func (b *EventBus) Publish(evt event.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("bus: marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("bus: publish event: %w", err)
	}
	return nil
}

// PublishAll publishes each event in order, stopping at the first error.
func (b *EventBus) PublishAll(events []event.Event) error {
	for _, e := range events {
		if err := b.Publish(e); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe returns a channel of decoded event.Event values for ctx's
// lifetime; used by the ReportWriter (§4.7) and by tests that want to
// observe dispatch output directly.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan event.Event, error) {
	raw, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("bus: subscribe: %w", err)
	}

	out := make(chan event.Event, 256)
	go func() {
		defer close(out)
		for msg := range raw {
			var evt event.Event
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				if b.logger != nil {
					b.logger.Error("bus: decode event", zap.Error(err))
				}
				msg.Nack()
				continue
			}
			msg.Ack()
			out <- evt
		}
	}()
	return out, nil
}

// Close shuts down the underlying pub/sub.
func (b *EventBus) Close() error {
	return b.pubsub.Close()
}
