package notifications

import (
	"context"
	"log/slog"

	"promptdoumi/internal/middleware"
)

// Bus combines the local broker with the Redis notifier. With Redis, events
// reach local subscribers through the Redis round trip, so every instance
// sees each event exactly once; without it, they go straight to the broker.
type Bus struct {
	broker   *Broker
	notifier *Notifier
	wired    bool
}

// NewBus returns a bus over broker and notifier (which may be nil).
func NewBus(broker *Broker, notifier *Notifier) *Bus {
	return &Bus{broker: broker, notifier: notifier}
}

// Start wires the Redis subscription into the broker. Without Redis it is
// a no-op. If subscribing fails the bus stays local-only.
func (b *Bus) Start(ctx context.Context) error {
	if !b.notifier.Enabled() {
		return nil
	}
	if err := b.notifier.StartAuthSubscriber(ctx, b.broker.Publish); err != nil {
		return err
	}
	b.wired = true
	return nil
}

// Publish delivers ev to all subscribers.
func (b *Bus) Publish(ctx context.Context, ev AuthEvent) {
	if b.wired {
		err := b.notifier.PublishAuthEvent(ctx, ev)
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "auth event publish failed, delivering locally",
			slog.String("event", string(ev.Type)),
			slog.String("error", err.Error()),
		)
	}
	b.broker.Publish(ev)
}

// Subscribe registers a local subscriber; see Broker.Subscribe.
func (b *Bus) Subscribe(ctx context.Context) (<-chan AuthEvent, func()) {
	return b.broker.Subscribe(ctx)
}
