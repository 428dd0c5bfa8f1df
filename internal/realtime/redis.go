package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "changes:"

// RedisBroker carries events between instances. Publish sends to
// changes:<entity>; Run relays every instance's events into the local hub.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub

	ready     chan struct{}
	readyOnce sync.Once
}

func NewRedisBroker(client *redis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{client: client, hub: hub, ready: make(chan struct{})}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channelPrefix+string(ev.Entity), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.RoutingKey(), err)
	}
	return nil
}

// Ready is closed once the pattern subscription is active.
func (b *RedisBroker) Ready() <-chan struct{} {
	return b.ready
}

// Run blocks until ctx is cancelled or the subscription ends.
func (b *RedisBroker) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	b.readyOnce.Do(func() { close(b.ready) })

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("dropping malformed change event", "channel", msg.Channel, "error", err)
				continue
			}
			if string(ev.Entity) != strings.TrimPrefix(msg.Channel, channelPrefix) {
				continue
			}
			_ = b.hub.Publish(ctx, ev)
		}
	}
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
