package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	keys []string
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, _ amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

type fakeBroker struct {
	dials    int
	channels []*fakeChannel
	drops    []chan *amqp.Error
	down     bool
}

func (b *fakeBroker) dial(string, string) (*amqpSession, error) {
	if b.down {
		return nil, errors.New("connection refused")
	}
	b.dials++
	ch := &fakeChannel{}
	closed := make(chan *amqp.Error, 1)
	b.channels = append(b.channels, ch)
	b.drops = append(b.drops, closed)
	return &amqpSession{ch: ch, close: func() error { return nil }, closed: closed}, nil
}

func TestAMQPPublisherRedialsAfterDrop(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newAMQPPublisher("amqp://local", "incident.changes", broker.dial)
	require.NoError(t, err)
	ctx := context.Background()

	ev := NewEvent(EntityReports, ActionCreated, uuid.New())
	require.NoError(t, p.Publish(ctx, ev))
	assert.Equal(t, 1, broker.dials)

	// Broker goes away and refuses reconnects for a while.
	close(broker.drops[0])
	broker.down = true
	assert.Error(t, p.Publish(ctx, ev))

	broker.down = false
	require.NoError(t, p.Publish(ctx, ev))
	assert.Equal(t, 2, broker.dials)
	assert.Equal(t, []string{"reports.created"}, broker.channels[1].keys)
	require.NoError(t, p.Close())
}

func TestAMQPPublisherRedialsAfterPublishError(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newAMQPPublisher("amqp://local", "incident.changes", broker.dial)
	require.NoError(t, err)
	ctx := context.Background()

	broker.channels[0].err = amqp.ErrClosed
	ev := NewEvent(EntityUserRoles, ActionRoleGranted, uuid.New())
	assert.ErrorIs(t, p.Publish(ctx, ev), amqp.ErrClosed)

	require.NoError(t, p.Publish(ctx, ev))
	assert.Equal(t, 2, broker.dials)
	assert.Equal(t, []string{"user_roles.role_granted"}, broker.channels[1].keys)
}
