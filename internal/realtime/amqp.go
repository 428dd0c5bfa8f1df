package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpSession is one connection plus its publishing channel. closed fires
// when the broker drops the connection.
type amqpSession struct {
	ch     amqpChannel
	close  func() error
	closed <-chan *amqp.Error
}

func (s *amqpSession) alive() bool {
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

type amqpDialer func(url, exchange string) (*amqpSession, error)

func dialAMQP(url, exchange string) (*amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &amqpSession{
		ch:     ch,
		close:  conn.Close,
		closed: conn.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

// AMQPPublisher forwards events to a topic exchange with routing key
// <entity>.<action>. A dropped connection is redialed on the next publish.
type AMQPPublisher struct {
	url      string
	exchange string
	dial     amqpDialer

	mu      sync.Mutex
	session *amqpSession
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	return newAMQPPublisher(url, exchange, dialAMQP)
}

func newAMQPPublisher(url, exchange string, dial amqpDialer) (*AMQPPublisher, error) {
	session, err := dial(url, exchange)
	if err != nil {
		return nil, err
	}
	return &AMQPPublisher{url: url, exchange: exchange, dial: dial, session: session}, nil
}

func (p *AMQPPublisher) current() (*amqpSession, error) {
	if p.session != nil && p.session.alive() {
		return p.session, nil
	}
	if p.session != nil {
		slog.Warn("rabbitmq connection lost, redialing", "exchange", p.exchange)
		p.drop()
	}
	session, err := p.dial(p.url, p.exchange)
	if err != nil {
		return nil, err
	}
	p.session = session
	return session, nil
}

func (p *AMQPPublisher) drop() {
	if p.session == nil {
		return
	}
	_ = p.session.ch.Close()
	_ = p.session.close()
	p.session = nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	session, err := p.current()
	if err != nil {
		return err
	}
	err = session.ch.PublishWithContext(ctx, p.exchange, ev.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    ev.At,
		Body:         body,
	})
	if err != nil {
		// Start over with a fresh connection next time.
		p.drop()
		return fmt.Errorf("publish %s: %w", ev.RoutingKey(), err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	_ = p.session.ch.Close()
	err := p.session.close()
	p.session = nil
	return err
}
