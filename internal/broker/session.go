package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Session is the scoped handle a single worker owns for the lifetime of one
// connection: the connection itself, a channel with prefetch=1, and the
// shared exchange name. There is no process-wide singleton; the main loop
// creates and destroys a Session on every reconnect cycle.
type Session struct {
	url      string
	exchange string

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return

	lg zerolog.Logger
}

const publishWait = 2 * time.Second

// Connect dials the broker, opens a channel, declares the shared durable
// direct exchange, enables publisher confirms, and sets prefetch to 1 (one
// in-flight message per worker, per the broker client contract).
func Connect(ctx context.Context, url, exchange string, lg zerolog.Logger) (*Session, error) {
	if url == "" {
		return nil, errors.New("broker: empty url")
	}
	if exchange == "" {
		return nil, errors.New("broker: empty exchange")
	}

	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("broker: channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("broker: qos: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("broker: confirm: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("broker: exchange declare: %w", err)
	}

	s := &Session{
		url:      url,
		exchange: exchange,
		conn:     conn,
		ch:       ch,
		lg:       lg,
	}
	s.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	s.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	return s, nil
}

// DeclareAndBind declares queueName durable and binds it to the shared
// exchange using its own name as routing key: routing keys always equal
// queue names in this system.
func (s *Session) DeclareAndBind(queueName string) error {
	if queueName == "" {
		return nil
	}
	if _, err := s.ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("broker: queue declare %s: %w", queueName, err)
	}
	if err := s.ch.QueueBind(queueName, queueName, s.exchange, false, nil); err != nil {
		return fmt.Errorf("broker: queue bind %s: %w", queueName, err)
	}
	return nil
}

// Consume starts delivering messages for queueName.
func (s *Session) Consume(queueName, tag string) (<-chan amqp.Delivery, error) {
	return s.ch.Consume(queueName, tag, false, false, false, false, nil)
}

// Publish sends a persistent, mandatory JSON message to routingKey on the
// shared exchange and blocks until the broker confirms delivery (acked),
// reports it unroutable (NotifyReturn), or a short window elapses without
// either.
func (s *Session) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	pub := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.ch.PublishWithContext(pubCtx, s.exchange, routingKey, true, false, pub); err != nil {
		return fmt.Errorf("broker: publish %s: %w", routingKey, err)
	}

	timer := time.NewTimer(publishWait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ret := <-s.returnCh:
			return fmt.Errorf("broker: publish returned (no route): %d %s", ret.ReplyCode, ret.ReplyText)
		case conf := <-s.confirmCh:
			if !conf.Ack {
				return fmt.Errorf("broker: publish not acked by server")
			}
			return nil
		case <-timer.C:
			return fmt.Errorf("broker: publish confirm timed out")
		}
	}
}

// PublishJSON marshals v and publishes it.
func (s *Session) PublishJSON(ctx context.Context, routingKey string, v any, headers amqp.Table) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("broker: marshal: %w", err)
	}
	return s.Publish(ctx, routingKey, body, headers)
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	if s.ch != nil {
		if e := s.ch.Close(); e != nil {
			err = e
		}
		s.ch = nil
	}
	if s.conn != nil {
		if e := s.conn.Close(); e != nil {
			err = e
		}
		s.conn = nil
	}
	return err
}

// Closed reports whether the underlying connection is gone.
func (s *Session) Closed() bool {
	return s.conn == nil || s.conn.IsClosed()
}
