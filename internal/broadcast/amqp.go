package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the fanout exchange carrying broadcast messages to other
// server instances and downstream consumers.
const ExchangeName = "seat.events"

// AMQPSink publishes every message to the seat.events fanout exchange.
type AMQPSink struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQPSink connects to the broker and declares the exchange.
func DialAMQPSink(url string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	return &AMQPSink{conn: conn, ch: ch}, nil
}

// Publish implements Publisher.  Messages are transient; the exchange is
// only a fan-out path, not a log.
func (s *AMQPSink) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        msg.Event,
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
}

// Close releases the channel and the connection.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ch.Close()
	return s.conn.Close()
}
