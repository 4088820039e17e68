package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/logging"
)

// Publisher sends BookingConfirmedEvent messages to the booking.confirmed
// queue.  Each call opens its own connection; commits are rare enough that
// pooling is not worth a reconnect state machine.  Errors are logged and
// returned so callers can ignore them without interrupting the request.
type Publisher struct {
	url string
	log logrus.FieldLogger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: logging.Component(log, "booking-publisher")}
}

// PublishBookingConfirmed marshals ev and publishes it as a persistent
// message through the default exchange.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Error("marshal event failed")
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Warn("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(BookingQueueName, true, false, false, false, nil); err != nil {
		p.log.WithError(err).Warn("queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", BookingQueueName, false, false, pub); err != nil {
		p.log.WithError(err).Warn("publish failed")
		return err
	}
	return nil
}
