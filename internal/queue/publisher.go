package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher hands verification emails to RabbitMQ. It satisfies the
// service layer's VerificationSender.
type Publisher struct {
	URL string
	Log logrus.FieldLogger
}

func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{URL: url, Log: log}
}

// SendVerificationEmail publishes a VerificationEmailEvent to the
// verification queue. Messages are persistent.
func (p *Publisher) SendVerificationEmail(ctx context.Context, address, code string) error {
	body, err := encodeVerification(VerificationEmailEvent{
		Email:       address,
		Code:        code,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.publish(ctx, VerificationQueue, body)
}

func (p *Publisher) publish(ctx context.Context, queue string, body []byte) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: dial failed")
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch, queue); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.Log.WithError(err).Warn("rabbitmq: publish failed")
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// declare makes sure queue exists. Durable so messages survive broker
// restarts.
func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	return ch.QueueDeclare(queue, true, false, false, false, nil)
}

func encodeVerification(ev VerificationEmailEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}
