package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// Publisher sends reservation events to a broker.  Callers treat publish
// errors as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev ReservationEvent) error
	Close() error
}

// NopPublisher drops every event.  It is used when EVENTS_BROKER=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ReservationEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// RabbitPublisher publishes events to a durable queue on the default
// exchange.  A connection is dialled per publish; mutations are rare
// enough that a long-lived channel and its reconnect logic are not worth
// carrying.
type RabbitPublisher struct {
	url   string
	queue string
}

// NewRabbitPublisher returns a publisher for the given AMQP URL and queue.
func NewRabbitPublisher(url, queue string) *RabbitPublisher {
	return &RabbitPublisher{url: url, queue: queue}
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error { return nil }

// KafkaPublisher writes events to a Kafka topic keyed by reservation id,
// so all events of one reservation land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a writer for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(fmt.Sprintf("%d", ev.ReservationID)),
		Value:   body,
		Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
		Time:    ev.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// NewPublisher picks the publisher for broker: rabbitmq, kafka or none.
func NewPublisher(broker, rabbitURL string, kafkaBrokers []string, topic string) (Publisher, error) {
	switch broker {
	case "", "none":
		return NopPublisher{}, nil
	case "rabbitmq", "amqp":
		return NewRabbitPublisher(rabbitURL, topic), nil
	case "kafka":
		if len(kafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka publisher needs at least one broker")
		}
		return NewKafkaPublisher(kafkaBrokers, topic), nil
	default:
		return nil, fmt.Errorf("unsupported events broker %q", broker)
	}
}
