package event

import (
	"context"
	"encoding/json"
	"fmt"

	"bidding/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer publishes this service's outbound bid events, keyed by bid
// id so one bid's events stay on one partition.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *Producer) Publish(ctx context.Context, event models.BidEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event.Producer.Publish: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BidId),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("event.Producer.Publish: %w: %w", models.ErrUnavailable, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// DeadLetter receives permanently malformed inbound records so a poison
// message cannot wedge its partition.
type DeadLetter interface {
	Route(ctx context.Context, msg Message, reason string) error
}

// KafkaDeadLetter republishes the record verbatim onto a per-source
// dead-letter topic, with the reason in a header.
type KafkaDeadLetter struct {
	writer *kafka.Writer
	suffix string
}

func NewKafkaDeadLetter(brokers []string, suffix string) *KafkaDeadLetter {
	return &KafkaDeadLetter{
		writer: &kafka.Writer{Addr: kafka.TCP(brokers...)},
		suffix: suffix,
	}
}

func (d *KafkaDeadLetter) Route(ctx context.Context, msg Message, reason string) error {
	err := d.writer.WriteMessages(ctx, kafka.Message{
		Topic: msg.Topic + d.suffix,
		Key:   msg.Key,
		Value: msg.Value,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(reason)},
			{Key: "partition", Value: []byte(fmt.Sprint(msg.Partition))},
			{Key: "offset", Value: []byte(fmt.Sprint(msg.Offset))},
		},
	})
	if err != nil {
		return fmt.Errorf("event.KafkaDeadLetter.Route: %w", err)
	}
	return nil
}

func (d *KafkaDeadLetter) Close() error {
	return d.writer.Close()
}
