package event

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Message is one fetched broker record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte

	raw kafka.Message
}

// Consumer is the two-phase at-least-once contract: Fetch blocks for
// the next record of the topic, Commit advances the read position past
// it. A record whose position was never committed is redelivered, which
// is the sole retry mechanism for failed processing.
type Consumer interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}

// KafkaConsumer reads one topic within a consumer group. Partitions are
// balanced across group members by the broker; inside a partition the
// fetch order is the delivery order.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupId, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupId,
			Topic:   topic,
		}),
	}
}

func (c *KafkaConsumer) Fetch(ctx context.Context) (Message, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("event.KafkaConsumer.Fetch: %w", err)
	}

	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		raw:       m,
	}, nil
}

func (c *KafkaConsumer) Commit(ctx context.Context, msg Message) error {
	err := c.reader.CommitMessages(ctx, msg.raw)
	if err != nil {
		return fmt.Errorf("event.KafkaConsumer.Commit: %w", err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
