// Package audit is the narrow client side of the platform audit
// service: a fire-and-forget log-event acceptor. Recording must never
// fail a business operation, so Sink has no error return; failures are
// logged and dropped.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type Entry struct {
	Action    string    `json:"action"`
	BidId     string    `json:"bidId,omitempty"`
	TenderId  string    `json:"tenderId,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Sink interface {
	Record(ctx context.Context, e Entry)
}

// KafkaSink publishes entries to the platform audit topic.
type KafkaSink struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, log *slog.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		log: log,
	}
}

func (s *KafkaSink) Record(ctx context.Context, e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(e)
	if err != nil {
		s.log.Warn("audit entry not serializable", "action", e.Action, "error", err)
		return
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.BidId),
		Value: value,
	})
	if err != nil {
		s.log.Warn("audit entry dropped", "action", e.Action, "bidId", e.BidId, "error", err)
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// LogSink writes entries to the local log, for development and tests.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(_ context.Context, e Entry) {
	s.log.Info("audit", "action", e.Action, "bidId", e.BidId, "tenderId", e.TenderId, "actor", e.Actor, "detail", e.Detail)
}

type nopSink struct{}

func (nopSink) Record(context.Context, Entry) {}

func Nop() Sink {
	return nopSink{}
}
