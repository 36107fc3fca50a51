package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// errMalformed marks a record that can never be processed, no matter
// how often it is redelivered. Such records are dead-lettered and their
// position committed; every other failure leaves the position alone so
// the broker redelivers.
var errMalformed = errors.New("malformed event payload")

// Adapter runs one topic's consume loop: decode, dispatch through the
// state machine, commit the read position only after the local write
// succeeded.
type Adapter struct {
	topic    string
	consumer Consumer
	dead     DeadLetter
	log      *slog.Logger
	dispatch func(ctx context.Context, msg Message) error
}

// Run consumes until the context is cancelled or processing fails.
// A processing failure returns without committing, so the caller is
// expected to restart the loop; the consumer group then resumes from
// the last committed position and redelivers the failed record.
func (a *Adapter) Run(ctx context.Context) error {
	for {
		msg, err := a.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("event.Adapter.Run: %s: %w", a.topic, err)
		}

		err = a.dispatch(ctx, msg)
		switch {
		case err == nil:
			// processed (or recognized as duplicate / irrelevant)

		case errors.Is(err, errMalformed):
			a.log.Error("dead-lettering malformed event",
				"topic", a.topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			if derr := a.dead.Route(ctx, msg, err.Error()); derr != nil {
				// Dead-letter unreachable: keep the position so the
				// record is retried rather than silently dropped.
				return fmt.Errorf("event.Adapter.Run: %s: %w", a.topic, derr)
			}

		default:
			a.log.Warn("event processing failed, leaving position uncommitted",
				"topic", a.topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			return fmt.Errorf("event.Adapter.Run: %s: %w", a.topic, err)
		}

		err = a.consumer.Commit(ctx, msg)
		if err != nil {
			return fmt.Errorf("event.Adapter.Run: %s: %w", a.topic, err)
		}
	}
}

func (a *Adapter) Close() error {
	return a.consumer.Close()
}
