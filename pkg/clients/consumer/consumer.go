// Package consumer pulls messages from a topic and hands them to an
// archive writer.
package consumer

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/i-emek/esque/pkg/archive"
	"go.uber.org/zap"
)

// messagePoller is the subset of the Kafka consumer the archiver uses.
type messagePoller interface {
	Poll(timeoutMs int) kafka.Event
}

// ArchiveConsumer drives one archival session: each polled message becomes
// exactly one archive record, in poll order.
type ArchiveConsumer struct {
	poller messagePoller
	writer archive.Writer
	log    *zap.Logger
}

func NewArchiveConsumer(poller messagePoller, writer archive.Writer, log *zap.Logger) *ArchiveConsumer {
	return &ArchiveConsumer{
		poller: poller,
		writer: writer,
		log:    log,
	}
}

// ConsumeToArchive archives up to maxMessages messages, returning the number
// written. Cancelling ctx stops the loop cleanly; the archive stays valid as
// written. A write failure aborts the session with the failing message
// untouched on the topic.
func (c *ArchiveConsumer) ConsumeToArchive(ctx context.Context, maxMessages int) (int, error) {
	consumed := 0
	for consumed < maxMessages {
		select {
		case <-ctx.Done():
			c.log.Info("stopping archival", zap.Int("consumed", consumed))
			return consumed, nil
		default:
		}

		ev := c.poller.Poll(500)
		switch ev := ev.(type) {
		case *kafka.Message:
			if err := c.writer.Write(archive.RawMessage{Key: ev.Key, Value: ev.Value}); err != nil {
				return consumed, err
			}
			consumed++
		case kafka.Error:
			if ev.IsFatal() {
				return consumed, ev
			}
			c.log.Warn("transient kafka error", zap.String("error", ev.Error()))
		case nil:
			// Poll timeout, keep waiting.
		}
	}
	return consumed, nil
}
