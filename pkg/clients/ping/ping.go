// Package ping checks connectivity to a Kafka cluster by producing and
// re-consuming small probe messages.
package ping

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/i-emek/esque/pkg/config"
	"go.uber.org/zap"
)

// Topic is the probe topic; it is created on demand by the cluster when
// auto topic creation is enabled.
const Topic = "esque-ping"

const pollTimeoutMs = 500

// Pinger produces timestamped probes and measures how long they take to
// come back.
type Pinger struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	log      *zap.Logger
}

// New connects a probe producer and consumer to the cluster. The consumer
// uses a transient group id so repeated pings never interfere.
func New(clusterCtx config.ClusterContext, log *zap.Logger) (*Pinger, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": clusterCtx.BootstrapServers(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ping producer: %w", err)
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  clusterCtx.BootstrapServers(),
		"group.id":           "esque-ping-" + uuid.NewString(),
		"enable.auto.commit": false,
		"auto.offset.reset":  "latest",
	})
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("failed to create ping consumer: %w", err)
	}

	return &Pinger{producer: producer, consumer: consumer, log: log}, nil
}

// Ping waits for the brokers, then sends count probes with the given pause
// between them, returning the measured round-trip times.
func (p *Pinger) Ping(ctx context.Context, count int, pause time.Duration) ([]time.Duration, error) {
	if err := p.waitForBrokers(ctx); err != nil {
		return nil, err
	}

	if err := p.consumer.SubscribeTopics([]string{Topic}, nil); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}

	durations := make([]time.Duration, 0, count)
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return durations, ctx.Err()
		default:
		}

		rtt, err := p.pingOnce(ctx)
		if err != nil {
			return durations, err
		}
		p.log.Info("pong", zap.Int("seq", i), zap.Duration("rtt", rtt))
		durations = append(durations, rtt)

		if i < count-1 {
			time.Sleep(pause)
		}
	}
	return durations, nil
}

func (p *Pinger) pingOnce(ctx context.Context) (time.Duration, error) {
	topic := Topic
	sent := time.Now()
	payload := strconv.FormatInt(sent.UnixNano(), 10)

	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          []byte(payload),
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to produce probe: %w", err)
	}
	p.producer.Flush(pollTimeoutMs)

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		ev := p.consumer.Poll(pollTimeoutMs)
		msg, ok := ev.(*kafka.Message)
		if !ok {
			continue
		}
		if string(msg.Value) != payload {
			// Probe from an earlier run, keep waiting for ours.
			continue
		}
		return time.Since(sent), nil
	}
}

// waitForBrokers retries metadata lookups with exponential backoff until
// the cluster answers.
func (p *Pinger) waitForBrokers(ctx context.Context) error {
	operation := func() error {
		metadata, err := p.producer.GetMetadata(nil, false, 1000)
		if err != nil {
			return err
		}
		if len(metadata.Brokers) == 0 {
			return fmt.Errorf("no brokers in metadata")
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("cluster unreachable: %w", err)
	}
	return nil
}

// Close releases both clients.
func (p *Pinger) Close() {
	p.producer.Close()
	if err := p.consumer.Close(); err != nil {
		p.log.Warn("failed to close ping consumer", zap.Error(err))
	}
}
