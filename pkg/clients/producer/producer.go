// Package producer replays archived messages back into a topic.
package producer

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/hamba/avro/v2"
	"github.com/i-emek/esque/pkg/archive"
	"github.com/i-emek/esque/pkg/kafka/avro/encoding"
	"github.com/i-emek/esque/pkg/observability/metrics"
	"go.uber.org/zap"
)

// flushTimeoutMs bounds the final wait for outstanding deliveries.
const flushTimeoutMs = 15000

// schemaRegistrar is the subset of the registry client used for replay.
type schemaRegistrar interface {
	Register(subject string, schema schemaregistry.SchemaInfo, normalize bool) (int, error)
}

// messageProducer is the subset of the Kafka producer used for replay.
type messageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
}

// ArchiveProducer re-encodes archived records against their segment schemas
// and produces them to a topic in archive order. Schemas are registered
// under the conventional "<topic>-key" / "<topic>-value" subjects, so the
// replayed stream is readable by any registry-aware consumer.
type ArchiveProducer struct {
	producer  messageProducer
	registrar schemaRegistrar
	reader    archive.Reader
	builder   encoding.WireFormatBuilder
	topic     string
	schemaIDs map[string]int
	log       *zap.Logger
}

func NewArchiveProducer(producer messageProducer, registrar schemaRegistrar, reader archive.Reader, topic string, log *zap.Logger) *ArchiveProducer {
	_, builder := encoding.NewConfluentWireFormat()
	return &ArchiveProducer{
		producer:  producer,
		registrar: registrar,
		reader:    reader,
		builder:   builder,
		topic:     topic,
		schemaIDs: make(map[string]int),
		log:       log,
	}
}

// ReplayArchive produces every remaining record of the reader, returning
// the number of messages handed to the producer.
func (p *ArchiveProducer) ReplayArchive(ctx context.Context) (int, error) {
	produced := 0
	for {
		select {
		case <-ctx.Done():
			return produced, ctx.Err()
		default:
		}

		msg, err := p.reader.ReadNext()
		if err != nil {
			return produced, err
		}
		if msg == nil {
			break
		}

		key, err := p.encodeChannel(p.topic+"-key", msg.Key, msg.KeySchema)
		if err != nil {
			return produced, fmt.Errorf("key: %w", err)
		}
		value, err := p.encodeChannel(p.topic+"-value", msg.Value, msg.ValueSchema)
		if err != nil {
			return produced, fmt.Errorf("value: %w", err)
		}

		err = p.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
			Key:            key,
			Value:          value,
		}, nil)
		if err != nil {
			return produced, fmt.Errorf("failed to produce message: %w", err)
		}

		produced++
		metrics.RecordsReplayed.Inc()
	}

	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		return produced, fmt.Errorf("%d messages not delivered before flush timeout", remaining)
	}
	return produced, nil
}

// encodeChannel turns one reconstructed channel back into wire format. A
// null-schema channel (absent key or tombstone value) stays absent.
func (p *ArchiveProducer) encodeChannel(subject string, v any, schema avro.Schema) ([]byte, error) {
	if schema == nil || schema.Type() == avro.Null {
		return nil, nil
	}

	schemaID, err := p.schemaID(subject, schema)
	if err != nil {
		return nil, err
	}

	coerced, err := coerce(schema, v)
	if err != nil {
		return nil, err
	}

	body, err := avro.Marshal(schema, coerced)
	if err != nil {
		return nil, fmt.Errorf("failed to encode avro payload: %w", err)
	}

	return p.builder.Build(schemaID, body), nil
}

func (p *ArchiveProducer) schemaID(subject string, schema avro.Schema) (int, error) {
	cacheKey := subject + "|" + schema.String()
	if id, ok := p.schemaIDs[cacheKey]; ok {
		return id, nil
	}

	id, err := p.registrar.Register(subject, schemaregistry.SchemaInfo{
		Schema:     schema.String(),
		SchemaType: "AVRO",
	}, false)
	if err != nil {
		return 0, fmt.Errorf("failed to register schema under %s: %w", subject, err)
	}

	p.log.Debug("registered schema",
		zap.String("subject", subject),
		zap.Int("schema_id", id),
	)
	p.schemaIDs[cacheKey] = id
	return id, nil
}
