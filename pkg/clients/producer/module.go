package producer

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/i-emek/esque/pkg/archive"
	"github.com/i-emek/esque/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a Kafka producer and the ArchiveProducer replaying into
// topic.
func Module(topic string) fx.Option {
	return fx.Module("producer",
		fx.Provide(func(lc fx.Lifecycle, clusterCtx config.ClusterContext, log *zap.Logger) (*kafka.Producer, error) {
			kafkaProducer, err := kafka.NewProducer(&kafka.ConfigMap{
				"bootstrap.servers": clusterCtx.BootstrapServers(),
			})
			if err != nil {
				return nil, err
			}

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					log.Info("closing kafka producer")
					kafkaProducer.Close()
					return nil
				},
			})

			return kafkaProducer, nil
		}),
		fx.Provide(func(kafkaProducer *kafka.Producer, client schemaregistry.Client, reader archive.Reader, log *zap.Logger) *ArchiveProducer {
			return NewArchiveProducer(kafkaProducer, client, reader, topic, log)
		}),
	)
}
