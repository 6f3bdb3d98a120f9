package consumer

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/i-emek/esque/pkg/archive"
	"github.com/i-emek/esque/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a Kafka consumer subscribed to topic under a transient
// group id, plus the ArchiveConsumer built on it. Snapshots never commit
// offsets; every session starts from the earliest offset.
func Module(topic string) fx.Option {
	return fx.Module("consumer",
		fx.Provide(func(lc fx.Lifecycle, clusterCtx config.ClusterContext, log *zap.Logger) (*kafka.Consumer, error) {
			groupID := "esque-archive-" + uuid.NewString()

			kafkaConsumer, err := kafka.NewConsumer(&kafka.ConfigMap{
				"bootstrap.servers":  clusterCtx.BootstrapServers(),
				"group.id":           groupID,
				"enable.auto.commit": false,
				"auto.offset.reset":  "earliest",
			})
			if err != nil {
				return nil, err
			}

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					log.Info("subscribing to topic",
						zap.String("topic", topic),
						zap.String("group_id", groupID),
					)
					return kafkaConsumer.SubscribeTopics([]string{topic}, nil)
				},
				OnStop: func(context.Context) error {
					log.Info("closing kafka consumer")
					return kafkaConsumer.Close()
				},
			})

			return kafkaConsumer, nil
		}),
		fx.Provide(func(kafkaConsumer *kafka.Consumer, writer archive.Writer, log *zap.Logger) *ArchiveConsumer {
			return NewArchiveConsumer(kafkaConsumer, writer, log)
		}),
	)
}
