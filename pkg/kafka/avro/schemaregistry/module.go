package schemaregistry

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/i-emek/esque/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the Confluent Schema Registry client and the resolver
// built on top of it.
func Module() fx.Option {
	return fx.Module("schemaregistry",
		fx.Provide(
			provideClient,
			provideResolver,
		),
	)
}

func provideClient(lc fx.Lifecycle, ctx config.ClusterContext, log *zap.Logger) (schemaregistry.Client, error) {
	conf := schemaregistry.NewConfig(ctx.SchemaRegistry)
	conf.RequestTimeoutMs = 5000

	client, err := schemaregistry.NewClient(conf)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info("closing schema registry client")
			return client.Close()
		},
	})

	return client, nil
}

func provideResolver(client schemaregistry.Client) Resolver {
	return NewResolver(client)
}
