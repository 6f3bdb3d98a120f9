package archive

import (
	"context"

	"github.com/i-emek/esque/pkg/kafka/avro/schemaregistry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// WriterModule provides an archive Writer for one write session targeting
// dir. The record stream is flushed and closed on shutdown.
func WriterModule(dir string) fx.Option {
	return fx.Module("archive-writer",
		fx.Provide(func(lc fx.Lifecycle, resolver schemaregistry.Resolver, log *zap.Logger) (Writer, error) {
			w, err := NewAvroWriter(dir, resolver, log)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					log.Info("closing archive writer", zap.String("dir", dir))
					return w.Close()
				},
			})
			return w, nil
		}),
	)
}

// ReaderModule provides an archive Reader for one forward scan of dir.
func ReaderModule(dir string) fx.Option {
	return fx.Module("archive-reader",
		fx.Provide(func(lc fx.Lifecycle, log *zap.Logger) (Reader, error) {
			r, err := NewAvroReader(dir)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return r.Close()
				},
			})
			return r, nil
		}),
	)
}
