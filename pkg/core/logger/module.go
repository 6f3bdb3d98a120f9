package logger

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module provides the logger and routes fx lifecycle events through it.
func Module(verbose bool) fx.Option {
	return fx.Options(
		fx.Provide(func(lc fx.Lifecycle) (*zap.Logger, error) {
			log, err := New(verbose)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.StopHook(func() error {
				if err := log.Sync(); err != nil {
					// Syncing stderr fails on some platforms; not actionable.
					if pathErr, ok := err.(*os.PathError); ok && pathErr.Err.Error() == "invalid argument" {
						return nil
					}
					return err
				}
				return nil
			}))
			return log, nil
		}),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
	)
}
