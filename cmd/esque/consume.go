package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/i-emek/esque/pkg/archive"
	"github.com/i-emek/esque/pkg/clients/consumer"
	"github.com/i-emek/esque/pkg/core/logger"
	"github.com/i-emek/esque/pkg/kafka/avro/schemaregistry"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newConsumeCmd() *cobra.Command {
	var (
		directory string
		number    int
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "consume <topic>",
		Short: "Consume avro messages of a topic into a local archive",
		Long: `Consume reads registry-encoded Avro messages from a topic and writes them
to an append-only archive directory split into schema segments. The archive
can later be inspected on disk or replayed with "esque produce".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]
			clusterCtx, err := resolveContext(cmd)
			if err != nil {
				return err
			}

			if directory == "" {
				directory = filepath.Join("messages", topic, strconv.FormatInt(time.Now().UnixMilli(), 10))
			}

			var (
				consumed int
				runErr   error
			)

			app := fx.New(
				logger.Module(verbose(cmd)),
				fx.Supply(clusterCtx),
				schemaregistry.Module(),
				archive.WriterModule(directory),
				consumer.Module(topic),
				fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, archiver *consumer.ArchiveConsumer, log *zap.Logger) {
					lc.Append(fx.StartHook(func() {
						go func() {
							runCtx, cancel := context.WithTimeout(context.Background(), timeout)
							defer cancel()

							consumed, runErr = archiver.ConsumeToArchive(runCtx, number)
							if runErr == nil {
								log.Info("archive written",
									zap.String("directory", directory),
									zap.Int("messages", consumed),
								)
							}
							_ = shutdowner.Shutdown()
						}()
					}))
				}),
			)

			app.Run()
			if err := app.Err(); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d messages to %s\n", consumed, directory)
			return nil
		},
	}

	cmd.Flags().StringVarP(&directory, "directory", "d", "", "Archive directory (default messages/<topic>/<timestamp>)")
	cmd.Flags().IntVarP(&number, "number", "n", 10, "Number of messages to consume")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up waiting for messages after this long")

	return cmd
}
