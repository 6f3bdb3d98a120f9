package main

import (
	"context"
	"fmt"

	"github.com/i-emek/esque/pkg/archive"
	"github.com/i-emek/esque/pkg/clients/producer"
	"github.com/i-emek/esque/pkg/core/logger"
	"github.com/i-emek/esque/pkg/kafka/avro/schemaregistry"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newProduceCmd() *cobra.Command {
	var directory string

	cmd := &cobra.Command{
		Use:   "produce <topic>",
		Short: "Replay an archive directory into a topic",
		Long: `Produce reads an archive written by "esque consume", registers each
segment's schemas in the target cluster's registry and produces the records
back to the topic in their original order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]
			clusterCtx, err := resolveContext(cmd)
			if err != nil {
				return err
			}

			var (
				produced int
				runErr   error
			)

			app := fx.New(
				logger.Module(verbose(cmd)),
				fx.Supply(clusterCtx),
				schemaregistry.Module(),
				archive.ReaderModule(directory),
				producer.Module(topic),
				fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, replayer *producer.ArchiveProducer, log *zap.Logger) {
					lc.Append(fx.StartHook(func() {
						go func() {
							produced, runErr = replayer.ReplayArchive(context.Background())
							if runErr == nil {
								log.Info("archive replayed",
									zap.String("directory", directory),
									zap.String("topic", topic),
									zap.Int("messages", produced),
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

			fmt.Fprintf(cmd.OutOrStdout(), "Produced %d messages from %s to %s\n", produced, directory, topic)
			return nil
		},
	}

	cmd.Flags().StringVarP(&directory, "directory", "d", "", "Archive directory to replay")
	_ = cmd.MarkFlagRequired("directory")

	return cmd
}
