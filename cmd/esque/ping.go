package main

import (
	"fmt"
	"time"

	"github.com/i-emek/esque/pkg/clients/ping"
	"github.com/i-emek/esque/pkg/core/logger"
	"github.com/spf13/cobra"
)

func newPingCmd() *cobra.Command {
	var (
		times int
		wait  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Test the connection to the kafka cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			clusterCtx, err := resolveContext(cmd)
			if err != nil {
				return err
			}

			log, err := logger.New(verbose(cmd))
			if err != nil {
				return err
			}

			pinger, err := ping.New(clusterCtx, log)
			if err != nil {
				return err
			}
			defer pinger.Close()

			durations, err := pinger.Ping(cmd.Context(), times, wait)
			if err != nil {
				return err
			}

			if len(durations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pongs received")
				return nil
			}

			var total time.Duration
			for _, d := range durations {
				total += d
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pongs, avg rtt %s\n", len(durations), total/time.Duration(len(durations)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&times, "times", "t", 10, "Number of pings")
	cmd.Flags().DurationVarP(&wait, "wait", "w", time.Second, "Pause between pings")

	return cmd
}
