package main

import (
	"fmt"

	"github.com/i-emek/esque/pkg/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration-related commands",
	}

	cmd.AddCommand(newConfigSampleCmd())

	return cmd
}

func newConfigSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Write a sample config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			if path == "" {
				path, err = config.DefaultPath()
				if err != nil {
					return err
				}
			}

			if err := config.WriteSample(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sample config written to %s\n", path)
			return nil
		},
	}
}
