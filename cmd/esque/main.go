// Package main provides the esque CLI, an operational Kafka tool for
// snapshotting registry-encoded Avro topics to local archives and replaying
// them.
//
// Usage:
//
//	esque consume products --number 100
//	esque produce products --directory messages/products/1730000000000
//	esque ping
package main

import (
	"fmt"
	"os"

	"github.com/i-emek/esque/pkg/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "esque",
		Short:         "esque - an operational kafka tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to the esque config file")
	rootCmd.PersistentFlags().String("context", "", "Cluster context to use (defaults to current-context)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newConsumeCmd(),
		newProduceCmd(),
		newPingCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// resolveContext loads the config file and picks the cluster context the
// command should talk to.
func resolveContext(cmd *cobra.Command) (config.ClusterContext, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.ClusterContext{}, err
	}
	if path == "" {
		path, err = config.DefaultPath()
		if err != nil {
			return config.ClusterContext{}, err
		}
	}

	conf, err := config.Load(path)
	if err != nil {
		return config.ClusterContext{}, err
	}

	name, err := cmd.Flags().GetString("context")
	if err != nil {
		return config.ClusterContext{}, err
	}
	return conf.Context(name)
}

func verbose(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}
