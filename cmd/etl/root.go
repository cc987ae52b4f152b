package main

import (
	"github.com/spf13/cobra"

	"github.com/askiada/go-etl/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "etl",
		Short: "Run declarative ETL pipelines",
		Long: `etl reads records from one input, transforms them and forks the
stream to any number of outputs, as described by a YAML definition.

Configuration is read from ETL_ prefixed environment variables, see "etl env".`,
		SilenceUsage: true,
	}

	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRunCmd(), newModulesCmd(), &cobra.Command{
		Use:   "env",
		Short: "List the environment variables read by etl",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return config.Usage()
		},
	})

	return root
}
