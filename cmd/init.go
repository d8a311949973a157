package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnolang/bowtie/precond"
)

// bowtie init
func newInitCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := o.cfgFile
			if path == "" {
				path = precond.DefaultConfigPath
			}
			if err := precond.WriteDefaultConfig(path); err != nil {
				return fmt.Errorf("initializing config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created/updated: %s\n", path)
			return nil
		},
	}
}
