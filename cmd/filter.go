package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newFilterCmd(o *options) *cobra.Command {
	filterCmd := &cobra.Command{
		Use:   "filter SPEC OP1 OP2 [PREDICATES]",
		Short: "Print the candidate predicates that survive the trivial-predicate filter",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := o.request(args)
			if err != nil {
				return err
			}
			engine, err := o.engine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := o.context(cmd)
			defer cancel()

			kept, stats, err := engine.FilterPredicates(ctx, req)
			if err != nil {
				return err
			}
			o.logger.Info("filtered predicates",
				zap.Int("predicates", stats.Predicates),
				zap.Int("kept", stats.PredicatesFiltered),
			)
			out := cmd.OutOrStdout()
			for _, p := range kept {
				if _, err := fmt.Fprintln(out, p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addRunFlags(filterCmd, o)
	return filterCmd
}
