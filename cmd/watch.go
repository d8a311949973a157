package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/bowtie/precond"
)

func newWatchCmd(o *options) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch SPEC OP1 OP2 [PREDICATES]",
		Short: "Synthesize again whenever the spec or predicates file changes",
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

			if o.checkEnv {
				if _, err := engine.CheckEnvironment(ctx); err != nil {
					return err
				}
			}
			return engine.Watch(ctx, req, func(report *precond.Report, err error) {
				if err != nil {
					o.logger.Error("synthesis failed", zap.Error(err))
					return
				}
				if err := printReport(cmd, o, report); err != nil {
					o.logger.Error("cannot print report", zap.Error(err))
				}
			})
		},
	}
	addRunFlags(watchCmd, o)
	return watchCmd
}
