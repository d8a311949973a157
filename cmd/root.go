package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gnolang/bowtie/formatter"
	"github.com/gnolang/bowtie/internal/bowtie"
	"github.com/gnolang/bowtie/internal/learn"
	"github.com/gnolang/bowtie/precond"
)

// options holds the flags shared by the synthesis commands.
type options struct {
	cfgFile     string
	timeout     time.Duration
	check       string
	solverArgs  string
	poke        bool
	noPoke      bool
	verify      bool
	metricsFile string
	cache       string
	verbose     int
	quiet       int

	engineOpts []precond.Option
	// checkEnv is off when an oracle is injected, since the prover on
	// disk is then never run.
	checkEnv bool
	logger   *zap.Logger
}

// verbosity is 1 plus the -v count minus the -q count.
func (o *options) verbosity() int {
	return 1 + o.verbose - o.quiet
}

func newRootCmd(engineOpts ...precond.Option) *cobra.Command {
	o := &options{engineOpts: engineOpts, checkEnv: len(engineOpts) == 0}

	rootCmd := &cobra.Command{
		Use:   "bowtie SPEC OP1 OP2 [PREDICATES]",
		Short: "bowtie - synthesize commutativity preconditions for ADT operations",
		Long: `bowtie learns a precondition under which two operations of a lifted
abstract data type commute, using an SMT prover as a validity oracle.
The answer is printed on standard output; logs, the summary and run
statistics go to standard error.`,
		Args:          cobra.RangeArgs(3, 4),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			o.logger = newLogger(cmd.ErrOrStderr(), o.verbosity())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynthesize(cmd, o, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "Configuration file (default "+precond.DefaultConfigPath+" if present)")
	flags.DurationVar(&o.timeout, "timeout", 0, "Deadline for the whole run (0 = none)")
	flags.CountVarP(&o.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	flags.CountVarP(&o.quiet, "quiet", "q", "Decrease verbosity (repeatable)")

	addRunFlags(rootCmd, o)

	rootCmd.AddCommand(newFilterCmd(o))
	rootCmd.AddCommand(newInitCmd(o))
	rootCmd.AddCommand(newWatchCmd(o))
	return rootCmd
}

// addRunFlags registers the flags of every command that builds a request.
func addRunFlags(cmd *cobra.Command, o *options) {
	flags := cmd.Flags()
	flags.StringVar(&o.check, "check", bowtie.ModeBowtie.String(), "Property to check: "+strings.Join(bowtie.Modes(), ", "))
	flags.StringVar(&o.solverArgs, "solver-args", "", "Extra prover arguments, split on whitespace")
	flags.BoolVar(&o.poke, "poke", false, "Enable the poke heuristic")
	flags.BoolVar(&o.noPoke, "no-poke", false, "Disable the poke heuristic")
	flags.BoolVar(&o.verify, "verify", false, "Run completeness and soundness checks on the answer")
	flags.StringVar(&o.metricsFile, "metrics-file", "", "Write run statistics as a Prometheus text file")
	flags.StringVar(&o.cache, "cache", "", "Cache prover replies in this directory")
	cmd.MarkFlagsMutuallyExclusive("poke", "no-poke")
}

// Execute runs the command line and returns the error that ended it.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newLogger(w io.Writer, verbosity int) *zap.Logger {
	level := zapcore.WarnLevel
	switch {
	case verbosity >= 2:
		level = zapcore.DebugLevel
	case verbosity == 1:
		level = zapcore.InfoLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// engine loads the configuration, applies the flags over it and builds
// the engine.
func (o *options) engine(cmd *cobra.Command) (*precond.Engine, error) {
	cfg, err := precond.LoadConfig(o.cfgFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.metricsFile
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled = o.cache != ""
		cfg.Cache.Dir = o.cache
	}
	cfg.DumpScripts = o.verbosity() >= 3
	return precond.New(cfg, o.logger, o.engineOpts...)
}

// request builds the request named by the positional arguments.
func (o *options) request(args []string) (precond.Request, error) {
	mode, err := bowtie.ParseMode(o.check)
	if err != nil {
		return precond.Request{}, err
	}
	req := precond.Request{
		SpecPath:        args[0],
		First:           args[1],
		Second:          args[2],
		Mode:            mode,
		ExtraSolverArgs: strings.Fields(o.solverArgs),
	}
	if len(args) > 3 {
		req.PredicatesPath = args[3]
	}
	switch {
	case o.poke:
		req.Poke = boolPtr(true)
	case o.noPoke:
		req.Poke = boolPtr(false)
	}
	if o.verify || o.verbosity() >= 2 {
		req.Verify = boolPtr(true)
	}
	return req, nil
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

func runSynthesize(cmd *cobra.Command, o *options, args []string) error {
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

	bar := o.spinner(cmd.ErrOrStderr())
	if bar != nil {
		req.Progress = bar
	}
	report, err := engine.Synthesize(ctx, req)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}
	return printReport(cmd, o, report)
}

func printReport(cmd *cobra.Command, o *options, report *precond.Report) error {
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	if o.verbosity() >= 1 || report.Patched || report.Checks != nil {
		fmt.Fprint(stderr, formatter.Summary(report, colored(stderr)))
	}
	if o.verbosity() >= 1 {
		return formatter.WriteStats(stderr, report)
	}
	return nil
}

// spinner returns a progress indicator counting oracle calls, or nil when
// stderr is not a terminal or output is quiet.
func (o *options) spinner(w io.Writer) *progressbar.ProgressBar {
	if o.verbosity() < 1 || !isTerminal(w) {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("querying prover"),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func colored(w io.Writer) bool {
	return !color.NoColor && isTerminal(w)
}

func boolPtr(b bool) *bool { return &b }

var _ learn.Progress = (*progressbar.ProgressBar)(nil)
