// Package main provides the entry point for the cloud backtest runner.
//
// Usage:
//
//	cloud-backtest --project MyFirstAlgo --name test-001 \
//	  --param symbol=AAPL --param period=20
//
// QC_USER_ID and QC_API_TOKEN must be set.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/cloud-backtest/internal/archive"
	"github.com/yourusername/cloud-backtest/internal/config"
	"github.com/yourusername/cloud-backtest/internal/lean"
	"github.com/yourusername/cloud-backtest/internal/logger"
	"github.com/yourusername/cloud-backtest/internal/metrics"
	"github.com/yourusername/cloud-backtest/internal/runner"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode mirrors a failed lean child's exit status; everything else is 1.
func exitCode(err error) int {
	if code, ok := lean.ExitCode(err); ok {
		return code
	}
	return 1
}

func newRootCmd() *cobra.Command {
	var (
		opts       runner.Options
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "cloud-backtest",
		Short: "Run a QuantConnect cloud backtest and archive a record of it",
		Long: `Logs in to QuantConnect with QC_USER_ID and QC_API_TOKEN, submits a cloud
backtest through the lean CLI and records the parameters, metadata and exact
command line under reports/backtests/<UTC date>/<project>/<name>/.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Past flag parsing, failures are not usage mistakes
			cmd.SilenceUsage = true
			return runBacktest(cmd, configFile, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Project, "project", "", "QuantConnect project name or id")
	flags.StringVar(&opts.Name, "name", "", "Backtest name")
	flags.BoolVar(&opts.Push, "push", true, "Push local project changes before the backtest (--push=false to skip)")
	flags.StringArrayVar(&opts.Params, "param", nil, "Backtest parameter as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("name")

	flags.StringVarP(&configFile, "config", "c", "", "Path to optional configuration file")
	flags.String("reports-dir", archive.DefaultRoot, "Root directory for run archives")
	flags.String("lean-bin", "lean", "Path to the lean CLI")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after the run")

	return cmd
}

func runBacktest(cmd *cobra.Command, configFile string, opts runner.Options) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log := logger.NewLogger(cfg.App.LogLevel, cfg.IsProduction())
	metrics.InitRegistry()

	executor := lean.NewExecExecutor(cmd.OutOrStdout(), cmd.ErrOrStderr())
	client := lean.NewClient(cfg.Lean.Binary, executor, log)
	r := runner.New(client, archive.NewWriter(cfg.Reports.Root), cfg.Credentials, log)

	result, runErr := r.Run(cmd.Context(), opts)

	if cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
			log.WithError(err).Warn("Failed to write metrics")
		}
	}

	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Backtest record written to %s\n", result.Dir)
	return nil
}
