// Package runner submits a cloud backtest and archives a record of it.
//
// A run is a strict sequence that stops at the first failure: decode
// parameters, check credentials, log in, create the run directory, write
// params.json, meta.json and command.txt, run the backtest, write summary.md.
// Nothing touches the disk or starts a process until the inputs and the
// credentials have been checked.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/cloud-backtest/internal/archive"
	"github.com/yourusername/cloud-backtest/internal/config"
	"github.com/yourusername/cloud-backtest/internal/lean"
	"github.com/yourusername/cloud-backtest/internal/logger"
	"github.com/yourusername/cloud-backtest/internal/metrics"
	"github.com/yourusername/cloud-backtest/internal/params"
)

// Run steps, used in logs and metrics.
const (
	StepLogin    = "login"
	StepArchive  = "archive"
	StepBacktest = "backtest"
	StepSummary  = "summary"
)

// Options are the validated command-line inputs of a run.
type Options struct {
	Project string `validate:"required,relpath"`
	Name    string `validate:"required,relpath"`
	Push    bool
	Params  []string
}

// Result describes a completed run.
type Result struct {
	RunID   uuid.UUID
	Dir     string
	Command string
}

// Platform is the cloud backtesting service as seen through the lean CLI.
type Platform interface {
	Login(ctx context.Context, creds config.Credentials) error
	BacktestCommand(req lean.BacktestRequest) lean.Command
	Backtest(ctx context.Context, cmd lean.Command) error
}

// Runner executes backtest runs.
type Runner struct {
	platform    Platform
	archive     *archive.Writer
	credentials config.Credentials
	validator   *config.CustomValidator
	logger      *logrus.Logger
	now         func() time.Time
}

// New creates a runner. Credentials are captured once here and reused for
// every login.
func New(platform Platform, writer *archive.Writer, creds config.Credentials, log *logrus.Logger) *Runner {
	return &Runner{
		platform:    platform,
		archive:     writer,
		credentials: creds,
		validator:   config.NewValidator(),
		logger:      log,
		now:         time.Now,
	}
}

// WithClock replaces the clock, for tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run performs a single backtest submission.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := r.validator.Struct(opts); err != nil {
		return nil, err
	}

	parameters, err := params.Decode(opts.Params)
	if err != nil {
		return nil, err
	}

	if err := r.credentials.Validate(); err != nil {
		return nil, err
	}

	start := r.now().UTC()
	meta := archive.NewMetadata(opts.Project, opts.Name, opts.Push, start)
	runLog := logger.NewRunLogger(r.logger, opts.Project, opts.Name)
	runLog.LogRunStarted(meta.RunID.String(), opts.Push, parameters.Len())
	metrics.RecordParameters(parameters.Len())

	fail := func(step string, err error) (*Result, error) {
		runLog.LogFailed(step, err)
		metrics.RecordRun(metrics.StatusFailure)
		return nil, err
	}

	stepStart := r.now()
	if err := r.platform.Login(ctx, r.credentials); err != nil {
		return fail(StepLogin, err)
	}
	runLog.LogAuthenticated(r.credentials.UserID, r.now().Sub(stepStart))
	r.recordStep(StepLogin, stepStart)

	stepStart = r.now()
	dir := r.archive.Location(opts.Project, opts.Name, start)
	cmd := r.platform.BacktestCommand(lean.BacktestRequest{
		Project:    opts.Project,
		Name:       opts.Name,
		Push:       opts.Push,
		Parameters: parameters,
	})
	if err := r.writeArchive(dir, parameters, meta, cmd); err != nil {
		return fail(StepArchive, err)
	}
	runLog.LogArchived(dir, []string{archive.ParamsFile, archive.MetadataFile, archive.CommandFile})
	r.recordStep(StepArchive, stepStart)

	stepStart = r.now()
	runLog.LogSubmitted(cmd.String())
	if err := r.platform.Backtest(ctx, cmd); err != nil {
		return fail(StepBacktest, err)
	}
	r.recordStep(StepBacktest, stepStart)

	summary := archive.Summary{Project: opts.Project, Name: opts.Name, Generated: r.now()}
	if err := r.archive.WriteSummary(dir, summary); err != nil {
		return fail(StepSummary, err)
	}

	metrics.RecordRun(metrics.StatusSuccess)
	runLog.LogCompleted(dir, r.now().Sub(start))

	return &Result{RunID: meta.RunID, Dir: dir, Command: cmd.String()}, nil
}

func (r *Runner) writeArchive(dir string, parameters *params.Parameters, meta archive.Metadata, cmd lean.Command) error {
	if err := r.archive.Provision(dir); err != nil {
		return err
	}
	if err := r.archive.WriteParams(dir, parameters); err != nil {
		return err
	}
	if err := r.archive.WriteMetadata(dir, meta); err != nil {
		return err
	}
	if err := r.archive.WriteCommand(dir, cmd.String()); err != nil {
		return fmt.Errorf("failed to record command line: %w", err)
	}
	return nil
}

func (r *Runner) recordStep(step string, started time.Time) {
	metrics.RecordStep(step, r.now().Sub(started).Seconds())
}
