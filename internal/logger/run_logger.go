// Package logger provides backtest run logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RunLogger provides dedicated logging for a single backtest submission.
type RunLogger struct {
	*logrus.Entry
}

// NewRunLogger creates a run logger tagged with the project and backtest name.
func NewRunLogger(baseLogger *logrus.Logger, project, name string) *RunLogger {
	return &RunLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "backtest_runner",
			"project":   project,
			"name":      name,
		}),
	}
}

// LogRunStarted logs the start of a run.
func (rl *RunLogger) LogRunStarted(runID string, push bool, parameterCount int) {
	rl.WithFields(logrus.Fields{
		"run_id":          runID,
		"push":            push,
		"parameter_count": parameterCount,
	}).Info("Backtest run started")
}

// LogAuthenticated logs a successful login. The token is never logged.
func (rl *RunLogger) LogAuthenticated(userID string, duration time.Duration) {
	rl.WithFields(logrus.Fields{
		"user_id":     userID,
		"duration_ms": duration.Milliseconds(),
	}).Info("Authenticated with QuantConnect")
}

// LogArchived logs the run directory and the files written so far.
func (rl *RunLogger) LogArchived(dir string, files []string) {
	rl.WithFields(logrus.Fields{
		"output_dir": dir,
		"files":      files,
	}).Info("Run archive written")
}

// LogSubmitted logs the command line handed to lean.
func (rl *RunLogger) LogSubmitted(commandLine string) {
	rl.WithField("command", commandLine).Info("Submitting cloud backtest")
}

// LogCompleted logs a finished run.
func (rl *RunLogger) LogCompleted(dir string, duration time.Duration) {
	rl.WithFields(logrus.Fields{
		"output_dir":  dir,
		"duration_ms": duration.Milliseconds(),
	}).Info("Backtest run completed")
}

// LogFailed logs the step a run failed at.
func (rl *RunLogger) LogFailed(step string, err error) {
	rl.WithFields(logrus.Fields{
		"step": step,
	}).WithError(err).Error("Backtest run failed")
}
