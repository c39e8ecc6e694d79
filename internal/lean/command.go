// Package lean drives the QuantConnect lean CLI as a child process.
package lean

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is a single invocation of an external program.
type Command struct {
	Path string
	Args []string

	// Stdin is fed to the child process. It is never part of the argument
	// vector, so secrets passed here stay out of process listings.
	Stdin io.Reader
}

// Argv returns the program followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String returns the command line joined with single spaces.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Executor runs a command to completion.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecExecutor runs commands with os/exec. The child inherits the configured
// output streams and is waited on without a timeout.
type ExecExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecExecutor creates an executor writing child output to stdout and
// stderr. Nil writers fall back to the process's own streams.
func NewExecExecutor(stdout, stderr io.Writer) *ExecExecutor {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &ExecExecutor{Stdout: stdout, Stderr: stderr}
}

// Run starts cmd and waits for it. A non-zero exit is returned as the
// underlying *exec.ExitError, wrapped.
func (e *ExecExecutor) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdin = cmd.Stdin
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", commandName(cmd), err)
	}
	return nil
}

// ExitCode extracts the child exit status from an error returned by Run.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

// commandName is the program plus its leading subcommand words, without
// values that may be sensitive or long.
func commandName(cmd Command) string {
	parts := []string{cmd.Path}
	for _, arg := range cmd.Args {
		if strings.HasPrefix(arg, "-") {
			break
		}
		parts = append(parts, arg)
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, " ")
}
