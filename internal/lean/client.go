package lean

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/cloud-backtest/internal/config"
	"github.com/yourusername/cloud-backtest/internal/params"
)

// BacktestRequest describes a cloud backtest submission.
type BacktestRequest struct {
	Project    string
	Name       string
	Push       bool
	Parameters *params.Parameters
}

// Client builds and runs lean CLI commands.
type Client struct {
	binary   string
	executor Executor
	logger   *logrus.Entry
}

// NewClient creates a lean client for the given binary.
func NewClient(binary string, executor Executor, logger *logrus.Logger) *Client {
	return &Client{
		binary:   binary,
		executor: executor,
		logger:   logger.WithField("component", "lean"),
	}
}

// LoginCommand builds `lean login -u <user id>`. The token goes to stdin.
func (c *Client) LoginCommand(creds config.Credentials) Command {
	return Command{
		Path:  c.binary,
		Args:  []string{"login", "-u", creds.UserID},
		Stdin: strings.NewReader(creds.APIToken + "\n"),
	}
}

// Login authenticates with the platform. It always runs; stored sessions
// are never trusted.
func (c *Client) Login(ctx context.Context, creds config.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	c.logger.WithField("user_id", creds.UserID).Debug("Logging in to lean")
	if err := c.executor.Run(ctx, c.LoginCommand(creds)); err != nil {
		return fmt.Errorf("lean login failed: %w", err)
	}
	return nil
}

// BacktestCommand builds `lean cloud backtest <project> --name <name> [--push]
// [--parameter <key> <value>]...` with parameters in insertion order.
func (c *Client) BacktestCommand(req BacktestRequest) Command {
	args := []string{"cloud", "backtest", req.Project, "--name", req.Name}
	if req.Push {
		args = append(args, "--push")
	}
	for _, p := range req.Parameters.All() {
		args = append(args, "--parameter", p.Key, p.Value)
	}
	return Command{Path: c.binary, Args: args}
}

// Backtest runs a command built by BacktestCommand and waits for it.
func (c *Client) Backtest(ctx context.Context, cmd Command) error {
	c.logger.WithField("command", cmd.String()).Debug("Submitting cloud backtest")
	if err := c.executor.Run(ctx, cmd); err != nil {
		return fmt.Errorf("cloud backtest failed: %w", err)
	}
	return nil
}
