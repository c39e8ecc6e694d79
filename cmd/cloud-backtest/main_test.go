package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cloud-backtest/internal/archive"
	"github.com/yourusername/cloud-backtest/internal/config"
	"github.com/yourusername/cloud-backtest/internal/params"
)

// fakeLean records its arguments and stdin, then exits with $FAKE_LEAN_EXIT.
const fakeLean = `#!/bin/sh
echo "$@" >> "$FAKE_LEAN_LOG"
if [ "$1" = "login" ]; then
	read token
	echo "stdin:$token" >> "$FAKE_LEAN_LOG"
	exit 0
fi
exit "${FAKE_LEAN_EXIT:-0}"
`

type cliFixture struct {
	dir     string
	reports string
	leanBin string
	leanLog string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	dir := t.TempDir()
	f := &cliFixture{
		dir:     dir,
		reports: filepath.Join(dir, "reports", "backtests"),
		leanBin: filepath.Join(dir, "lean"),
		leanLog: filepath.Join(dir, "lean.log"),
	}
	require.NoError(t, os.WriteFile(f.leanBin, []byte(fakeLean), 0o755))

	t.Setenv("FAKE_LEAN_LOG", f.leanLog)
	t.Setenv(config.EnvUserID, "123456")
	t.Setenv(config.EnvAPIToken, "s3cr3t")
	return f
}

func (f *cliFixture) execute(args ...string) (string, error) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--lean-bin", f.leanBin, "--reports-dir", f.reports, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (f *cliFixture) runDir(project, name string) string {
	return filepath.Join(f.reports, time.Now().UTC().Format(archive.DateLayout), project, name)
}

func (f *cliFixture) leanCalls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.leanLog)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestCLIEndToEnd(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.execute("--project", "MyFirstAlgo", "--name", "test-001", "--param", "symbol=AAPL", "--param", "period=20")
	require.NoError(t, err)

	dir := f.runDir("MyFirstAlgo", "test-001")
	assert.Contains(t, out, dir)
	assert.Equal(t, []string{
		"login -u 123456",
		"stdin:s3cr3t",
		"cloud backtest MyFirstAlgo --name test-001 --push --parameter symbol AAPL --parameter period 20",
	}, f.leanCalls(t))

	command, err := os.ReadFile(filepath.Join(dir, archive.CommandFile))
	require.NoError(t, err)
	assert.Equal(t, f.leanBin+" cloud backtest MyFirstAlgo --name test-001 --push --parameter symbol AAPL --parameter period 20\n", string(command))

	summary, err := os.ReadFile(filepath.Join(dir, archive.SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), archive.ResultsPendingMarker)
}

func TestCLIParamWithComma(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.execute("--project", "Algo", "--name", "n", "--param", "symbols=AAPL,MSFT")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.runDir("Algo", "n"), archive.ParamsFile))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"symbols\": \"AAPL,MSFT\"\n}\n", string(data))
}

func TestCLIPushFalse(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.execute("--project", "Algo", "--name", "n", "--push=false")
	require.NoError(t, err)

	calls := f.leanCalls(t)
	require.Len(t, calls, 3)
	assert.Equal(t, "cloud backtest Algo --name n", calls[2])
}

func TestCLIMissingRequiredFlags(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.execute("--name", "n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")
	assert.Equal(t, 1, exitCode(err))
	assert.NoDirExists(t, f.reports)
	assert.Nil(t, f.leanCalls(t))
}

func TestCLIMalformedParam(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.execute("--project", "Algo", "--name", "n", "--param", "symbol")
	require.Error(t, err)
	assert.ErrorIs(t, err, params.ErrMalformedParameter)
	assert.Contains(t, err.Error(), `"symbol"`)
	assert.NoDirExists(t, f.reports)
	assert.Nil(t, f.leanCalls(t))
}

func TestCLIMissingToken(t *testing.T) {
	f := newCLIFixture(t)
	t.Setenv(config.EnvAPIToken, "")

	_, err := f.execute("--project", "Algo", "--name", "n")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	assert.Contains(t, err.Error(), config.EnvAPIToken)
	assert.NoDirExists(t, f.reports)
	assert.Nil(t, f.leanCalls(t))
}

func TestCLIBacktestExitCodePropagates(t *testing.T) {
	f := newCLIFixture(t)
	t.Setenv("FAKE_LEAN_EXIT", "7")

	_, err := f.execute("--project", "Algo", "--name", "n")
	require.Error(t, err)
	assert.Equal(t, 7, exitCode(err))
	assert.NoFileExists(t, filepath.Join(f.runDir("Algo", "n"), archive.SummaryFile))
}

func TestCLIWritesMetricsFile(t *testing.T) {
	f := newCLIFixture(t)
	metricsFile := filepath.Join(f.dir, "cloud_backtest.prom")

	_, err := f.execute("--project", "Algo", "--name", "n", "--metrics-file", metricsFile)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cloud_backtest_runs_total{status="success"}`)
}

func TestCLIIgnoresCredentialsInConfigFile(t *testing.T) {
	f := newCLIFixture(t)
	t.Setenv(config.EnvUserID, "")
	t.Setenv(config.EnvAPIToken, "")
	t.Setenv("CLOUD_BACKTEST_CREDENTIALS_API_TOKEN", "prefixed")

	configFile := filepath.Join(f.dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("credentials:\n  user_id: \"999\"\n  api_token: plaintext-on-disk\n"), 0o600))

	_, err := f.execute("--config", configFile, "--project", "Algo", "--name", "n")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	assert.NoDirExists(t, f.reports)
	assert.Nil(t, f.leanCalls(t))
}

func TestCLIRejectsEscapingName(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.execute("--project", "Algo", "--name", "../../../outside")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a relative path")
	assert.NoDirExists(t, f.reports)
	assert.Nil(t, f.leanCalls(t))
}
