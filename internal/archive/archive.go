// Package archive writes the on-disk record of a cloud backtest submission.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Artifact file names inside a run directory.
const (
	ParamsFile   = "params.json"
	MetadataFile = "meta.json"
	CommandFile  = "command.txt"
	SummaryFile  = "summary.md"
)

// DateLayout names the per-day directory.
const DateLayout = "2006-01-02"

// DefaultRoot is where run directories are created when no root is configured.
const DefaultRoot = "reports/backtests"

// Metadata records who ran what and when.
type Metadata struct {
	Project      string    `json:"project"`
	Name         string    `json:"name"`
	TimestampUTC string    `json:"timestamp_utc"`
	RunID        uuid.UUID `json:"run_id"`
	Push         bool      `json:"push"`
}

// NewMetadata stamps a run started at now.
func NewMetadata(project, name string, push bool, now time.Time) Metadata {
	return Metadata{
		Project:      project,
		Name:         name,
		TimestampUTC: Timestamp(now),
		RunID:        uuid.New(),
		Push:         push,
	}
}

// Timestamp formats t as RFC 3339 in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Writer creates run directories under a root and writes artifacts into them.
type Writer struct {
	root string
}

// NewWriter creates a writer rooted at root.
func NewWriter(root string) *Writer {
	if root == "" {
		root = DefaultRoot
	}
	return &Writer{root: root}
}

// Root returns the archive root.
func (w *Writer) Root() string {
	return w.root
}

// Location returns <root>/<UTC date>/<project>/<name>. It depends only on its
// arguments, so repeated runs on the same day share a directory.
func (w *Writer) Location(project, name string, now time.Time) string {
	return filepath.Join(w.root, now.UTC().Format(DateLayout), project, name)
}

// Provision creates dir and any missing parents. Existing directories are fine.
func (w *Writer) Provision(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// WriteParams writes the parameters as indented JSON.
func (w *Writer) WriteParams(dir string, params json.Marshaler) error {
	return writeJSON(filepath.Join(dir, ParamsFile), params)
}

// WriteMetadata writes the run metadata as indented JSON.
func (w *Writer) WriteMetadata(dir string, meta Metadata) error {
	return writeJSON(filepath.Join(dir, MetadataFile), meta)
}

// WriteCommand records the command line about to run so it can be repeated by hand.
func (w *Writer) WriteCommand(dir string, commandLine string) error {
	return writeFile(filepath.Join(dir, CommandFile), []byte(commandLine+"\n"))
}

func writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
