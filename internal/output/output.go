// Package output serializes a collection run and writes it to disk.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/danielolaszy/doc-issues/pkg/models"
)

const (
	// DirName is the directory created under the output root.
	DirName = "doc-issues"

	// FileName is the name of the written document.
	FileName = "doc-issues.json"
)

// document is the top-level shape of the output file.
type document struct {
	Metadata models.RunMetadata                  `json:"metadata"`
	Issues   map[string]models.ConsolidatedIssue `json:"issues"`
}

// Marshal renders the metadata and issues as indented JSON. Issue keys are
// sorted, so unchanged inputs give identical output apart from generated_at.
func Marshal(meta models.RunMetadata, issues map[string]models.ConsolidatedIssue) ([]byte, error) {
	if issues == nil {
		issues = map[string]models.ConsolidatedIssue{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(document{Metadata: meta, Issues: issues}); err != nil {
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}
	return buf.Bytes(), nil
}

// Writer writes the collected document below Root.
type Writer struct {
	Root string
}

// NewWriter creates a Writer for the given output root.
func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// Dir returns the directory the document is written to.
func (w *Writer) Dir() string {
	return filepath.Join(w.Root, DirName)
}

// Path returns the path of the document.
func (w *Writer) Path() string {
	return filepath.Join(w.Dir(), FileName)
}

// Clean removes any previous output and recreates the output directory.
func (w *Writer) Clean() error {
	dir := w.Dir()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove output directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	logging.Debug("output directory prepared", "path", dir)
	return nil
}

// Write serializes the run and writes it, returning the written path.
func (w *Writer) Write(meta models.RunMetadata, issues map[string]models.ConsolidatedIssue) (string, error) {
	data, err := Marshal(meta, issues)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.Dir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.Dir(), err)
	}

	path := w.Path()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logging.Info("output written", "path", path, "issues", len(issues))
	return path, nil
}
