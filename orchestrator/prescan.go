// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loonaro/sandbox/collector"
)

// PrescanResult is the outcome of scanning a submission's raw bytes
// before a session starts. Its severity and match count are logged as
// orchestratorPrescanResult; the job's CREATED lifecycle event carries
// only the file name and sha256, not this result.
type PrescanResult struct {
	Matches  []collector.YaraMatch
	Severity collector.Severity
}

// YaraScanner scans a submission's raw bytes in memory, before any
// session directory exists. This is distinct from [collector.Scanner],
// which scans a post-session drops directory on disk; the two run at
// different points in a job's life against different inputs.
type YaraScanner interface {
	ScanBuffer(ctx context.Context, data []byte, fileName string) (*PrescanResult, error)
}

// CLIYaraScanner implements [YaraScanner] by shelling out to the same
// `yara` binary [collector.Scanner] does, against a temporary file,
// since the `yara` CLI only scans files and directories, not buffers.
//
// No Go YARA binding is present in the retrieval pack this module was
// built from (see DESIGN.md for the standard-library justification).
type CLIYaraScanner struct {
	scanner *collector.Scanner
}

// NewCLIYaraScanner returns a [*CLIYaraScanner] using rulesPath as its
// ruleset.
func NewCLIYaraScanner(rulesPath string) *CLIYaraScanner {
	return &CLIYaraScanner{scanner: collector.NewScanner(rulesPath)}
}

// ScanBuffer writes data to a temporary file under dir and scans it.
func (s *CLIYaraScanner) ScanBuffer(ctx context.Context, data []byte, fileName string) (*PrescanResult, error) {
	dir, err := os.MkdirTemp("", "loonaro-prescan-*")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create prescan tempdir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, sanitizeFileName(fileName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("orchestrator: write prescan tempfile: %w", err)
	}

	result, err := s.scanner.ScanDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	return &PrescanResult{Matches: result.Matches, Severity: result.Severity}, nil
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "submission.bin"
	}
	return name
}
