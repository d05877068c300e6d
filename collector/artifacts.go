// SPDX-License-Identifier: GPL-3.0-or-later

package collector

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Manifest is written as `<staging>/artifact_manifest.json` once a
// session finalizes.
type Manifest struct {
	SessionID string             `json:"session_id"`
	Files     []ArtifactFileInfo `json:"files"`
}

// ArtifactFileInfo describes one materialized artifact.
type ArtifactFileInfo struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// ArtifactCollector tracks dropped files and memory dumps for a single
// session, rooted at the session staging directory, and finalizes them
// into a manifest once the session ends.
//
// A tracked file is recorded by path through [ArtifactCollector.TrackFile]
// ([ArtifactCollector.SaveMemoryDump] tracks each dump it writes; the
// collector server does not track files named by file-create
// observations); [ArtifactCollector.Finalize] hashes
// and sizes whatever each tracked path contains at that point, which is
// the "final version" of files that were written to incrementally over
// the session.
type ArtifactCollector struct {
	sessionID string
	dropsDir  string

	mu      sync.Mutex
	tracked map[string]struct{}
}

// NewArtifactCollector returns an [*ArtifactCollector] rooted at
// stagingDir. The drops subdirectory is created lazily on first use.
func NewArtifactCollector(sessionID, stagingDir string) *ArtifactCollector {
	return &ArtifactCollector{
		sessionID: sessionID,
		dropsDir:  filepath.Join(stagingDir, "drops"),
		tracked:   make(map[string]struct{}),
	}
}

// TrackFile records path as an artifact to materialize at finalization.
// Safe for concurrent use.
func (c *ArtifactCollector) TrackFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracked[path] = struct{}{}
}

// ensureDropsDir creates the drops directory on first use.
func (c *ArtifactCollector) ensureDropsDir() error {
	return os.MkdirAll(c.dropsDir, 0o755)
}

// SaveMemoryDump persists a MemoryDump control message's trailing payload
// under drops/ as `mem_<base>_<size>.bin`, and tracks the resulting path
// as an artifact.
func (c *ArtifactCollector) SaveMemoryDump(base, size uint64, payload []byte) (string, error) {
	if err := c.ensureDropsDir(); err != nil {
		return "", fmt.Errorf("collector: create drops dir: %w", err)
	}
	name := fmt.Sprintf("mem_%x_%x.bin", base, size)
	path := filepath.Join(c.dropsDir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("collector: write memory dump: %w", err)
	}
	c.TrackFile(path)
	return path, nil
}

// Finalize materializes the final version of every tracked file (hash and
// size as they stand right now) and writes the artifact manifest to
// `<stagingDir>/artifact_manifest.json`.
//
// A tracked path that no longer exists (e.g. a dropped file the malware
// itself deleted) is skipped rather than failing the whole finalization.
func (c *ArtifactCollector) Finalize(stagingDir string) (*Manifest, error) {
	c.mu.Lock()
	paths := make([]string, 0, len(c.tracked))
	for p := range c.tracked {
		paths = append(paths, p)
	}
	c.mu.Unlock()

	manifest := &Manifest{SessionID: c.sessionID}
	for _, p := range paths {
		info, err := hashFile(p)
		if err != nil {
			continue
		}
		manifest.Files = append(manifest.Files, info)
	}

	buf, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("collector: marshal artifact manifest: %w", err)
	}
	manifestPath := filepath.Join(stagingDir, "artifact_manifest.json")
	if err := os.WriteFile(manifestPath, buf, 0o644); err != nil {
		return nil, fmt.Errorf("collector: write artifact manifest: %w", err)
	}
	return manifest, nil
}

func hashFile(path string) (ArtifactFileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ArtifactFileInfo{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return ArtifactFileInfo{}, err
	}
	return ArtifactFileInfo{
		Path:   path,
		Size:   n,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// DropsDir returns the session's drops directory, for callers (like the
// YARA scan step) that operate on the directory as a whole rather than on
// individually tracked files.
func (c *ArtifactCollector) DropsDir() string {
	return c.dropsDir
}
