// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// agentConfigTimeout and agentConfigPollInterval bound the
// collector-generated agent-config handshake.
const (
	agentConfigTimeout      = 15 * time.Second
	agentConfigPollInterval = 250 * time.Millisecond
)

// createSessionDir makes the staging directory for one session.
func createSessionDir(stagingDir, jobID string) (string, error) {
	dir := sessionDir(stagingDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("orchestrator: create session dir: %w", err)
	}
	return dir, nil
}

// waitForAgentConfig blocks until <sessionDir>/agent_config.json exists,
// the timeout elapses, or ctx is done. It watches the directory with
// fsnotify and also polls on agentConfigPollInterval, since the file may
// already exist by the time the watch is installed, or the collector may
// write it via a rename fsnotify's Create event won't always surface the
// same way across platforms.
func waitForAgentConfig(ctx context.Context, sessionDir string) error {
	configPath := filepath.Join(sessionDir, "agent_config.json")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("orchestrator: create staging watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(sessionDir); err != nil {
		return fmt.Errorf("orchestrator: watch staging dir: %w", err)
	}

	deadline := time.NewTimer(agentConfigTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(agentConfigPollInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if ok && filepath.Clean(ev.Name) == filepath.Clean(configPath) {
				if _, err := os.Stat(configPath); err == nil {
					return nil
				}
			}
		case <-watcher.Errors:
			// Fall through to the poll tick; a watcher error doesn't
			// invalidate the poll-based fallback.
		case <-ticker.C:
			if _, err := os.Stat(configPath); err == nil {
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("orchestrator: timed out waiting for agent config in %s", sessionDir)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
