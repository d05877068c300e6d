// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateSessionDirMakesNestedPath(t *testing.T) {
	base := t.TempDir()
	dir, err := createSessionDir(base, "job-1")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "job-1"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestWaitForAgentConfigReturnsImmediatelyIfAlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent_config.json"), []byte("{}"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, waitForAgentConfig(ctx, dir))
}

func TestWaitForAgentConfigObservesLateWrite(t *testing.T) {
	dir := t.TempDir()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "agent_config.json"), []byte("{}"), 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, waitForAgentConfig(ctx, dir))
}

func TestWaitForAgentConfigTimesOutWhenNeverWritten(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := waitForAgentConfig(ctx, dir)
	require.Error(t, err)
}

func TestWaitForAgentConfigRespectsContextCancellation(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := waitForAgentConfig(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
}
