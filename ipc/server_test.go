// SPDX-License-Identifier: GPL-3.0-or-later

package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandshakeConfigAndEventFlow(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "hook.sock")

	var gotEvents []EventEnvelope
	done := make(chan struct{}, 4)

	srv := NewServer(sockPath, func(h Handshake) HookConfig {
		require.Equal(t, "malware.exe", h.ProcessName)
		return HookConfig{Categories: []string{"memory", "network"}}
	}, func(ctx context.Context, pid int, ev EventEnvelope) {
		gotEvents = append(gotEvents, ev)
		done <- struct{}{}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)
	require.Eventually(t, func() bool {
		_, err := net.Dial("unix", sockPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	hsLine, _ := json.Marshal(Handshake{PID: 123, ProcessName: "malware.exe"})
	_, err = conn.Write(append(hsLine, '\n'))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	cfgLine, err := reader.ReadBytes('\n')
	require.NoError(t, err)
	var cfg HookConfig
	require.NoError(t, json.Unmarshal(cfgLine, &cfg))
	require.Equal(t, []string{"memory", "network"}, cfg.Categories)

	evLine := []byte(`{"event_type":"memory-alloc","base":4096}` + "\n")
	_, err = conn.Write(evLine)
	require.NoError(t, err)

	// A malformed line must be logged and skipped, not close the channel.
	_, err = conn.Write([]byte("not json\n"))
	require.NoError(t, err)

	evLine2 := []byte(`{"event_type":"memory-write","size":16}` + "\n")
	_, err = conn.Write(evLine2)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first event")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second event")
	}

	require.Len(t, gotEvents, 2)
	require.Equal(t, "memory-alloc", gotEvents[0].EventType)
	require.Equal(t, "memory-write", gotEvents[1].EventType)
}
