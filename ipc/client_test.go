// SPDX-License-Identifier: GPL-3.0-or-later

package ipc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientHandshakeAndEventRoundTrip(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "hook.sock")

	var gotEvents []EventEnvelope
	done := make(chan struct{}, 1)

	srv := NewServer(sockPath, func(h Handshake) HookConfig {
		require.Equal(t, 4242, h.PID)
		return HookConfig{Categories: []string{"crypto"}}
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

	client, cfg, err := Dial(sockPath, Handshake{PID: 4242, ProcessName: "malware.exe"})
	require.NoError(t, err)
	defer client.Close()
	require.Equal(t, []string{"crypto"}, cfg.Categories)

	require.NoError(t, client.SendEvent("crypto-op", map[string]any{
		"operation":  "CryptEncrypt",
		"input_size": 16,
		"success":    true,
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	require.Len(t, gotEvents, 1)
	require.Equal(t, "crypto-op", gotEvents[0].EventType)
}
