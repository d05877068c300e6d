// SPDX-License-Identifier: GPL-3.0-or-later

package collector

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loonaro/sandbox/telemetry"
	"github.com/loonaro/sandbox/transport"
	"github.com/loonaro/sandbox/wire"
)

// recordingEventStoreServer is a plain HTTP handler, served by an
// [httptest.Server] on loopback, that counts forwarded MalwareEvent
// POSTs, so the end-to-end session test exercises the framing and
// finalize logic without the production HTTP/2 transport (event-store
// requests are covered separately in eventstore_test.go).
type recordingEventStoreServer struct {
	mu     sync.Mutex
	events int
}

func (s *recordingEventStoreServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "MalwareEvent") {
			s.mu.Lock()
			s.events++
			s.mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	})
}

func (s *recordingEventStoreServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

func TestServerDrainsSessionPersistsDumpsAndForwardsEvents(t *testing.T) {
	pki, err := transport.IssuePKI("127.0.0.1")
	require.NoError(t, err)

	recorder := &recordingEventStoreServer{}
	storeSrv := httptest.NewServer(recorder.handler())
	defer storeSrv.Close()

	eventStore := NewEventStoreClient(storeSrv.URL, "test-key", telemetry.DefaultSLogger())
	eventStore.httpClient = storeSrv.Client()

	stagingDir := t.TempDir()
	srv := &Server{
		Addr:       "127.0.0.1:0",
		SessionID:  "session-1",
		PKI:        pki,
		StagingDir: stagingDir,
		EventStore: eventStore,
		Logger:     telemetry.DefaultSLogger(),
	}

	addr, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()

	clientTLSConfig, err := transport.ClientTLSConfig(pki, "127.0.0.1")
	require.NoError(t, err)

	rawConn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	conn := tls.Client(rawConn, clientTLSConfig)

	encoder := wire.NewEncoder(conn)
	require.NoError(t, encoder.WriteEventHeader(wire.EventHeader{
		Discriminator: wire.DiscriminatorProcessCreate,
		PID:           1234,
	}, []byte("payload")))
	require.NoError(t, encoder.WriteMemoryDump(wire.MemoryDumpHeader{
		ProcessID: 1234,
		Base:      0x400000,
		Size:      0x1000,
	}, []byte{0xde, 0xad, 0xbe, 0xef}))
	require.NoError(t, encoder.WriteTracingFinished(1))
	conn.Close()

	require.Eventually(t, func() bool {
		return recorder.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	manifestPath := filepath.Join(stagingDir, "artifact_manifest.json")
	require.Eventually(t, func() bool {
		_, err := os.Stat(manifestPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	dumpPath := filepath.Join(stagingDir, "drops", "mem_400000_1000.bin")
	contents, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, contents)
}
