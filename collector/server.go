// SPDX-License-Identifier: GPL-3.0-or-later

// Package collector implements the host-side endpoint that terminates
// the authenticated transport from the in-guest agent, persists
// artifacts, forwards decoded observations to the external event store,
// and finalizes a session with a YARA scan.
package collector

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/loonaro/sandbox/telemetry"
	"github.com/loonaro/sandbox/transport"
	"github.com/loonaro/sandbox/wire"
)

// AgentConfig is the document the collector writes to
// <staging>/agent_config.json once its session port is bound, for the
// orchestrator to copy into the guest and for the agent to read there.
type AgentConfig struct {
	MonitorIP      string `json:"monitor_ip"`
	MonitorPort    uint16 `json:"monitor_port"`
	CACertPEM      string `json:"ca_cert_pem"`
	ClientCertPEM  string `json:"client_cert_pem"`
	ClientKeyPEM   string `json:"client_key_pem"`
	DurationSecond uint64 `json:"duration_seconds"`
}

// WriteAgentConfig writes the agent-config document the orchestrator
// polls for, to <stagingDir>/agent_config.json.
func WriteAgentConfig(stagingDir, monitorIP string, monitorPort uint16, pki *transport.PKI, duration time.Duration) error {
	cfg := AgentConfig{
		MonitorIP:      monitorIP,
		MonitorPort:    monitorPort,
		CACertPEM:      string(pki.CACertPEM),
		ClientCertPEM:  string(pki.ClientCertPEM),
		ClientKeyPEM:   string(pki.ClientKeyPEM),
		DurationSecond: uint64(duration.Seconds()),
	}
	buf, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("collector: marshal agent config: %w", err)
	}
	path := filepath.Join(stagingDir, "agent_config.json")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("collector: write agent config: %w", err)
	}
	return nil
}

// CleanupFunc is invoked once a session's connection has been fully
// drained (EOF or TracingFinished), after artifacts are finalized. It is
// the orchestrator's hook for releasing process handles it owns for this
// session.
type CleanupFunc func(ctx context.Context, sessionID string)

// Server binds the session port and drives one session per accepted
// connection.
type Server struct {
	// Addr is the listen address, typically "127.0.0.1:0" to request a
	// dynamic port.
	Addr string

	// SessionID identifies this collector's session for logging and for
	// the events and lifecycle transitions it forwards.
	SessionID string

	// PKI supplies the mutual-TLS server configuration.
	PKI *transport.PKI

	// StagingDir is the session staging directory ArtifactCollector and
	// the YARA scan results are rooted at.
	StagingDir string

	// MonitorIP is the address the guest agent dials, written into
	// agent_config.json. Empty skips writing the document, which tests
	// that don't need it rely on.
	MonitorIP string

	// Duration is the session deadline, written into agent_config.json
	// for the guest agent's own bookkeeping.
	Duration time.Duration

	// EventStore forwards decoded observations and lifecycle
	// transitions.
	EventStore *EventStoreClient

	// Scanner runs the post-session YARA scan over drops/.
	Scanner *Scanner

	// Cleanup is invoked once the session's connection ends.
	Cleanup CleanupFunc

	Logger telemetry.SLogger

	listener net.Listener
}

// Listen binds s.Addr with mutual TLS and returns the bound address
// (letting callers read back the dynamic port for the agent config
// document). Call [Server.Serve] to start accepting.
func (s *Server) Listen() (string, error) {
	if s.Logger == nil {
		s.Logger = telemetry.DefaultSLogger()
	}
	tlsConfig, err := transport.ServerTLSConfig(s.PKI)
	if err != nil {
		return "", err
	}
	ln, err := tls.Listen("tcp", s.Addr, tlsConfig)
	if err != nil {
		return "", fmt.Errorf("collector: bind session port: %w", err)
	}
	s.listener = ln

	if s.MonitorIP != "" {
		_, portStr, err := net.SplitHostPort(ln.Addr().String())
		if err != nil {
			return "", fmt.Errorf("collector: parse bound address: %w", err)
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return "", fmt.Errorf("collector: parse bound port: %w", err)
		}
		if err := WriteAgentConfig(s.StagingDir, s.MonitorIP, uint16(port), s.PKI, s.Duration); err != nil {
			return "", err
		}
	}

	if s.EventStore != nil {
		ev := JobLifecycleEvent{SessionID: s.SessionID, State: LifecycleRunning, Timestamp: time.Now()}
		if err := s.EventStore.PostJobLifecycleEvent(context.Background(), ev); err != nil {
			s.Logger.Info("collectorLifecyclePostError", slog.Any("err", err))
		}
	}

	return ln.Addr().String(), nil
}

// Serve accepts connections until ctx is done. One session is expected
// per collector process lifetime, but the accept loop does not enforce
// that; it serves whatever connects.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}
	defer s.listener.Close()

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleSession(ctx, conn)
	}
}

func (s *Server) handleSession(ctx context.Context, rawConn net.Conn) {
	if tlsConn, ok := rawConn.(*tls.Conn); ok {
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			s.Logger.Info("collectorHandshakeError", slog.Any("err", err))
			rawConn.Close()
			return
		}
	}

	observe := transport.NewObserveConnFunc(transport.NewConfig(), s.Logger)
	watch := transport.NewCancelWatchFunc()

	conn, err := watch.Call(ctx, rawConn)
	if err != nil {
		rawConn.Close()
		return
	}
	conn, err = observe.Call(ctx, conn)
	if err != nil {
		conn.Close()
		return
	}
	defer conn.Close()

	artifacts := NewArtifactCollector(s.SessionID, s.StagingDir)
	count, err := s.drain(ctx, conn, artifacts)
	if err != nil && !errors.Is(err, io.EOF) {
		s.Logger.Info("collectorSessionError", slog.Any("err", err), slog.Uint64("eventsForwarded", count))
	}

	s.finalize(ctx, artifacts)

	if s.Cleanup != nil {
		s.Cleanup(ctx, s.SessionID)
	}
}

// drain decodes frames until EOF or TracingFinished, forwarding each
// decoded observation to the event store and persisting memory dumps.
func (s *Server) drain(ctx context.Context, conn net.Conn, artifacts *ArtifactCollector) (uint64, error) {
	decoder := wire.NewDecoder(conn)
	var forwarded uint64

	for {
		msg, payload, err := decoder.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return forwarded, nil
			}
			return forwarded, err
		}

		switch msg.Variant {
		case wire.VariantEventHeader:
			ev := MalwareEvent{SessionID: s.SessionID, Header: msg.Header, Payload: payload}
			if err := s.EventStore.PostMalwareEvent(ctx, ev); err != nil {
				s.Logger.Info("collectorForwardError", slog.Any("err", err))
			} else {
				forwarded++
			}

		case wire.VariantMemoryDump:
			if _, err := artifacts.SaveMemoryDump(msg.DumpHeader.Base, msg.DumpHeader.Size, payload); err != nil {
				s.Logger.Info("collectorMemoryDumpError", slog.Any("err", err))
			}

		case wire.VariantFakeNetEvent:
			// Carried on the same authenticated transport but forwarded
			// by the fake-network process's own logging path, not the
			// event store; nothing to do here beyond having read it off
			// the stream.

		case wire.VariantTracingFinished:
			return forwarded, nil
		}
	}
}

func (s *Server) finalize(ctx context.Context, artifacts *ArtifactCollector) {
	manifest, err := artifacts.Finalize(s.StagingDir)
	if err != nil {
		s.Logger.Info("collectorFinalizeError", slog.Any("err", err))
		return
	}

	var yaraResult *YaraResult
	if s.Scanner != nil {
		result, err := s.Scanner.ScanDirectory(ctx, artifacts.DropsDir())
		if err != nil {
			s.Logger.Info("collectorYaraError", slog.Any("err", err))
		} else {
			yaraResult = result
			if err := WriteResults(s.StagingDir, result); err != nil {
				s.Logger.Info("collectorYaraWriteError", slog.Any("err", err))
			}
		}
	}

	s.Logger.Info("collectorFinalizeDone",
		slog.Int("artifactsCollected", len(manifest.Files)),
		slog.String("severity", string(severityOrClean(yaraResult))),
	)
}

func severityOrClean(r *YaraResult) Severity {
	if r == nil {
		return SeverityClean
	}
	return r.Severity
}
