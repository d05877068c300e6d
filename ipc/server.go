// SPDX-License-Identifier: GPL-3.0-or-later

package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"

	"github.com/loonaro/sandbox/telemetry"
)

// ConfigFunc returns the [HookConfig] to hand a connecting client,
// typically derived from the handshake's process name.
type ConfigFunc func(h Handshake) HookConfig

// EventFunc consumes one decoded event line. Implementations must not
// block the data path: forward to the egress queue's
// non-blocking TrySend, never to a blocking write.
type EventFunc func(ctx context.Context, pid int, ev EventEnvelope)

// Server accepts named-channel connections from the hook library and
// drives the handshake/config/events protocol on each.
//
// No named-pipe library is present in the retrieval pack this module was
// built from; on every platform the channel is a Unix domain socket at
// Path (see DESIGN.md for the standard-library justification).
type Server struct {
	Path       string
	ConfigFunc ConfigFunc
	EventFunc  EventFunc
	Logger     telemetry.SLogger
}

// NewServer returns a [*Server] listening at path once [Server.Serve] is
// called.
func NewServer(path string, cfgFn ConfigFunc, evFn EventFunc, logger telemetry.SLogger) *Server {
	if logger == nil {
		logger = telemetry.DefaultSLogger()
	}
	return &Server{Path: path, ConfigFunc: cfgFn, EventFunc: evFn, Logger: logger}
}

// Serve removes any stale socket file, binds the named channel, and
// accepts connections until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	os.Remove(s.Path)
	ln, err := net.Listen("unix", s.Path)
	if err != nil {
		return err
	}
	defer ln.Close()
	defer os.Remove(s.Path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		s.Logger.Info("ipcHandshakeReadError", slog.Any("err", err))
		return
	}
	var hs Handshake
	if err := json.Unmarshal(line, &hs); err != nil {
		s.Logger.Info("ipcHandshakeParseError", slog.Any("err", err))
		return
	}
	s.Logger.Info("ipcHandshake", slog.Int("pid", hs.PID), slog.String("processName", hs.ProcessName))

	cfg := s.ConfigFunc(hs)
	cfgLine, err := json.Marshal(cfg)
	if err != nil {
		s.Logger.Info("ipcConfigMarshalError", slog.Any("err", err))
		return
	}
	cfgLine = append(cfgLine, '\n')
	if _, err := conn.Write(cfgLine); err != nil {
		s.Logger.Info("ipcConfigWriteError", slog.Any("err", err))
		return
	}

	// Connection end on EOF in either direction is clean termination; any
	// malformed line is logged and skipped but does not close the channel.
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var ev EventEnvelope
			if jerr := json.Unmarshal(line, &ev); jerr != nil {
				s.Logger.Info("ipcEventParseError", slog.Any("err", jerr))
			} else {
				s.EventFunc(ctx, hs.PID, ev)
			}
		}
		if err != nil {
			return
		}
	}
}
