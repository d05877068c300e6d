// SPDX-License-Identifier: GPL-3.0-or-later

// Command collector is the host-side process the orchestrator spawns
// per session: it binds the session port, issues the session's mutual
// TLS material, writes the agent config document, and drains exactly one
// session before exiting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/loonaro/sandbox/collector"
	"github.com/loonaro/sandbox/telemetry"
	"github.com/loonaro/sandbox/transport"
)

func main() {
	var (
		sessionID string
		outputDir string
		port      int
		ip        string
		mooseURL  string
		mooseKey  string
		duration  uint64
		rulesPath string
	)

	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Terminate one analysis session's authenticated transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollector(sessionID, outputDir, ip, port, mooseURL, mooseKey, duration, rulesPath)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session identifier")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "staging directory to root artifacts under")
	cmd.Flags().IntVar(&port, "port", 0, "port to bind (0 for a dynamic port)")
	cmd.Flags().StringVar(&ip, "ip", "127.0.0.1", "bind address")
	cmd.Flags().StringVar(&mooseURL, "moose-url", os.Getenv("MOOSE_URL"), "external event store base URL")
	cmd.Flags().StringVar(&mooseKey, "moose-key", os.Getenv("MOOSE_KEY"), "external event store API key")
	cmd.Flags().Uint64Var(&duration, "duration", 60, "session duration in seconds")
	cmd.Flags().StringVar(&rulesPath, "rules", os.Getenv("POLICIES_DIR"), "YARA rules file for the post-session scan")
	cmd.MarkFlagRequired("session-id")
	cmd.MarkFlagRequired("output-dir")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCollector(sessionID, outputDir, ip string, port int, mooseURL, mooseKey string, duration uint64, rulesPath string) error {
	logger := telemetry.DefaultSLogger()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("collector: create staging dir: %w", err)
	}

	bindAddr := fmt.Sprintf("%s:%d", ip, port)
	pki, err := transport.IssuePKI(ip)
	if err != nil {
		return fmt.Errorf("collector: issue session PKI: %w", err)
	}

	var scanner *collector.Scanner
	if rulesPath != "" {
		scanner = collector.NewScanner(rulesPath)
	}

	srv := &collector.Server{
		Addr:       bindAddr,
		SessionID:  sessionID,
		PKI:        pki,
		StagingDir: outputDir,
		MonitorIP:  ip,
		Duration:   time.Duration(duration) * time.Second,
		EventStore: collector.NewEventStoreClient(mooseURL, mooseKey, logger),
		Scanner:    scanner,
		Logger:     logger,
	}

	if _, err := srv.Listen(); err != nil {
		return fmt.Errorf("collector: listen: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelDeadline := context.WithTimeout(ctx, time.Duration(duration)*time.Second+agentConfigGrace)
	defer cancelDeadline()

	return srv.Serve(ctx)
}

// agentConfigGrace extends the collector's own lifetime beyond the
// session duration so the in-flight TLS handshake and drain have time to
// finish after the agent's egress task observes the deadline and exits;
// the orchestrator's own cleanup is what actually
// kills this process once its sleep elapses.
const agentConfigGrace = 30 * time.Second
