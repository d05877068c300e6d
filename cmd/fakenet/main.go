// SPDX-License-Identifier: GPL-3.0-or-later

// Command fakenet runs the DNS and HTTP responders inside the isolation
// boundary, sharing the event bus and file logger.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/loonaro/sandbox/fakenet"
	"github.com/loonaro/sandbox/telemetry"
)

func main() {
	var (
		dnsAddr   string
		httpAddr  string
		logDir    string
		defaultIP string
	)

	cmd := &cobra.Command{
		Use:   "fakenet",
		Short: "Run the fake-network DNS and HTTP responders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFakenet(dnsAddr, httpAddr, logDir, defaultIP)
		},
	}
	cmd.Flags().StringVar(&dnsAddr, "dns-addr", "0.0.0.0:53", "UDP bind address for the DNS responder")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "0.0.0.0:80", "TCP bind address for the HTTP responder")
	cmd.Flags().StringVar(&logDir, "log-dir", ".", "directory for fakenet_<date>.jsonl")
	cmd.Flags().StringVar(&defaultIP, "default-ip", "127.0.0.1", "IP returned for A queries matching no rule")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runFakenet(dnsAddr, httpAddr, logDir, defaultIP string) error {
	logger := telemetry.DefaultSLogger()

	fileLogger := fakenet.NewLogger(logDir)
	defer fileLogger.Close()
	bus := fakenet.NewBus(fileLogger)

	rules := fakenet.NewRuleSet()

	dns := fakenet.NewDNSService(fakenet.DNSConfig{
		BindAddr:  dnsAddr,
		DefaultIP: defaultIP,
		Rules:     rules,
		Bus:       bus,
		Logger:    logger,
	})
	http := fakenet.NewHTTPService(fakenet.HTTPConfig{
		BindAddr: httpAddr,
		Rules:    rules,
		Bus:      bus,
		Logger:   logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- dns.ListenAndServe(ctx) }()
	go func() { errCh <- http.ListenAndServe(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
