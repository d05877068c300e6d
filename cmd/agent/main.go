// SPDX-License-Identifier: GPL-3.0-or-later

// Command agent runs inside the guest: it dials the collector over
// mutual TLS, launches the submitted binary, accepts local IPC
// connections from the injected hook library, drives the kernel-event
// producer, and drains everything onto the authenticated transport.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/loonaro/sandbox/collector"
	"github.com/loonaro/sandbox/egress"
	"github.com/loonaro/sandbox/ipc"
	"github.com/loonaro/sandbox/telemetry"
	"github.com/loonaro/sandbox/tracing"
	"github.com/loonaro/sandbox/transport"
	"github.com/loonaro/sandbox/wire"
)

// ipcSocketPath is the local channel path the injected hook library
// dials. [ipc.Server] binds it as a Unix domain socket (see
// ipc/server.go's doc comment); this module targets the guest as the
// eventual deployment but develops and tests against that same
// implementation.
var ipcSocketPath = filepath.Join(os.TempDir(), "loonaro-hook.sock")

func main() {
	var monitorIP string

	root := &cobra.Command{
		Use:   "agent",
		Short: "In-guest agent: transport, hook IPC, and kernel-event collection",
	}
	root.PersistentFlags().StringVar(&monitorIP, "ip", "", "collector IP to verify in the server certificate (overrides agent_config.json's monitor_ip when set)")

	runCmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Launch the submitted binary and begin the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dll, _ := cmd.Flags().GetBool("dll")
			return run(args[0], dll, monitorIP)
		},
	}
	runCmd.Flags().Bool("dll", false, "target is a DLL to load via rundll32 rather than run directly")

	root.AddCommand(runCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(targetPath string, dll bool, monitorIPOverride string) error {
	logger := telemetry.DefaultSLogger()

	cfgPath := filepath.Join(filepath.Dir(targetPath), "agent_config.json")
	cfgBytes, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("agent: read agent config: %w", err)
	}
	var cfg collector.AgentConfig
	if err := json.Unmarshal(cfgBytes, &cfg); err != nil {
		return fmt.Errorf("agent: decode agent config: %w", err)
	}

	monitorIP := cfg.MonitorIP
	if monitorIPOverride != "" {
		monitorIP = monitorIPOverride
	}

	pki := &transport.PKI{
		CACertPEM:     []byte(cfg.CACertPEM),
		ClientCertPEM: []byte(cfg.ClientCertPEM),
		ClientKeyPEM:  []byte(cfg.ClientKeyPEM),
	}
	tlsConfig, err := transport.ClientTLSConfig(pki, monitorIP)
	if err != nil {
		return fmt.Errorf("agent: build client TLS config: %w", err)
	}

	duration := time.Duration(cfg.DurationSecond) * time.Second
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelDeadline := context.WithTimeout(ctx, duration)
	defer cancelDeadline()

	ip, err := netip.ParseAddr(monitorIP)
	if err != nil {
		return fmt.Errorf("agent: parse monitor ip: %w", err)
	}
	addrPort := netip.AddrPortFrom(ip, cfg.MonitorPort)

	connectFn := transport.NewConnectFunc(transport.NewConfig(), "tcp", logger)
	rawConn, err := connectFn.Call(ctx, addrPort)
	if err != nil {
		return fmt.Errorf("agent: dial collector: %w", err)
	}
	conn := tls.Client(rawConn, tlsConfig)
	if err := conn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("agent: TLS handshake: %w", err)
	}
	defer conn.Close()

	queue := egress.NewQueue(egress.DefaultCapacity, logger)
	drainDone := make(chan error, 1)
	go func() { drainDone <- queue.Drain(ctx, conn) }()

	ipcServer := ipc.NewServer(ipcSocketPath,
		func(h ipc.Handshake) ipc.HookConfig { return defaultHookConfig() },
		func(ctx context.Context, pid int, ev ipc.EventEnvelope) { forwardIPCEvent(queue, pid, ev) },
		logger,
	)
	go ipcServer.Serve(ctx)

	source := tracing.NewWindowsEventSource("loonaro-session", nil, []string{
		"process", "file", "registry", "network", "dns",
	})
	producer := tracing.NewProducer(source, queue, logger)
	go producer.Run(ctx, duration)

	cmd := launchTarget(ctx, targetPath, dll)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("agent: launch target: %w", err)
	}

	// ctx.Done() firing (the normal duration-elapsed path) races queue.Drain
	// observing the same ctx and closing the queue on return, so on that
	// path wait for drainDone too before acting — a write to the queue
	// after Drain has closed it panics, and conn itself may also need
	// Drain to have stopped using it first.
	select {
	case <-ctx.Done():
		if err := <-drainDone; err != nil {
			logger.Info("agentEgressError", slog.Any("err", err))
		}
	case err := <-drainDone:
		if err != nil {
			logger.Info("agentEgressError", slog.Any("err", err))
		}
	}

	_ = cmd.Process.Kill()
	if _, err := conn.Write(wire.EncodeTracingFinishedMsg(0)); err != nil {
		logger.Info("agentFinishWriteError", slog.Any("err", err))
	}
	return nil
}

func launchTarget(ctx context.Context, targetPath string, dll bool) *exec.Cmd {
	if dll {
		return exec.CommandContext(ctx, "rundll32.exe", targetPath)
	}
	return exec.CommandContext(ctx, targetPath)
}

// defaultHookConfig installs every hook category with the anti-evasion
// bundle enabled; the submission loop has no per-job policy surface in
// this module (the policy-script evaluator is a declared Non-goal).
func defaultHookConfig() ipc.HookConfig {
	return ipc.HookConfig{
		Categories: []string{"process", "memory", "network", "crypto", "generic"},
		AntiEvasion: ipc.AntiEvasionConfig{
			Filesystem: true,
			Registry:   true,
			OSQueries:  true,
			OSObjects:  true,
			UI:         true,
			OSFeatures: true,
			Processes:  true,
			Network:    true,
			CPU:        true,
			Hardware:   true,
			Firmware:   true,
			Human:      true,
		},
	}
}

// forwardIPCEvent reframes a hook event received over the local IPC
// channel onto the authenticated transport.
func forwardIPCEvent(queue *egress.Queue, pid int, ev ipc.EventEnvelope) {
	header := wire.EventHeader{
		Discriminator: discriminatorForEventType(ev.EventType),
		Timestamp:     uint64(time.Now().UnixNano()),
		PID:           uint32(pid),
	}
	payload := []byte(ev.Fields)
	frame := wire.EncodeEventHeaderMsg(header, uint32(len(payload)))
	queue.TrySend(egress.Message{Frame: frame, Payload: payload})
}

func discriminatorForEventType(eventType string) wire.Discriminator {
	switch eventType {
	case "CryptEncrypt", "CryptDecrypt", "CryptHashData", "BCryptEncrypt", "BCryptDecrypt":
		return wire.DiscriminatorCryptoOp
	case "memory-alloc", "VirtualAlloc", "VirtualAllocEx":
		return wire.DiscriminatorMemoryAlloc
	case "memory-write", "WriteProcessMemory":
		return wire.DiscriminatorMemoryWrite
	case "memory-protect", "VirtualProtect", "VirtualProtectEx":
		return wire.DiscriminatorMemoryProtect
	case "thread-create", "CreateRemoteThread":
		return wire.DiscriminatorThreadCreate
	case "thread-resume", "ResumeThread":
		return wire.DiscriminatorThreadResume
	case "thread-set-context", "SetThreadContext":
		return wire.DiscriminatorThreadSetContext
	case "InternetOpenUrlA", "InternetOpenUrlW", "HttpSendRequestA", "HttpSendRequestW":
		return wire.DiscriminatorHTTPRequest
	case "status":
		return wire.DiscriminatorStatus
	default:
		return wire.DiscriminatorGenericHook
	}
}
