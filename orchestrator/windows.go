// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/loonaro/sandbox/telemetry"
)

// sandboxStartupScript and sandboxDescriptorTemplate mirror the guest
// bootstrap and isolation-container descriptor the Rust orchestrator's
// WindowsSandboxProvider writes (providers/windows.rs): a PowerShell
// logon command and a Windows Sandbox .wsb mapping staging in read-write
// and running the bootstrap on logon.
const sandboxStartupScript = `$ErrorActionPreference = "Stop"
cd C:\Users\WDAGUtilityAccount\Desktop\loonaro\box_config
Start-Sleep -Seconds 2
./agent.exe
`

const sandboxDescriptorTemplate = `<Configuration>
  <VGpu>Enable</VGpu>
  <Networking>Enable</Networking>
  <MappedFolders>
    <MappedFolder>
      <HostFolder>%s</HostFolder>
      <SandboxFolder>C:\Users\WDAGUtilityAccount\Desktop\loonaro\box_config</SandboxFolder>
      <ReadOnly>false</ReadOnly>
    </MappedFolder>
  </MappedFolders>
  <LogonCommand>
    <Command>powershell.exe -ExecutionPolicy Bypass -File C:\Users\WDAGUtilityAccount\Desktop\loonaro\box_config\sandbox-startup.ps1</Command>
  </LogonCommand>
</Configuration>
`

// sandboxHandle wraps the collector child process behind a mutex so it
// can be killed from Cleanup even though AnalysisContext is otherwise
// passed around by value/shared reference.
type sandboxHandle struct {
	mu   sync.Mutex
	proc *os.Process
}

// WindowsSandboxProvider starts one ephemeral Windows Sandbox instance
// per submission, running the collector as a child process and the
// in-guest agent inside the container. It is the only [Provider]
// implementation this module ships.
type WindowsSandboxProvider struct {
	// CollectorBinary is the `cmd/collector` executable to spawn.
	CollectorBinary string

	// AgentBinary is the in-guest agent executable copied into staging.
	AgentBinary string

	// StagingBase roots every session's staging directory.
	StagingBase string

	// MooseURL and MooseKey are passed to the collector child via flags.
	MooseURL string
	MooseKey string

	// SandboxBinary launches the isolation container; defaults to
	// "WindowsSandbox.exe" on PATH when empty.
	SandboxBinary string

	Logger telemetry.SLogger
}

func (p *WindowsSandboxProvider) Name() string { return "Windows Sandbox" }

// StartAnalysis implements [Provider]. It mirrors
// providers/windows.rs's start_analysis: create the session directory,
// spawn the collector with a dynamic port, wait for agent_config.json,
// stage the submission and agent binary, write the bootstrap script and
// .wsb descriptor, then launch the container.
func (p *WindowsSandboxProvider) StartAnalysis(ctx context.Context, sub Submission, jobID string) (*AnalysisContext, error) {
	logger := p.Logger
	if logger == nil {
		logger = telemetry.DefaultSLogger()
	}

	dir, err := createSessionDir(p.StagingBase, jobID)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, p.CollectorBinary,
		"--session-id", jobID,
		"--output-dir", dir,
		"--port", "0",
		"--moose-url", p.MooseURL,
		"--moose-key", p.MooseKey,
		"--duration", strconv.FormatUint(sub.DurationSeconds, 10),
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("orchestrator: spawn collector: %w", err)
	}

	if err := waitForAgentConfig(ctx, dir); err != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return nil, err
	}

	if err := copyFile(sub.FilePath, filepath.Join(dir, sub.FileName)); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("orchestrator: stage submission: %w", err)
	}

	agentDest := filepath.Join(dir, "agent.exe")
	if p.AgentBinary == "" {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("orchestrator: no agent binary configured")
	}
	if err := copyFile(p.AgentBinary, agentDest); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("orchestrator: stage agent binary: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "sandbox-startup.ps1"), []byte(sandboxStartupScript), 0o755); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("orchestrator: write startup script: %w", err)
	}

	wsbPath := filepath.Join(dir, "loonaro.wsb")
	wsbContent := fmt.Sprintf(sandboxDescriptorTemplate, dir)
	if err := os.WriteFile(wsbPath, []byte(wsbContent), 0o644); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("orchestrator: write sandbox descriptor: %w", err)
	}

	sandboxBinary := p.SandboxBinary
	if sandboxBinary == "" {
		sandboxBinary = "WindowsSandbox.exe"
	}
	logger.Info("orchestratorLaunchingSandbox", "jobId", jobID, "wsb", wsbPath)
	launchCmd := exec.Command(sandboxBinary, wsbPath)
	if err := launchCmd.Start(); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("orchestrator: launch sandbox: %w", err)
	}

	return &AnalysisContext{
		JobID:        jobID,
		SessionDir:   dir,
		AgentAddress: "127.0.0.1",
		handle:       &sandboxHandle{proc: cmd.Process},
	}, nil
}

// Cleanup implements [Provider]: kill the collector child, wait on it,
// and retain the staging directory for post-analysis.
func (p *WindowsSandboxProvider) Cleanup(ctx context.Context, ac *AnalysisContext) error {
	handle, ok := ac.handle.(*sandboxHandle)
	if !ok {
		return fmt.Errorf("orchestrator: cleanup: invalid handle for job %s", ac.JobID)
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	if handle.proc == nil {
		return nil
	}
	if err := handle.proc.Kill(); err != nil {
		return fmt.Errorf("orchestrator: kill collector process: %w", err)
	}
	_, _ = handle.proc.Wait()
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
