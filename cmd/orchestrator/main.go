// SPDX-License-Identifier: GPL-3.0-or-later

// Command orchestrator accepts submissions over HTTP, allocates a job,
// and drives one [orchestrator.Orchestrator] submission per upload.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/loonaro/sandbox/orchestrator"
	"github.com/loonaro/sandbox/telemetry"
)

func main() {
	var (
		port          int
		stagingDir    string
		monitorBin    string
		agentBin      string
		mooseURL      string
		mooseKey      string
		rulesPath     string
		sandboxBinary string
	)

	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Accept submissions and drive sandbox sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrchestrator(port, stagingDir, monitorBin, agentBin, mooseURL, mooseKey, rulesPath, sandboxBinary)
		},
	}
	cmd.Flags().IntVar(&port, "port", envInt("PORT", 5000), "HTTP listen port")
	cmd.Flags().StringVar(&stagingDir, "staging-dir", envOr("STAGING_DIR", "./staging"), "staging directory root")
	cmd.Flags().StringVar(&monitorBin, "monitor-bin-path", envOr("MONITOR_BIN_PATH", "./collector.exe"), "collector binary to spawn per session")
	cmd.Flags().StringVar(&agentBin, "agent-bin-path", "./agent.exe", "in-guest agent binary to stage")
	cmd.Flags().StringVar(&mooseURL, "moose-url", envOr("MOOSE_URL", "http://localhost:4000"), "external event store base URL")
	cmd.Flags().StringVar(&mooseKey, "moose-key", os.Getenv("MOOSE_KEY"), "external event store API key")
	cmd.Flags().StringVar(&rulesPath, "rules", os.Getenv("POLICIES_DIR"), "YARA rules file for the pre-scan")
	cmd.Flags().StringVar(&sandboxBinary, "sandbox-binary", "WindowsSandbox.exe", "isolation container launcher")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runOrchestrator(port int, stagingDir, monitorBin, agentBin, mooseURL, mooseKey, rulesPath, sandboxBinary string) error {
	logger := telemetry.DefaultSLogger()

	provider := &orchestrator.WindowsSandboxProvider{
		CollectorBinary: monitorBin,
		AgentBinary:     agentBin,
		StagingBase:     stagingDir,
		MooseURL:        mooseURL,
		MooseKey:        mooseKey,
		SandboxBinary:   sandboxBinary,
		Logger:          logger,
	}

	var scanner orchestrator.YaraScanner
	if rulesPath != "" {
		scanner = orchestrator.NewCLIYaraScanner(rulesPath)
	}

	orch := orchestrator.New(orchestrator.Config{
		StagingDir: stagingDir,
		MooseURL:   mooseURL,
		MooseKey:   mooseKey,
		Provider:   provider,
		Logger:     logger,
	}, scanner)

	mux := http.NewServeMux()
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		handleSubmit(w, r, orch, stagingDir, logger)
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("orchestratorListening", slog.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

// handleSubmit mirrors api/handlers.rs's submit_job: accept a multipart
// "file" field, hash it, hand it to the orchestrator, and reply
// immediately with {status: "queued", file, sha256} while the session runs
// in the background. The job id is allocated inside Submit and is not
// part of the reply.
func handleSubmit(w http.ResponseWriter, r *http.Request, orch *orchestrator.Orchestrator, stagingDir string, logger telemetry.SLogger) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file field found", http.StatusBadRequest)
		return
	}
	defer file.Close()

	durationSeconds := uint64(60)
	if v := r.FormValue("duration_seconds"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			durationSeconds = parsed
		}
	}

	tempPath, sha, err := stageUpload(stagingDir, header, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sub := orchestrator.Submission{
		FilePath:        tempPath,
		FileName:        header.Filename,
		DurationSeconds: durationSeconds,
	}

	go func() {
		jobID, err := orch.Submit(context.Background(), sub)
		if err != nil {
			logger.Info("orchestratorSubmissionError", slog.String("jobId", jobID), slog.Any("err", err))
		}
	}()

	fmt.Fprintf(w, `{"status":"queued","file":%q,"sha256":%q}`, header.Filename, sha)
}

func stageUpload(stagingDir string, header *multipart.FileHeader, file multipart.File) (path, sha256hex string, err error) {
	uploadsDir := filepath.Join(stagingDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return "", "", fmt.Errorf("orchestrator: create uploads dir: %w", err)
	}
	dest := filepath.Join(uploadsDir, header.Filename)
	out, err := os.Create(dest)
	if err != nil {
		return "", "", fmt.Errorf("orchestrator: create upload file: %w", err)
	}
	defer out.Close()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), file); err != nil {
		return "", "", fmt.Errorf("orchestrator: write upload file: %w", err)
	}
	return dest, hex.EncodeToString(h.Sum(nil)), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
