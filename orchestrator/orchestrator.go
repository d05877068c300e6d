// SPDX-License-Identifier: GPL-3.0-or-later

// Package orchestrator drives one submission end to end: allocate a job
// id, YARA pre-scan the submitted bytes, stage a session directory, spawn
// the collector as a child process, wait for it to hand back an agent
// config, stage the guest bootstrap, launch the isolation container, and
// clean up once the submission duration elapses.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/loonaro/sandbox/collector"
	"github.com/loonaro/sandbox/telemetry"
)

// Submission is one analysis request: a binary plus how long to observe
// it for.
type Submission struct {
	FilePath        string
	FileName        string
	DurationSeconds uint64
}

// AnalysisContext is what a [Provider] hands back once it has started a
// session, and what [Provider.Cleanup] later tears down.
type AnalysisContext struct {
	JobID        string
	SessionDir   string
	AgentAddress string

	handle any
}

// Provider prepares and tears down one isolated analysis environment. The
// only implementation in this module is [*WindowsSandboxProvider]; the
// interface exists to keep StartAnalysis/Cleanup's contract explicit
// rather than to support swapping providers today.
type Provider interface {
	Name() string
	StartAnalysis(ctx context.Context, sub Submission, jobID string) (*AnalysisContext, error)
	Cleanup(ctx context.Context, ac *AnalysisContext) error
}

// Config configures one [Orchestrator].
type Config struct {
	StagingDir string
	MooseURL   string
	MooseKey   string
	Provider   Provider
	Logger     telemetry.SLogger
}

// Orchestrator runs submissions against a [Provider], reporting every
// lifecycle transition to the external event store.
type Orchestrator struct {
	cfg        Config
	eventStore *collector.EventStoreClient
	scanner    YaraScanner
}

// New returns an [*Orchestrator]. scanner may be nil to skip the
// pre-submission YARA scan; the submission is then only hashed.
func New(cfg Config, scanner YaraScanner) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.DefaultSLogger()
	}
	return &Orchestrator{
		cfg:        cfg,
		eventStore: collector.NewEventStoreClient(cfg.MooseURL, cfg.MooseKey, cfg.Logger),
		scanner:    scanner,
	}
}

// Submit runs sub to completion: allocate a job id, pre-scan, start the
// provider, sleep for the submission duration, then clean up. It returns
// once cleanup has run; callers that want submission to return
// immediately should invoke it from a goroutine, matching the
// fire-and-forget handoff a submission endpoint expects.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (jobID string, err error) {
	jobID = uuid.New().String()
	logger := o.cfg.Logger

	sha, scanErr := o.prescan(ctx, sub, jobID)
	if scanErr != nil {
		logger.Info("orchestratorPrescanError", slog.Any("err", scanErr))
	}

	o.postLifecycle(ctx, jobID, collector.LifecycleCreated,
		fmt.Sprintf("job received: file=%s sha256=%s", sub.FileName, sha))

	ac, err := o.cfg.Provider.StartAnalysis(ctx, sub, jobID)
	if err != nil {
		o.postLifecycle(ctx, jobID, collector.LifecycleFailed, err.Error())
		return jobID, fmt.Errorf("orchestrator: start analysis: %w", err)
	}

	logger.Info("orchestratorAnalysisStarted",
		slog.String("jobId", jobID), slog.String("agentAddress", ac.AgentAddress))

	select {
	case <-time.After(time.Duration(sub.DurationSeconds) * time.Second):
	case <-ctx.Done():
	}

	logger.Info("orchestratorAnalysisFinished", slog.String("jobId", jobID))
	if err := o.cfg.Provider.Cleanup(ctx, ac); err != nil {
		logger.Info("orchestratorCleanupError", slog.Any("err", err))
		o.postLifecycle(ctx, jobID, collector.LifecycleFailed, err.Error())
		return jobID, fmt.Errorf("orchestrator: cleanup: %w", err)
	}

	o.postLifecycle(ctx, jobID, collector.LifecycleFinished, "")
	return jobID, nil
}

func (o *Orchestrator) prescan(ctx context.Context, sub Submission, jobID string) (sha256hex string, err error) {
	f, err := os.Open(sub.FilePath)
	if err != nil {
		return "", fmt.Errorf("orchestrator: open submission: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("orchestrator: hash submission: %w", err)
	}
	sha256hex = hex.EncodeToString(h.Sum(nil))

	if o.scanner == nil {
		return sha256hex, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return sha256hex, err
	}
	buf, err := io.ReadAll(f)
	if err != nil {
		return sha256hex, err
	}
	result, err := o.scanner.ScanBuffer(ctx, buf, sub.FileName)
	if err != nil {
		return sha256hex, err
	}
	o.cfg.Logger.Info("orchestratorPrescanResult",
		slog.String("jobId", jobID),
		slog.String("severity", string(result.Severity)),
		slog.Int("matches", len(result.Matches)))
	return sha256hex, nil
}

// LifecycleEvent is the orchestrator's view of a lifecycle transition,
// carrying the human-readable message original_source/telemetry.rs's
// send_lifecycle attaches alongside state. It converts to
// [collector.JobLifecycleEvent] to reuse the already-wired event store
// client rather than duplicating its POST/logging path.
type LifecycleEvent struct {
	SessionID string
	State     collector.LifecycleState
	Message   string
	Timestamp time.Time
}

func (o *Orchestrator) postLifecycle(ctx context.Context, jobID string, state collector.LifecycleState, message string) {
	ev := LifecycleEvent{
		SessionID: jobID,
		State:     state,
		Message:   message,
		Timestamp: time.Now(),
	}
	jlc := collector.JobLifecycleEvent{
		SessionID: ev.SessionID,
		State:     ev.State,
		Detail:    ev.Message,
		Timestamp: ev.Timestamp,
	}
	if err := o.eventStore.PostJobLifecycleEvent(ctx, jlc); err != nil {
		o.cfg.Logger.Info("orchestratorLifecyclePostError", slog.Any("err", err), slog.String("state", string(state)))
	}
}

func sessionDir(stagingDir, jobID string) string {
	return filepath.Join(stagingDir, jobID)
}
