// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"fmt"
	"log/slog"

	"github.com/loonaro/sandbox/hook/antievasion"
	"github.com/loonaro/sandbox/ipc"
	"github.com/loonaro/sandbox/telemetry"
)

// Library is the in-process hook producer: once loaded into
// the target, it dials the agent's local IPC channel, receives a
// [ipc.HookConfig], and installs inline trampolines accordingly.
type Library struct {
	Resolver Resolver
	Patcher  Patcher
	Logger   telemetry.SLogger

	client  *ipc.Client
	sink    Sink
	hooks   installed
	antiEv  *antievasion.Bundle
}

// NewLibrary returns a [*Library] using the platform's real resolver and
// patcher (Windows) or the unsupported stand-ins elsewhere.
func NewLibrary(logger telemetry.SLogger) *Library {
	if logger == nil {
		logger = telemetry.DefaultSLogger()
	}
	return &Library{Resolver: newResolver(), Patcher: newPatcher(), Logger: logger}
}

// Attach dials the agent's named channel at socketPath, performs the
// handshake, and installs every hook the returned [ipc.HookConfig]
// names. Hook-install failures are logged and skipped; other hooks
// proceed.
func (l *Library) Attach(socketPath string, pid int, processName string) error {
	client, cfg, err := ipc.Dial(socketPath, ipc.Handshake{PID: pid, ProcessName: processName})
	if err != nil {
		return fmt.Errorf("hook: dialing agent: %w", err)
	}
	l.client = client
	l.sink = SinkFunc(func(ev Event) {
		if sendErr := l.client.SendEvent(ev.Name, ev.Fields); sendErr != nil {
			l.Logger.Info("hookSendEventError", slog.String("event", ev.Name), slog.Any("err", sendErr))
		}
	})

	for _, category := range cfg.Categories {
		l.installCategory(Category(category), cfg.SpecificHooks)
	}
	for _, spec := range cfg.GenericHooks {
		l.installGeneric(spec)
	}

	l.antiEv = antievasion.NewBundle(antievasionEmitter{l}, toAntiEvasionConfig(cfg.AntiEvasion), l.Logger)
	l.installAntiEvasion(l.antiEv)
	l.antiEv.Start()

	return nil
}

func (l *Library) installCategory(category Category, specific []string) {
	interpreter := interpreterFor(category)
	if interpreter == nil {
		return
	}
	for _, entry := range catalogFor(category, specific) {
		h, err := installDetour(l.Resolver, l.Patcher, entry, category, interpreter, l.sink, l.Logger)
		if err != nil {
			l.Logger.Info("hookInstallError",
				slog.String("category", string(category)),
				slog.String("function", entry.Function),
				slog.Any("err", err),
			)
			l.emitStatus(category, entry.Function, err)
			continue
		}
		l.hooks.add(h.address)
	}
}

func (l *Library) installGeneric(spec ipc.GenericHookSpec) {
	if spec.Arity < 0 || spec.Arity > 6 {
		l.Logger.Info("hookGenericArityOutOfRange", slog.Int("arity", spec.Arity))
		return
	}
	entry := catalogEntry{Library: spec.Library, Function: spec.Function, Arity: spec.Arity}
	h, err := installDetour(l.Resolver, l.Patcher, entry, CategoryGeneric, genericInterpreter(spec.Library), l.sink, l.Logger)
	if err != nil {
		l.Logger.Info("hookInstallError",
			slog.String("category", string(CategoryGeneric)),
			slog.String("function", entry.Function),
			slog.Any("err", err),
		)
		l.emitStatus(CategoryGeneric, entry.Function, err)
		return
	}
	l.hooks.add(h.address)
}

func (l *Library) emitStatus(category Category, function string, cause error) {
	l.sink.Emit(Event{
		Name: "status",
		Fields: map[string]any{
			"category": string(category),
			"function": function,
			"error":    cause.Error(),
		},
	})
}

// Detach disables every installed hook, stops the anti-evasion human
// simulator, and closes the IPC connection.
func (l *Library) Detach() error {
	l.hooks.disableAll()
	if l.antiEv != nil {
		l.antiEv.Stop()
	}
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

// interpreterFor returns the built-in interpreter for category, or nil
// for categories with no fixed catalog (generic, anti-evasion).
func interpreterFor(category Category) Interpreter {
	switch category {
	case CategoryMemory:
		return memoryInterpreter
	case CategoryProcess:
		return processInterpreter
	case CategoryNetwork:
		return networkInterpreter
	case CategoryCrypto:
		return cryptoInterpreter
	default:
		return nil
	}
}

// antievasionEmitter adapts [Sink] to [antievasion.Emitter] so the
// antievasion subpackage never needs to import hook (avoiding an import
// cycle, since hook imports antievasion to wire it in).
type antievasionEmitter struct {
	lib *Library
}

func (e antievasionEmitter) Emit(kind string, fields map[string]any) {
	e.lib.sink.Emit(Event{Name: kind, Fields: fields})
}

func toAntiEvasionConfig(cfg ipc.AntiEvasionConfig) antievasion.Config {
	return antievasion.Config{
		Timing: antievasion.TimingConfig{
			SkipEnabled:        cfg.Timing.SkipEnabled,
			ThresholdMs:        cfg.Timing.ThresholdMs,
			AccelerationFactor: cfg.Timing.AccelerationFactor,
		},
		Filesystem:  cfg.Filesystem,
		Registry:    cfg.Registry,
		OSQueries:   cfg.OSQueries,
		OSObjects:   cfg.OSObjects,
		UI:          cfg.UI,
		OSFeatures:  cfg.OSFeatures,
		Processes:   cfg.Processes,
		Network:     cfg.Network,
		CPU:         cfg.CPU,
		Hardware:    cfg.Hardware,
		Firmware:    cfg.Firmware,
		Human:       cfg.Human,
		SpoofedUser: cfg.SpoofedUser,
		SpoofedHost: cfg.SpoofedHost,
		HideList:    cfg.HideList,
	}
}
