//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"github.com/loonaro/sandbox/hook/antievasion"
	"github.com/loonaro/sandbox/telemetry"
)

// installDetour on non-Windows platforms resolves entry with resolver and
// asks patcher to install target as its own detour; the original function
// is a stub that returns 0. With the default unsupported resolver and
// patcher (see resolver_other.go, patch_other.go) every install fails, and
// a [Library] surfaces this as a per-hook install failure, not a fatal one.
func installDetour(resolver Resolver, patcher Patcher, entry catalogEntry, category Category, interpreter Interpreter, sink Sink, logger telemetry.SLogger) (*installedHook, error) {
	addr, err := resolver.Resolve(entry.Library, entry.Function)
	if err != nil {
		return nil, err
	}
	saved, err := patcher.Install(addr, addr)
	if err != nil {
		return nil, err
	}
	h := &installedHook{
		address:     addr,
		name:        entry.Function,
		category:    category,
		interpreter: interpreter,
		sink:        sink,
		logger:      logger,
		patcher:     patcher,
		saved:       saved,
		original:    func(args [6]uintptr, argc int) uintptr { return 0 },
	}
	registerTrampoline(addr, h)
	return h, nil
}

// installMutableDetour on non-Windows platforms behaves as [installDetour]
// does: it succeeds only with a working resolver and patcher.
func installMutableDetour(resolver Resolver, patcher Patcher, entry catalogEntry, apply MutableInterpreter, bundle *antievasion.Bundle, logger telemetry.SLogger) (*installedMutableHook, error) {
	addr, err := resolver.Resolve(entry.Library, entry.Function)
	if err != nil {
		return nil, err
	}
	saved, err := patcher.Install(addr, addr)
	if err != nil {
		return nil, err
	}
	h := &installedMutableHook{
		address:  addr,
		name:     entry.Function,
		bundle:   bundle,
		apply:    apply,
		logger:   logger,
		patcher:  patcher,
		saved:    saved,
		original: func(args [6]uintptr, argc int) uintptr { return 0 },
	}
	registerTrampoline(addr, h)
	return h, nil
}
