//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/loonaro/sandbox/hook/antievasion"
	"github.com/loonaro/sandbox/telemetry"
)

// callOriginal returns an [originalCaller] that invokes addr directly via
// the raw syscall ABI, passing exactly argc of the six slots.
func callOriginal(addr Address) originalCaller {
	return func(args [6]uintptr, argc int) uintptr {
		r1, _, _ := syscall.SyscallN(uintptr(addr), args[:argc]...)
		return r1
	}
}

// dispatchFunc is the shape every installed detour's dispatch method
// takes: read exactly argc arguments and return the value the caller
// sees. [installedHook.dispatch] and [installedMutableHook.dispatch]
// both satisfy it.
type dispatchFunc func(args [6]uintptr, argc int) uintptr

// makeCallback returns a native-callable stub that, when the patched
// function is entered, runs dispatch with exactly arity arguments read
// off the caller's stack. windows.NewCallback requires a concrete
// parameter count per stub, hence one closure per arity.
func makeCallback(dispatch dispatchFunc, arity int) uintptr {
	switch arity {
	case 0:
		return windows.NewCallback(func() uintptr {
			return dispatch([6]uintptr{}, 0)
		})
	case 1:
		return windows.NewCallback(func(a0 uintptr) uintptr {
			return dispatch([6]uintptr{a0}, 1)
		})
	case 2:
		return windows.NewCallback(func(a0, a1 uintptr) uintptr {
			return dispatch([6]uintptr{a0, a1}, 2)
		})
	case 3:
		return windows.NewCallback(func(a0, a1, a2 uintptr) uintptr {
			return dispatch([6]uintptr{a0, a1, a2}, 3)
		})
	case 4:
		return windows.NewCallback(func(a0, a1, a2, a3 uintptr) uintptr {
			return dispatch([6]uintptr{a0, a1, a2, a3}, 4)
		})
	case 5:
		return windows.NewCallback(func(a0, a1, a2, a3, a4 uintptr) uintptr {
			return dispatch([6]uintptr{a0, a1, a2, a3, a4}, 5)
		})
	default:
		return windows.NewCallback(func(a0, a1, a2, a3, a4, a5 uintptr) uintptr {
			return dispatch([6]uintptr{a0, a1, a2, a3, a4, a5}, 6)
		})
	}
}

// installDetour resolves entry, installs an inline jump to a native
// trampoline driving h.dispatch, and registers the resulting
// [*installedHook].
func installDetour(resolver Resolver, patcher Patcher, entry catalogEntry, category Category, interpreter Interpreter, sink Sink, logger telemetry.SLogger) (*installedHook, error) {
	addr, err := resolver.Resolve(entry.Library, entry.Function)
	if err != nil {
		return nil, err
	}

	h := &installedHook{
		name:        entry.Function,
		category:    category,
		interpreter: interpreter,
		sink:        sink,
		logger:      logger,
		patcher:     patcher,
		original:    callOriginal(addr),
	}

	detourAddr := Address(makeCallback(h.dispatch, entry.Arity))
	saved, err := patcher.Install(addr, detourAddr)
	if err != nil {
		return nil, err
	}
	h.address = addr
	h.saved = saved
	registerTrampoline(addr, h)
	return h, nil
}

// installMutableDetour is [installDetour]'s anti-evasion counterpart: the
// installed hook may override the value the caller observes.
func installMutableDetour(resolver Resolver, patcher Patcher, entry catalogEntry, apply MutableInterpreter, bundle *antievasion.Bundle, logger telemetry.SLogger) (*installedMutableHook, error) {
	addr, err := resolver.Resolve(entry.Library, entry.Function)
	if err != nil {
		return nil, err
	}

	h := &installedMutableHook{
		name:     entry.Function,
		bundle:   bundle,
		apply:    apply,
		logger:   logger,
		patcher:  patcher,
		original: callOriginal(addr),
	}

	detourAddr := Address(makeCallback(h.dispatch, entry.Arity))
	saved, err := patcher.Install(addr, detourAddr)
	if err != nil {
		return nil, err
	}
	h.address = addr
	h.saved = saved
	registerTrampoline(addr, h)
	return h, nil
}
