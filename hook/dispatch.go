// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"log/slog"

	"github.com/loonaro/sandbox/telemetry"
)

// CallArgs is the common representation every category's [Interpreter]
// works from: up to six uintptr-width arguments and the value the
// original function returned.
type CallArgs struct {
	Args [6]uintptr
	Argc int
	Ret  uintptr
}

// Arg returns the i'th argument, or 0 if i >= Argc.
func (c CallArgs) Arg(i int) uintptr {
	if i < 0 || i >= c.Argc {
		return 0
	}
	return c.Args[i]
}

// Interpreter turns one completed call into an [Event]. Interpreters are
// pure with respect to call: they read it and the resolved function name
// and return the event to publish; they never request a different return
// value.
type Interpreter func(name string, call CallArgs) Event

// originalCaller invokes the function the detour replaced, with the
// given arguments, and returns its result. On Windows this is
// syscall.SyscallN against the resolved address; see install_windows.go.
type originalCaller func(args [6]uintptr, argc int) uintptr

// installedHook is the bookkeeping kept per hook a [Library] installs: a
// [Trampoline] that can disable itself, plus enough context for
// [installedHook.dispatch] to run the detour contract.
type installedHook struct {
	address     Address
	name        string
	category    Category
	interpreter Interpreter
	sink        Sink
	logger      telemetry.SLogger
	original    originalCaller

	patcher Patcher
	saved   []byte
}

var _ Trampoline = (*installedHook)(nil)

func (h *installedHook) Address() Address { return h.address }

func (h *installedHook) Disable() error {
	if h.patcher == nil || h.saved == nil {
		return nil
	}
	return h.patcher.Restore(h.address, h.saved)
}

// dispatch is the synchronous body every detour runs: call the original, observe the return, emit a
// typed event, return the original return value unchanged. Panics are
// recovered because "panics inside detours are unacceptable":
// hooks run on caller threads and an unrecovered panic there would crash
// the monitored process.
func (h *installedHook) dispatch(args [6]uintptr, argc int) (result uintptr) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Info("hookDetourPanicRecovered",
				slog.String("hook", h.name),
				slog.Any("panic", r),
			)
		}
	}()

	result = h.original(args, argc)

	call := CallArgs{Args: args, Argc: argc, Ret: result}
	ev := h.interpreter(h.name, call)
	h.sink.Emit(ev)
	return result
}
