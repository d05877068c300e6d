// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"log/slog"

	"github.com/loonaro/sandbox/hook/antievasion"
	"github.com/loonaro/sandbox/telemetry"
)

// MutableInterpreter is the anti-evasion counterpart to [Interpreter]: it
// may rewrite the arguments passed to the original function (Before,
// e.g. clamping a sleep duration), skip calling the original entirely
// (Before returning skip=true, e.g. denying a VM-named mutex), and/or
// override the value the caller ultimately sees or the bytes an output
// buffer pointer refers to (After). Every non-nil stage consults the
// shared [antievasion.Bundle] so the decision and its event are the same
// pure function the antievasion package already tests on its own.
type MutableInterpreter struct {
	Before func(bundle *antievasion.Bundle, args [6]uintptr, argc int) (newArgs [6]uintptr, skip bool, skipResult uintptr)
	After  func(bundle *antievasion.Bundle, call CallArgs) (override bool, result uintptr)
}

// installedMutableHook is [installedHook]'s anti-evasion counterpart: the
// one hook kind permitted to alter what the caller observes.
type installedMutableHook struct {
	address Address
	name    string
	bundle  *antievasion.Bundle
	apply   MutableInterpreter
	logger  telemetry.SLogger

	original originalCaller
	patcher  Patcher
	saved    []byte
}

var _ Trampoline = (*installedMutableHook)(nil)

func (h *installedMutableHook) Address() Address { return h.address }

func (h *installedMutableHook) Disable() error {
	if h.patcher == nil || h.saved == nil {
		return nil
	}
	return h.patcher.Restore(h.address, h.saved)
}

func (h *installedMutableHook) dispatch(args [6]uintptr, argc int) (result uintptr) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Info("hookAntiEvasionDetourPanicRecovered",
				slog.String("hook", h.name),
				slog.Any("panic", r),
			)
		}
	}()

	callArgs := args
	if h.apply.Before != nil {
		rewritten, skip, skipResult := h.apply.Before(h.bundle, args, argc)
		if skip {
			return skipResult
		}
		callArgs = rewritten
	}

	result = h.original(callArgs, argc)

	if h.apply.After != nil {
		call := CallArgs{Args: callArgs, Argc: argc, Ret: result}
		if override, newResult := h.apply.After(h.bundle, call); override {
			return newResult
		}
	}
	return result
}
