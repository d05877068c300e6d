// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"testing"

	"github.com/loonaro/sandbox/hook/antievasion"
	"github.com/loonaro/sandbox/telemetry"
)

type recordingAntiEvasionEmitter struct {
	calls []string
}

func (e *recordingAntiEvasionEmitter) Emit(kind string, fields map[string]any) {
	e.calls = append(e.calls, kind)
}

func TestInstalledMutableHookDispatchBeforeRewritesArgs(t *testing.T) {
	emitter := &recordingAntiEvasionEmitter{}
	bundle := antievasion.NewBundle(emitter, antievasion.Config{
		Timing: antievasion.TimingConfig{SkipEnabled: true, ThresholdMs: 100},
	}, telemetry.DefaultSLogger())

	var observedArg uintptr
	h := &installedMutableHook{
		name:   "Sleep",
		bundle: bundle,
		logger: telemetry.DefaultSLogger(),
		apply: MutableInterpreter{
			Before: func(b *antievasion.Bundle, args [6]uintptr, argc int) ([6]uintptr, bool, uintptr) {
				actual := b.Sleep("Sleep", uint64(args[0]))
				args[0] = uintptr(actual)
				return args, false, 0
			},
		},
		original: func(args [6]uintptr, argc int) uintptr {
			observedArg = args[0]
			return 0
		},
	}

	h.dispatch([6]uintptr{60000}, 1)
	if observedArg != 100 {
		t.Fatalf("got original called with %d, want clamped 100", observedArg)
	}
	if len(emitter.calls) != 1 || emitter.calls[0] != "timing" {
		t.Fatalf("unexpected emitted events: %v", emitter.calls)
	}
}

func TestInstalledMutableHookDispatchBeforeSkipsOriginal(t *testing.T) {
	bundle := antievasion.NewBundle(&recordingAntiEvasionEmitter{}, antievasion.Config{}, telemetry.DefaultSLogger())
	originalCalled := false
	h := &installedMutableHook{
		name:   "CreateMutexW",
		bundle: bundle,
		logger: telemetry.DefaultSLogger(),
		apply: MutableInterpreter{
			Before: func(b *antievasion.Bundle, args [6]uintptr, argc int) ([6]uintptr, bool, uintptr) {
				return args, true, 0
			},
		},
		original: func(args [6]uintptr, argc int) uintptr {
			originalCalled = true
			return 99
		},
	}

	result := h.dispatch([6]uintptr{}, 3)
	if originalCalled {
		t.Fatal("original must not be called when Before skips")
	}
	if result != 0 {
		t.Fatalf("got %d, want the Before-supplied skip result 0", result)
	}
}

func TestInstalledMutableHookDispatchAfterOverridesResult(t *testing.T) {
	bundle := antievasion.NewBundle(&recordingAntiEvasionEmitter{}, antievasion.Config{}, telemetry.DefaultSLogger())
	h := &installedMutableHook{
		name:   "GetFileAttributesW",
		bundle: bundle,
		logger: telemetry.DefaultSLogger(),
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				return true, 0xFFFFFFFF
			},
		},
		original: func(args [6]uintptr, argc int) uintptr { return 0x20 },
	}

	result := h.dispatch([6]uintptr{}, 1)
	if result != 0xFFFFFFFF {
		t.Fatalf("got %#x, want overridden 0xFFFFFFFF", result)
	}
}

func TestInstalledMutableHookDispatchRecoversPanic(t *testing.T) {
	bundle := antievasion.NewBundle(&recordingAntiEvasionEmitter{}, antievasion.Config{}, telemetry.DefaultSLogger())
	h := &installedMutableHook{
		name:   "Panics",
		bundle: bundle,
		logger: telemetry.DefaultSLogger(),
		apply: MutableInterpreter{
			Before: func(b *antievasion.Bundle, args [6]uintptr, argc int) ([6]uintptr, bool, uintptr) {
				panic("boom")
			},
		},
		original: func(args [6]uintptr, argc int) uintptr { return 1 },
	}

	// Must not panic out of the test.
	_ = h.dispatch([6]uintptr{}, 0)
}
