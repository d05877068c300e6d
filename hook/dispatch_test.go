// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"testing"

	"github.com/loonaro/sandbox/telemetry"
)

type collectingSink struct {
	events []Event
}

func (s *collectingSink) Emit(ev Event) { s.events = append(s.events, ev) }

func TestCallArgsArgOutOfRangeReturnsZero(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{1, 2, 3}, Argc: 2}
	if call.Arg(0) != 1 || call.Arg(1) != 2 {
		t.Fatalf("unexpected in-range values: %v, %v", call.Arg(0), call.Arg(1))
	}
	if call.Arg(2) != 0 || call.Arg(-1) != 0 {
		t.Fatalf("expected zero for out-of-range indices")
	}
}

func TestInstalledHookDispatchCallsOriginalInterpretsAndEmits(t *testing.T) {
	sink := &collectingSink{}
	h := &installedHook{
		name: "TestFunc",
		interpreter: func(name string, call CallArgs) Event {
			return Event{Name: name, Fields: map[string]any{"ret": call.Ret, "a0": call.Arg(0)}}
		},
		sink:   sink,
		logger: telemetry.DefaultSLogger(),
		original: func(args [6]uintptr, argc int) uintptr {
			return args[0] + 1
		},
	}

	result := h.dispatch([6]uintptr{41}, 1)
	if result != 42 {
		t.Fatalf("got %d, want 42 (dispatch must return the original's result unchanged)", result)
	}
	if len(sink.events) != 1 {
		t.Fatalf("got %d events, want 1", len(sink.events))
	}
	if sink.events[0].Fields["ret"] != uintptr(42) || sink.events[0].Fields["a0"] != uintptr(41) {
		t.Fatalf("unexpected event fields: %+v", sink.events[0].Fields)
	}
}

func TestInstalledHookDispatchRecoversPanicInInterpreter(t *testing.T) {
	sink := &collectingSink{}
	h := &installedHook{
		name: "PanicFunc",
		interpreter: func(name string, call CallArgs) Event {
			panic("boom")
		},
		sink:     sink,
		logger:   telemetry.DefaultSLogger(),
		original: func(args [6]uintptr, argc int) uintptr { return 7 },
	}

	result := h.dispatch([6]uintptr{}, 0)
	// A recovered panic leaves the named return at its last assigned
	// value, which dispatch sets before invoking the interpreter.
	if result != 7 {
		t.Fatalf("got %d, want 7", result)
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected no event published after panic, got %+v", sink.events)
	}
}

func TestInstalledHookDisableNoopWithoutPatcher(t *testing.T) {
	h := &installedHook{}
	if err := h.Disable(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
