// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"testing"

	"github.com/loonaro/sandbox/wire"
)

func TestProcessInterpreterCreateRemoteThread(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x10, 0, 0, 0x401000, 0, 0x01}, Argc: 6}
	ev := processInterpreter("CreateRemoteThread", call)
	if ev.Discriminator != wire.DiscriminatorThreadCreate {
		t.Fatalf("got discriminator %v", ev.Discriminator)
	}
	if ev.Fields["target_process"] != uintptr(0x10) || ev.Fields["start_address"] != uintptr(0x401000) {
		t.Fatalf("unexpected fields: %+v", ev.Fields)
	}
}

func TestProcessInterpreterResumeThread(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x20}, Argc: 1, Ret: 1}
	ev := processInterpreter("ResumeThread", call)
	if ev.Discriminator != wire.DiscriminatorThreadResume {
		t.Fatalf("got discriminator %v", ev.Discriminator)
	}
	if ev.Fields["thread"] != uintptr(0x20) {
		t.Fatalf("unexpected thread field: %+v", ev.Fields)
	}
}

func TestProcessInterpreterSetThreadContext(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x30, 0x99}, Argc: 2}
	ev := processInterpreter("SetThreadContext", call)
	if ev.Discriminator != wire.DiscriminatorThreadSetContext {
		t.Fatalf("got discriminator %v", ev.Discriminator)
	}
	if ev.Fields["thread"] != uintptr(0x30) {
		t.Fatalf("unexpected thread field: %+v", ev.Fields)
	}
}
