// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"testing"

	"github.com/loonaro/sandbox/wire"
)

func TestMemoryInterpreterVirtualAllocEx(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x10, 0x2000, 0x1000, 0x3000, 0x40}, Argc: 5}
	ev := memoryInterpreter("VirtualAllocEx", call)

	if ev.Discriminator != wire.DiscriminatorMemoryAlloc {
		t.Fatalf("got discriminator %v", ev.Discriminator)
	}
	if ev.Fields["process_handle"] != uintptr(0x10) || ev.Fields["base"] != uintptr(0x2000) {
		t.Fatalf("unexpected fields: %+v", ev.Fields)
	}
	if ev.Fields["size"] != uintptr(0x1000) || ev.Fields["protect_flags"] != uintptr(0x40) {
		t.Fatalf("unexpected fields: %+v", ev.Fields)
	}
}

func TestMemoryInterpreterWriteProcessMemory(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x10, 0x2000, 0x3000, 0x80}, Argc: 4}
	ev := memoryInterpreter("WriteProcessMemory", call)
	if ev.Discriminator != wire.DiscriminatorMemoryWrite {
		t.Fatalf("got discriminator %v", ev.Discriminator)
	}
	if ev.Fields["size"] != uintptr(0x80) {
		t.Fatalf("unexpected size: %+v", ev.Fields)
	}
}

func TestMemoryInterpreterVirtualProtectEx(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x10, 0x2000, 0x1000, 0x04}, Argc: 4}
	ev := memoryInterpreter("VirtualProtectEx", call)
	if ev.Discriminator != wire.DiscriminatorMemoryProtect {
		t.Fatalf("got discriminator %v", ev.Discriminator)
	}
	if ev.Fields["protect_flags"] != uintptr(0x04) {
		t.Fatalf("unexpected protect_flags: %+v", ev.Fields)
	}
}
