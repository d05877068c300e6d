// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "github.com/loonaro/sandbox/wire"

// memoryInterpreter builds the {process-handle, base, size, protect-flags}
// event shape shared by the alloc/write/protect memory hooks.
//
// Argument positions follow the catalog entries in category.go:
// VirtualAllocEx(hProcess, lpAddress, dwSize, flAllocationType, flProtect),
// WriteProcessMemory(hProcess, lpBaseAddress, lpBuffer, nSize, *written),
// VirtualProtectEx(hProcess, lpAddress, dwSize, flNewProtect).
func memoryInterpreter(name string, call CallArgs) Event {
	fields := map[string]any{
		"process_handle": call.Arg(0),
		"base":           call.Arg(1),
	}
	switch name {
	case "VirtualAllocEx":
		fields["size"] = call.Arg(2)
		fields["protect_flags"] = call.Arg(4)
	case "WriteProcessMemory":
		fields["size"] = call.Arg(3)
	case "VirtualProtectEx":
		fields["size"] = call.Arg(2)
		fields["protect_flags"] = call.Arg(3)
	}
	return Event{Discriminator: memoryDiscriminator(name), Name: name, Fields: fields}
}

func memoryDiscriminator(name string) wire.Discriminator {
	switch name {
	case "VirtualAllocEx":
		return wire.DiscriminatorMemoryAlloc
	case "WriteProcessMemory":
		return wire.DiscriminatorMemoryWrite
	default:
		return wire.DiscriminatorMemoryProtect
	}
}
