// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "github.com/loonaro/sandbox/hook/antievasion"

// Win32 status codes the anti-evasion detours below substitute for a
// real result.
const (
	invalidFileAttributes = 0xFFFFFFFF // INVALID_FILE_ATTRIBUTES
	errorFileNotFound     = 2          // ERROR_FILE_NOT_FOUND
)

// memoryStatusExTotalPhysOffset is the byte offset of ullTotalPhys
// within MEMORYSTATUSEX on 64-bit Windows: dwLength(4) + dwMemoryLoad(4).
const memoryStatusExTotalPhysOffset = 8

// processEntry32ExeFileOffset is the approximate byte offset of
// szExeFile within PROCESSENTRY32W on 64-bit Windows. This is a
// heuristic like [registryHeaderSkipBytes] in the tracing package: a
// proper implementation would bind the full struct layout rather than
// skip to a fixed offset.
const processEntry32ExeFileOffset = 44

// adapterInfoAddressOffset is the approximate byte offset of the MAC
// Address field within IP_ADAPTER_INFO on 64-bit Windows. Heuristic, see
// [processEntry32ExeFileOffset].
const adapterInfoAddressOffset = 404

// systemFirmwareTableInfoClass is the SYSTEM_INFORMATION_CLASS value
// (SystemFirmwareTableInformation) NtQuerySystemInformation takes as its
// first argument when a caller uses it as the system-information variant
// of a firmware-table query.
const systemFirmwareTableInfoClass = 76

// systemFirmwareTableInfoHeaderLen is the fixed
// SYSTEM_FIRMWARE_TABLE_INFORMATION header (ProviderSignature, Action,
// TableID, TableBufferLength: four 4-byte fields) preceding its TableBuffer.
const systemFirmwareTableInfoHeaderLen = 16

// antiEvasionCatalogEntry pairs a hookable function with the
// [MutableInterpreter] that applies one anti-evasion sub-module to it.
type antiEvasionCatalogEntry struct {
	catalogEntry
	enabled func(cfg antievasion.Config) bool
	apply   MutableInterpreter
}

// antiEvasionCatalog is the built-in function list anti-evasion hooks
// target, one or more entries per sub-module.
var antiEvasionCatalog = []antiEvasionCatalogEntry{
	{
		catalogEntry: catalogEntry{"kernel32.dll", "Sleep", 1},
		enabled:      func(cfg antievasion.Config) bool { return cfg.Timing.SkipEnabled },
		apply: MutableInterpreter{
			Before: func(b *antievasion.Bundle, args [6]uintptr, argc int) ([6]uintptr, bool, uintptr) {
				actual := b.Sleep("Sleep", uint64(args[0]))
				args[0] = uintptr(actual)
				return args, false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"kernel32.dll", "GetFileAttributesW", 1},
		enabled:      func(cfg antievasion.Config) bool { return cfg.Filesystem },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				path := readUTF16StringAt(call.Arg(0))
				if b.FileAttributeQuery(path) {
					return true, invalidFileAttributes
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"advapi32.dll", "RegOpenKeyExW", 5},
		enabled:      func(cfg antievasion.Config) bool { return cfg.Registry },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				keyPath := readUTF16StringAt(call.Arg(1))
				if b.RegistryKeyOpen(keyPath) {
					return true, errorFileNotFound
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"advapi32.dll", "GetUserNameW", 2},
		enabled:      func(cfg antievasion.Config) bool { return cfg.OSQueries },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				if value, ok := b.OSQuery("GetUserNameW"); ok {
					writeUTF16StringAt(call.Arg(0), value)
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"kernel32.dll", "IsDebuggerPresent", 0},
		enabled:      func(cfg antievasion.Config) bool { return cfg.OSQueries },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				if _, ok := b.OSQuery("IsDebuggerPresent"); ok {
					return true, 0
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"kernel32.dll", "CreateMutexW", 3},
		enabled:      func(cfg antievasion.Config) bool { return cfg.OSObjects },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				name := readUTF16StringAt(call.Arg(2))
				if b.ObjectCreate("CreateMutexW", name) {
					return true, 0
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"user32.dll", "GetSystemMetrics", 1},
		enabled:      func(cfg antievasion.Config) bool { return cfg.UI },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				out, ok := b.ScreenMetricForIndex(int(call.Arg(0)), int(call.Ret))
				if !ok {
					return false, 0
				}
				return true, uintptr(out)
			},
		},
	},
	{
		catalogEntry: catalogEntry{"user32.dll", "FindWindowW", 2},
		enabled:      func(cfg antievasion.Config) bool { return cfg.UI },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				className := readUTF16StringAt(call.Arg(0))
				if b.WindowFind(className) {
					return true, 0
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"kernel32.dll", "GlobalMemoryStatusEx", 1},
		enabled:      func(cfg antievasion.Config) bool { return cfg.OSFeatures },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				buf := readBytesAt(call.Arg(0)+memoryStatusExTotalPhysOffset, 8)
				if len(buf) != 8 {
					return false, 0
				}
				actual := leUint64(buf)
				if reported, ok := b.PhysicalMemoryQuery(0, actual); ok {
					writeBytesAt(call.Arg(0)+memoryStatusExTotalPhysOffset, leBytes64(reported))
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"kernel32.dll", "Process32NextW", 2},
		enabled:      func(cfg antievasion.Config) bool { return cfg.Processes },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				imageName := readUTF16StringAt(call.Arg(1) + processEntry32ExeFileOffset)
				kept := b.ProcessEnumeration([]string{imageName})
				if len(kept) == 0 {
					// The entry is hidden; report FALSE so the caller's
					// enumeration ends. The thread's last-error value is not set.
					return true, 0
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"iphlpapi.dll", "GetAdaptersInfo", 2},
		enabled:      func(cfg antievasion.Config) bool { return cfg.Network },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				raw := readBytesAt(call.Arg(0)+adapterInfoAddressOffset, 6)
				if len(raw) != 6 {
					return false, 0
				}
				var mac [6]byte
				copy(mac[:], raw)
				scrubbed := b.AdapterEnumeration(mac)
				writeBytesAt(call.Arg(0)+adapterInfoAddressOffset, scrubbed[:])
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"kernel32.dll", "GetActiveProcessorCount", 1},
		enabled:      func(cfg antievasion.Config) bool { return cfg.CPU },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				if reported, ok := b.LogicalProcessorOverride(uint32(call.Ret)); ok {
					return true, uintptr(reported)
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"kernel32.dll", "DeviceIoControl", 6},
		enabled:      func(cfg antievasion.Config) bool { return cfg.Hardware },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				buf := readBytesAt(call.Arg(4), int(call.Arg(5)))
				if scrubbed, ok := b.StorageQuery(buf); ok {
					writeBytesAt(call.Arg(4), scrubbed)
				}
				return false, 0
			},
		},
	},
	{
		catalogEntry: catalogEntry{"kernel32.dll", "GetSystemFirmwareTable", 4},
		enabled:      func(cfg antievasion.Config) bool { return cfg.Firmware },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				buf := readBytesAt(call.Arg(2), int(call.Arg(3)))
				if scrubbed, ok := b.FirmwareQuery("GetSystemFirmwareTable", buf); ok {
					writeBytesAt(call.Arg(2), scrubbed)
				}
				return false, 0
			},
		},
	},
	{
		// NtQuerySystemInformation(SystemInformationClass, SystemInformation,
		// SystemInformationLength, ReturnLength) is the system-information
		// variant of a firmware-table query: malware reads the same SMBIOS
		// data through it when SystemFirmwareTableInformation is requested,
		// bypassing a GetSystemFirmwareTable-only hook.
		catalogEntry: catalogEntry{"ntdll.dll", "NtQuerySystemInformation", 4},
		enabled:      func(cfg antievasion.Config) bool { return cfg.Firmware },
		apply: MutableInterpreter{
			After: func(b *antievasion.Bundle, call CallArgs) (bool, uintptr) {
				if call.Arg(0) != systemFirmwareTableInfoClass {
					return false, 0
				}
				length := int(call.Arg(2))
				if length <= systemFirmwareTableInfoHeaderLen {
					return false, 0
				}
				tableOffset := call.Arg(1) + systemFirmwareTableInfoHeaderLen
				buf := readBytesAt(tableOffset, length-systemFirmwareTableInfoHeaderLen)
				if scrubbed, ok := b.FirmwareQuery("NtQuerySystemInformation", buf); ok {
					writeBytesAt(tableOffset, scrubbed)
				}
				return false, 0
			},
		},
	},
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func leBytes64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// installAntiEvasion installs every enabled anti-evasion catalog entry,
// using bundle as the shared decision-and-event source.
func (l *Library) installAntiEvasion(bundle *antievasion.Bundle) {
	cfg := bundle.Config()
	for _, entry := range antiEvasionCatalog {
		if !entry.enabled(cfg) {
			continue
		}
		h, err := installMutableDetour(l.Resolver, l.Patcher, entry.catalogEntry, entry.apply, bundle, l.Logger)
		if err != nil {
			l.emitStatus(CategoryAntiEvasion, entry.Function, err)
			continue
		}
		l.hooks.add(h.address)
	}
}
