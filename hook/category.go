// SPDX-License-Identifier: GPL-3.0-or-later

package hook

// Category names one of the built-in hook groups a [Library] can install
//. AntiEvasion hooks are installed through a separate path
// (see [Library.installAntiEvasion]) because, unlike every other
// category, they are permitted to alter the value the caller observes.
type Category string

const (
	CategoryMemory      Category = "memory"
	CategoryProcess     Category = "process"
	CategoryNetwork     Category = "network"
	CategoryCrypto      Category = "crypto"
	CategoryGeneric     Category = "generic"
	CategoryAntiEvasion Category = "anti_evasion"
)

// catalogEntry names one specific function a built-in category can hook,
// along with the arity dispatch needs to read the right number of
// arguments off the call.
// Arity is capped at six slots, same as the generic-hook family; for the
// handful of Win32 functions with more parameters, the trailing
// out-parameters are left unobserved.
type catalogEntry struct {
	Library  string
	Function string
	Arity    int
}

// catalog is the built-in function list for each non-generic category.
// It stands in for the enumerated set of system functions the library
// hooks; specific_hooks in [ipc.HookConfig] narrows it to a subset by
// function name.
var catalog = map[Category][]catalogEntry{
	CategoryMemory: {
		{"kernel32.dll", "VirtualAllocEx", 5},
		{"kernel32.dll", "WriteProcessMemory", 5},
		{"kernel32.dll", "VirtualProtectEx", 4},
	},
	CategoryProcess: {
		{"kernel32.dll", "CreateRemoteThread", 6},
		{"kernel32.dll", "ResumeThread", 1},
		{"kernel32.dll", "SetThreadContext", 2},
	},
	CategoryNetwork: {
		{"ws2_32.dll", "connect", 3},
		{"ws2_32.dll", "send", 4},
		{"ws2_32.dll", "recv", 4},
		{"winhttp.dll", "WinHttpOpen", 4},
	},
	CategoryCrypto: {
		{"advapi32.dll", "CryptEncrypt", 6},
		{"advapi32.dll", "CryptDecrypt", 5},
		{"advapi32.dll", "CryptHashData", 4},
		{"bcrypt.dll", "BCryptEncrypt", 6},
		{"bcrypt.dll", "BCryptDecrypt", 6},
	},
}

// catalogFor returns the entries to hook for category, narrowed to
// specific by function name when specific is non-empty.
func catalogFor(category Category, specific []string) []catalogEntry {
	all := catalog[category]
	if len(specific) == 0 {
		return all
	}
	want := make(map[string]bool, len(specific))
	for _, name := range specific {
		want[name] = true
	}
	out := make([]catalogEntry, 0, len(all))
	for _, entry := range all {
		if want[entry.Function] {
			out = append(out, entry)
		}
	}
	return out
}
