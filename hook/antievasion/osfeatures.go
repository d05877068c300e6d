// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

// OverridePhysicalMemory returns configured when it is set and exceeds
// the real reported total.
func OverridePhysicalMemory(enabled bool, configured, actual uint64) (uint64, bool) {
	if !enabled || configured == 0 || configured <= actual {
		return actual, false
	}
	return configured, true
}

// EmitPhysicalMemoryQuery applies [OverridePhysicalMemory] and publishes
// the os-features anti-evasion event when a substitution was made.
func EmitPhysicalMemoryQuery(e Emitter, enabled bool, configured, actual uint64) (uint64, bool) {
	out, ok := OverridePhysicalMemory(enabled, configured, actual)
	if ok {
		e.Emit("anti_evasion_os_features", map[string]any{
			"function": "GlobalMemoryStatusEx",
			"actual":   actual,
			"reported": out,
		})
	}
	return out, ok
}
