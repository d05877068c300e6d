// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

// ShouldHideKey reports whether a key-open on keyPath should be told the
// key does not exist.
func ShouldHideKey(enabled bool, hideList []string, keyPath string) bool {
	if !enabled {
		return false
	}
	return containsAny(keyPath, indicatorList(hideList))
}

// EmitRegistryKeyOpen applies [ShouldHideKey] and, when it decides to
// hide the key, publishes the registry anti-evasion event.
func EmitRegistryKeyOpen(e Emitter, enabled bool, hideList []string, keyPath string) (hide bool) {
	hide = ShouldHideKey(enabled, hideList, keyPath)
	if hide {
		e.Emit("anti_evasion_registry", map[string]any{"key": keyPath, "hidden": true})
	}
	return hide
}
