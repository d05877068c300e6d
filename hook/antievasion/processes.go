// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

// ShouldHideProcess reports whether imageName should be skipped from a
// process-list enumeration: it matches a built-in VM/analysis indicator
// or an entry of hideList.
func ShouldHideProcess(enabled bool, hideList []string, imageName string) bool {
	if !enabled {
		return false
	}
	return containsAny(imageName, indicatorList(hideList))
}

// FilterProcessList removes every entry [ShouldHideProcess] says to hide,
// preserving order, and returns the names that were removed.
func FilterProcessList(enabled bool, hideList []string, images []string) (kept []string, hidden []string) {
	for _, img := range images {
		if ShouldHideProcess(enabled, hideList, img) {
			hidden = append(hidden, img)
			continue
		}
		kept = append(kept, img)
	}
	return kept, hidden
}

// EmitProcessEnumeration applies [FilterProcessList] and publishes one
// processes anti-evasion event per hidden entry.
func EmitProcessEnumeration(e Emitter, enabled bool, hideList []string, images []string) []string {
	kept, hidden := FilterProcessList(enabled, hideList, images)
	for _, name := range hidden {
		e.Emit("anti_evasion_processes", map[string]any{"image_name": name, "hidden": true})
	}
	return kept
}
