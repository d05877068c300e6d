// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import "strings"

// defaultVMIndicators lists path/name substrings commonly left behind by
// virtualization and analysis tooling. Configurations extend this via
// [Config.HideList]; this list is the built-in floor.
var defaultVMIndicators = []string{
	"vbox", "vmware", "qemu", "virtualbox", "sandboxie", "wireshark",
	"procmon", "fiddler", "ida", "x64dbg", "ollydbg",
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func indicatorList(hideList []string) []string {
	return append(append([]string(nil), defaultVMIndicators...), hideList...)
}

// ShouldHidePath reports whether an attribute query on path should be
// told the path does not exist.
func ShouldHidePath(enabled bool, hideList []string, path string) bool {
	if !enabled {
		return false
	}
	return containsAny(path, indicatorList(hideList))
}

// EmitFileAttributeQuery applies [ShouldHidePath] and, when it decides to
// hide the path, publishes the filesystem anti-evasion event.
func EmitFileAttributeQuery(e Emitter, enabled bool, hideList []string, path string) (hide bool) {
	hide = ShouldHidePath(enabled, hideList, path)
	if hide {
		e.Emit("anti_evasion_filesystem", map[string]any{"path": path, "hidden": true})
	}
	return hide
}
