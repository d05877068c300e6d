// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

// vmObjectNames lists mutex/device object names commonly created by
// virtualization and sandboxing tooling.
var vmObjectNames = []string{
	"vboxservice", "vboxtray", "vmwaretray", "vmwareuser", "sbiedll", "\\\\.\\VBoxMiniRdrDN",
}

// ShouldDenyObjectName reports whether a mutex/device-file create or open
// on name should fail.
func ShouldDenyObjectName(enabled bool, hideList []string, name string) bool {
	if !enabled {
		return false
	}
	return containsAny(name, append(append([]string(nil), vmObjectNames...), hideList...))
}

// EmitObjectCreate applies [ShouldDenyObjectName] and publishes the
// os-objects anti-evasion event when the object is denied.
func EmitObjectCreate(e Emitter, enabled bool, hideList []string, function, name string) (deny bool) {
	deny = ShouldDenyObjectName(enabled, hideList, name)
	if deny {
		e.Emit("anti_evasion_os_objects", map[string]any{"function": function, "name": name, "denied": true})
	}
	return deny
}
