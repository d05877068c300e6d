// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import "fmt"

// vmOUIs lists the first three MAC octets ("OUI") assigned to common
// hypervisor virtual NICs.
var vmOUIs = [][3]byte{
	{0x08, 0x00, 0x27}, // VirtualBox
	{0x00, 0x0C, 0x29}, // VMware
	{0x00, 0x50, 0x56}, // VMware
	{0x00, 0x1C, 0x14}, // VMware
	{0x52, 0x54, 0x00}, // QEMU/KVM
}

// benignReplacementOUI is the default replacement prefix when no
// configured replacement is supplied.
var benignReplacementOUI = [3]byte{0x00, 0x1A, 0x2B}

func matchesVMOUI(mac [6]byte) bool {
	for _, oui := range vmOUIs {
		if mac[0] == oui[0] && mac[1] == oui[1] && mac[2] == oui[2] {
			return true
		}
	}
	return false
}

// ScrubMAC rewrites mac's OUI to replacement (or [benignReplacementOUI]
// if replacement is the zero value) when it matches a known VM OUI.
func ScrubMAC(enabled bool, replacement [3]byte, mac [6]byte) ([6]byte, bool) {
	if !enabled || !matchesVMOUI(mac) {
		return mac, false
	}
	oui := replacement
	if oui == ([3]byte{}) {
		oui = benignReplacementOUI
	}
	out := mac
	out[0], out[1], out[2] = oui[0], oui[1], oui[2]
	return out, true
}

// EmitAdapterEnumeration applies [ScrubMAC] and publishes the network
// anti-evasion event when the MAC was rewritten.
func EmitAdapterEnumeration(e Emitter, enabled bool, replacement [3]byte, mac [6]byte) [6]byte {
	out, scrubbed := ScrubMAC(enabled, replacement, mac)
	if scrubbed {
		e.Emit("anti_evasion_network", map[string]any{
			"original_mac": fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5]),
			"scrubbed_mac": fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", out[0], out[1], out[2], out[3], out[4], out[5]),
		})
	}
	return out
}
