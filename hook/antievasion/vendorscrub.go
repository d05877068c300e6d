// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import "bytes"

// defaultVendorStrings lists case-insensitive vendor substrings commonly
// present in virtualized SMBIOS/ACPI tables and storage IOCTL responses.
var defaultVendorStrings = []string{
	"VMware", "VBOX", "VirtualBox", "QEMU", "Virtual Machine", "Microsoft Corporation",
}

// ScrubVendorStrings byte-scrubs every case-insensitive occurrence of a
// configured (or default) vendor string in buf, replacing it in place
// with spaces so the buffer length and any embedded offsets are
// unaffected.
func ScrubVendorStrings(enabled bool, vendors []string, buf []byte) ([]byte, bool) {
	if !enabled || len(buf) == 0 {
		return buf, false
	}
	needles := vendors
	if len(needles) == 0 {
		needles = defaultVendorStrings
	}

	out := append([]byte(nil), buf...)
	scrubbed := false
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		scrubbed = scrubCaseInsensitive(out, []byte(needle)) || scrubbed
	}
	if !scrubbed {
		return buf, false
	}
	return out, true
}

// scrubCaseInsensitive overwrites every case-insensitive occurrence of
// needle in buf with spaces, in place, returning whether anything
// matched.
func scrubCaseInsensitive(buf, needle []byte) bool {
	lowerBuf := bytes.ToLower(buf)
	lowerNeedle := bytes.ToLower(needle)
	found := false
	start := 0
	for {
		idx := bytes.Index(lowerBuf[start:], lowerNeedle)
		if idx < 0 {
			break
		}
		pos := start + idx
		for i := 0; i < len(needle); i++ {
			buf[pos+i] = ' '
		}
		found = true
		start = pos + len(needle)
	}
	return found
}

// EmitStorageQuery applies [ScrubVendorStrings] to an IOCTL response
// buffer and publishes the hardware anti-evasion event when scrubbed.
func EmitStorageQuery(e Emitter, enabled bool, vendors []string, buf []byte) ([]byte, bool) {
	out, ok := ScrubVendorStrings(enabled, vendors, buf)
	if ok {
		e.Emit("anti_evasion_hardware", map[string]any{"function": "DeviceIoControl", "scrubbed": true})
	}
	return out, ok
}

// EmitFirmwareQuery applies [ScrubVendorStrings] to a firmware-table
// (SMBIOS/ACPI) or system-information response buffer and publishes the
// firmware anti-evasion event when scrubbed.
func EmitFirmwareQuery(e Emitter, enabled bool, vendors []string, function string, buf []byte) ([]byte, bool) {
	out, ok := ScrubVendorStrings(enabled, vendors, buf)
	if ok {
		e.Emit("anti_evasion_firmware", map[string]any{"function": function, "scrubbed": true})
	}
	return out, ok
}
