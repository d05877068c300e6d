//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// readBytesAt reads n bytes from the calling process's own address space
// at ptr. Anti-evasion buffer scrubbing operates in-process (the hooked
// function already returned its output into the caller's buffer).
func readBytesAt(ptr uintptr, n int) []byte {
	if ptr == 0 || n <= 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
	return append([]byte(nil), src...)
}

// writeBytesAt writes data back to ptr, in place.
func writeBytesAt(ptr uintptr, data []byte) {
	if ptr == 0 || len(data) == 0 {
		return
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(data))
	copy(dst, data)
}

// readUTF16StringAt decodes a NUL-terminated UTF-16LE string at ptr.
func readUTF16StringAt(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(ptr)))
}

// writeUTF16StringAt encodes s as NUL-terminated UTF-16LE at ptr. The
// caller is responsible for ensuring the destination buffer (sized by
// the original call's own buffer-length argument) is large enough; the
// detours that call this only do so after the original function already
// validated that same buffer.
func writeUTF16StringAt(ptr uintptr, s string) {
	if ptr == 0 {
		return
	}
	encoded, err := windows.UTF16FromString(s)
	if err != nil {
		return
	}
	dst := unsafe.Slice((*uint16)(unsafe.Pointer(ptr)), len(encoded))
	copy(dst, encoded)
}
