//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package hook

// readBytesAt, writeBytesAt, readUTF16StringAt and writeUTF16StringAt are
// no-ops off Windows; see memio_windows.go.
func readBytesAt(ptr uintptr, n int) []byte { return nil }

func writeBytesAt(ptr uintptr, data []byte) {}

func readUTF16StringAt(ptr uintptr) string { return "" }

func writeUTF16StringAt(ptr uintptr, s string) {}
