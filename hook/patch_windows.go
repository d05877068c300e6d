//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/windows"
)

// processPatcher patches the calling process's own address space via
// VirtualProtect.
type processPatcher struct{}

func newPatcher() Patcher { return processPatcher{} }

var _ Patcher = processPatcher{}

func (processPatcher) Install(target, detour Address) ([]byte, error) {
	targetPtr := uintptr(target)
	region := unsafe.Slice((*byte)(unsafe.Pointer(targetPtr)), jumpStubSize)

	var oldProtect uint32
	if err := windows.VirtualProtect(targetPtr, jumpStubSize, windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
		return nil, err
	}
	defer windows.VirtualProtect(targetPtr, jumpStubSize, oldProtect, &oldProtect)

	saved := append([]byte(nil), region...)

	// mov rax, imm64 (48 B8 <8 bytes>); jmp rax (FF E0)
	stub := make([]byte, jumpStubSize)
	stub[0], stub[1] = 0x48, 0xB8
	binary.LittleEndian.PutUint64(stub[2:10], uint64(detour))
	stub[10], stub[11] = 0xFF, 0xE0
	copy(region, stub)

	return saved, nil
}

func (processPatcher) Restore(target Address, saved []byte) error {
	targetPtr := uintptr(target)
	region := unsafe.Slice((*byte)(unsafe.Pointer(targetPtr)), len(saved))

	var oldProtect uint32
	if err := windows.VirtualProtect(targetPtr, uintptr(len(saved)), windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
		return err
	}
	defer windows.VirtualProtect(targetPtr, uintptr(len(saved)), oldProtect, &oldProtect)

	copy(region, saved)
	return nil
}
