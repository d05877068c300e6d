// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "fmt"

// jumpStubSize is the number of bytes an x86-64 absolute jump stub
// occupies: `mov rax, imm64; jmp rax` (10 + 2 bytes).
const jumpStubSize = 12

// Patcher installs and removes an inline jump at a resolved function
// address.
//
// The only working implementation is Windows-specific (processPatcher); on
// other build targets unsupportedPatcher's Install returns
// [errPatchUnsupported] and the hook is not installed.
type Patcher interface {
	// Install overwrites the jumpStubSize bytes at target with a jump to
	// detour, returning the bytes it overwrote so they can be restored.
	Install(target, detour Address) (saved []byte, err error)

	// Restore writes saved back at target.
	Restore(target Address, saved []byte) error
}

// errPatchUnsupported is returned by [Patcher] implementations that
// cannot perform in-process code patching on the current platform.
var errPatchUnsupported = fmt.Errorf("hook: inline patching is not supported on this platform")
