//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// moduleResolver resolves addresses via LoadLibrary/GetProcAddress, the
// loader interface the detour contract refers to.
type moduleResolver struct{}

func newResolver() Resolver { return moduleResolver{} }

var _ Resolver = moduleResolver{}

func (moduleResolver) Resolve(library, function string) (Address, error) {
	h, err := windows.LoadLibrary(library)
	if err != nil {
		return 0, fmt.Errorf("hook: LoadLibrary(%s): %w", library, err)
	}
	addr, err := windows.GetProcAddress(h, function)
	if err != nil {
		return 0, fmt.Errorf("hook: GetProcAddress(%s, %s): %w", library, function, err)
	}
	return Address(addr), nil
}
