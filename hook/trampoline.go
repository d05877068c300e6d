// SPDX-License-Identifier: GPL-3.0-or-later

// Package hook implements the in-process API-hooking producer:
// a library loaded into the target process that installs inline
// trampolines on an enumerated set of system functions and emits a typed
// event per call, without altering arguments or return values unless the
// hook is an anti-evasion one (see the hook/antievasion subpackage).
package hook

import "sync"

// Address is a resolved function address: the key a detour uses to look
// up its own installed [Trampoline].
//
// OPEN QUESTION resolved: an earlier design shared one thread-local
// "current hook id" across the generic-trampoline family, which races
// when two installs overlap. Trampolines here are keyed by resolved
// target address in a process-wide map, never by thread-local state, so
// concurrent installs on different addresses cannot corrupt each other.
type Address uintptr

// Trampoline is an installed detour: it remembers the bytes it replaced
// at Address so [Trampoline.Disable] can restore them.
type Trampoline interface {
	Address() Address
	Disable() error
}

// registry maps resolved addresses to their installed [Trampoline].
var registry sync.Map // Address -> Trampoline

func registerTrampoline(addr Address, t Trampoline) {
	registry.Store(addr, t)
}

func lookupTrampoline(addr Address) (Trampoline, bool) {
	v, ok := registry.Load(addr)
	if !ok {
		return nil, false
	}
	return v.(Trampoline), true
}

func unregisterTrampoline(addr Address) {
	registry.Delete(addr)
}

// installed is the bookkeeping a [Library] keeps so Detach can disable
// every hook it installed, in installation order.
type installed struct {
	mu      sync.Mutex
	address []Address
}

func (i *installed) add(addr Address) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.address = append(i.address, addr)
}

// disableAll disables every tracked trampoline and removes it from the
// process-wide registry.
func (i *installed) disableAll() {
	i.mu.Lock()
	addrs := append([]Address(nil), i.address...)
	i.address = nil
	i.mu.Unlock()

	for _, addr := range addrs {
		if t, ok := lookupTrampoline(addr); ok {
			_ = t.Disable()
		}
		unregisterTrampoline(addr)
	}
}
