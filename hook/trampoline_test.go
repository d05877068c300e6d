// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "testing"

type fakeTrampoline struct {
	addr     Address
	disabled bool
}

func (f *fakeTrampoline) Address() Address { return f.addr }
func (f *fakeTrampoline) Disable() error {
	f.disabled = true
	return nil
}

func TestRegisterLookupUnregisterTrampoline(t *testing.T) {
	addr := Address(0x1000)
	tr := &fakeTrampoline{addr: addr}

	if _, ok := lookupTrampoline(addr); ok {
		t.Fatal("expected no trampoline registered yet")
	}

	registerTrampoline(addr, tr)
	got, ok := lookupTrampoline(addr)
	if !ok || got != Trampoline(tr) {
		t.Fatalf("got (%v, %v), want registered trampoline", got, ok)
	}

	unregisterTrampoline(addr)
	if _, ok := lookupTrampoline(addr); ok {
		t.Fatal("expected trampoline to be gone after unregister")
	}
}

func TestInstalledDisableAllDisablesEveryTrampolineOnce(t *testing.T) {
	var i installed
	addrs := []Address{0x2000, 0x2001, 0x2002}
	tramps := make([]*fakeTrampoline, len(addrs))
	for idx, addr := range addrs {
		tramps[idx] = &fakeTrampoline{addr: addr}
		registerTrampoline(addr, tramps[idx])
		i.add(addr)
	}

	i.disableAll()

	for idx, tr := range tramps {
		if !tr.disabled {
			t.Fatalf("trampoline %d was not disabled", idx)
		}
		if _, ok := lookupTrampoline(addrs[idx]); ok {
			t.Fatalf("trampoline %d still registered", idx)
		}
	}

	if len(i.address) != 0 {
		t.Fatalf("installed.address not cleared: %v", i.address)
	}

	// disableAll again must be a safe no-op.
	i.disableAll()
}
