// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import "testing"

func TestShouldDenyObjectName(t *testing.T) {
	if ShouldDenyObjectName(false, nil, "VBoxService") {
		t.Fatal("disabled should never deny")
	}
	if !ShouldDenyObjectName(true, nil, "VBoxServiceMutex") {
		t.Fatal("expected builtin VM object to be denied")
	}
	if ShouldDenyObjectName(true, nil, "MyAppMutex") {
		t.Fatal("expected unrelated name to pass")
	}
}

func TestEmitObjectCreate(t *testing.T) {
	e := &recordingEmitter{}
	deny := EmitObjectCreate(e, true, nil, "CreateMutexW", "vboxtray")
	if !deny || len(e.events) != 1 {
		t.Fatalf("unexpected result: deny=%v events=%+v", deny, e.events)
	}
}
