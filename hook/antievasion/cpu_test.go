// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import "testing"

func TestOverrideLogicalProcessors(t *testing.T) {
	if _, ok := OverrideLogicalProcessors(false, 8, 2); ok {
		t.Fatal("disabled should never override")
	}
	if _, ok := OverrideLogicalProcessors(true, 0, 2); ok {
		t.Fatal("unconfigured should never override")
	}
	if _, ok := OverrideLogicalProcessors(true, 2, 2); ok {
		t.Fatal("configured not exceeding actual should never override")
	}
	out, ok := OverrideLogicalProcessors(true, 8, 2)
	if !ok || out != 8 {
		t.Fatalf("got (%d, %v)", out, ok)
	}
}

func TestEmitLogicalProcessorQuery(t *testing.T) {
	e := &recordingEmitter{}
	out, ok := EmitLogicalProcessorQuery(e, true, 8, 2)
	if !ok || out != 8 || len(e.events) != 1 {
		t.Fatalf("got (%d, %v), events=%+v", out, ok, e.events)
	}
}
