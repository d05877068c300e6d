// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import (
	"reflect"
	"testing"
)

func TestFilterProcessList(t *testing.T) {
	images := []string{"explorer.exe", "vboxtray.exe", "notepad.exe", "procmon.exe"}
	kept, hidden := FilterProcessList(true, nil, images)

	wantKept := []string{"explorer.exe", "notepad.exe"}
	wantHidden := []string{"vboxtray.exe", "procmon.exe"}
	if !reflect.DeepEqual(kept, wantKept) {
		t.Fatalf("kept = %v, want %v", kept, wantKept)
	}
	if !reflect.DeepEqual(hidden, wantHidden) {
		t.Fatalf("hidden = %v, want %v", hidden, wantHidden)
	}
}

func TestFilterProcessListDisabledKeepsAll(t *testing.T) {
	images := []string{"vboxtray.exe"}
	kept, hidden := FilterProcessList(false, nil, images)
	if !reflect.DeepEqual(kept, images) || hidden != nil {
		t.Fatalf("kept = %v, hidden = %v", kept, hidden)
	}
}

func TestEmitProcessEnumerationEmitsPerHiddenEntry(t *testing.T) {
	e := &recordingEmitter{}
	kept := EmitProcessEnumeration(e, true, nil, []string{"explorer.exe", "vboxtray.exe", "procmon.exe"})
	if len(kept) != 1 || kept[0] != "explorer.exe" {
		t.Fatalf("kept = %v", kept)
	}
	if len(e.events) != 2 {
		t.Fatalf("got %d events, want 2", len(e.events))
	}
}
