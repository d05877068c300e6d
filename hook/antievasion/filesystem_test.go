// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import "testing"

func TestShouldHidePath(t *testing.T) {
	cases := []struct {
		name    string
		enabled bool
		hide    []string
		path    string
		want    bool
	}{
		{"disabled never hides", false, nil, `C:\Windows\System32\vboxservice.exe`, false},
		{"builtin indicator matches", true, nil, `C:\Program Files\Oracle\VirtualBox\VBoxService.exe`, true},
		{"custom hide list matches", true, []string{"myagent"}, `C:\tools\myagent.exe`, true},
		{"no match passes through", true, nil, `C:\Windows\System32\notepad.exe`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ShouldHidePath(c.enabled, c.hide, c.path)
			if got != c.want {
				t.Fatalf("ShouldHidePath(%v, %v, %q) = %v, want %v", c.enabled, c.hide, c.path, got, c.want)
			}
		})
	}
}

func TestEmitFileAttributeQueryOnlyEmitsWhenHidden(t *testing.T) {
	e := &recordingEmitter{}
	if EmitFileAttributeQuery(e, true, nil, `C:\clean.txt`) {
		t.Fatal("expected no hide")
	}
	if len(e.events) != 0 {
		t.Fatalf("unexpected events: %+v", e.events)
	}

	hide := EmitFileAttributeQuery(e, true, nil, `C:\vbox\shared.txt`)
	if !hide {
		t.Fatal("expected hide")
	}
	if len(e.events) != 1 || e.events[0].kind != "anti_evasion_filesystem" {
		t.Fatalf("unexpected events: %+v", e.events)
	}
}
