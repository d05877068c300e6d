// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"reflect"
	"testing"
)

func TestGenericInterpreterCapturesArgsAndLibrary(t *testing.T) {
	interp := genericInterpreter("shlwapi.dll")
	call := CallArgs{Args: [6]uintptr{1, 2, 3}, Argc: 3}
	ev := interp("PathIsDirectoryW", call)

	if ev.Discriminator != genericDiscriminator {
		t.Fatalf("got discriminator %v", ev.Discriminator)
	}
	if ev.Fields["library"] != "shlwapi.dll" || ev.Fields["function"] != "PathIsDirectoryW" {
		t.Fatalf("unexpected fields: %+v", ev.Fields)
	}
	if !reflect.DeepEqual(ev.Fields["args"], []uintptr{1, 2, 3}) {
		t.Fatalf("unexpected args: %+v", ev.Fields["args"])
	}
}

func TestGenericInterpreterZeroArity(t *testing.T) {
	interp := genericInterpreter("kernel32.dll")
	ev := interp("GetTickCount", CallArgs{Argc: 0})
	if len(ev.Fields["args"].([]uintptr)) != 0 {
		t.Fatalf("expected empty args: %+v", ev.Fields["args"])
	}
}
