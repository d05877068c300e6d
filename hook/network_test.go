// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "testing"

func TestNetworkInterpreterConnect(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x5, 0x7000, 16}, Argc: 3}
	ev := networkInterpreter("connect", call)
	if ev.Fields["endpoint"] != uintptr(0x5) {
		t.Fatalf("unexpected fields: %+v", ev.Fields)
	}
}

func TestNetworkInterpreterSend(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x5, 0x7000, 128, 0}, Argc: 4}
	ev := networkInterpreter("send", call)
	if ev.Fields["bytes"] != uintptr(128) {
		t.Fatalf("unexpected bytes field: %+v", ev.Fields)
	}
}

func TestNetworkInterpreterRecv(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0x5, 0x7000, 128, 0}, Argc: 4, Ret: 64}
	ev := networkInterpreter("recv", call)
	if ev.Fields["bytes"] != uintptr(64) {
		t.Fatalf("unexpected bytes field: %+v", ev.Fields)
	}
}

func TestNetworkInterpreterWinHttpOpen(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0, 1}, Argc: 4, Ret: 0xABCD}
	ev := networkInterpreter("WinHttpOpen", call)
	if ev.Fields["session"] != uintptr(0xABCD) {
		t.Fatalf("unexpected session field: %+v", ev.Fields)
	}
}
