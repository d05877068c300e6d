// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "testing"

func TestCryptoInterpreterLegacy(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0, 0, 0, 256, 128}, Argc: 6, Ret: 1}
	ev := cryptoInterpreter("CryptEncrypt", call)
	if ev.Fields["input_size"] != uintptr(128) || ev.Fields["output_size"] != uintptr(256) {
		t.Fatalf("unexpected fields: %+v", ev.Fields)
	}
	if ev.Fields["success"] != true {
		t.Fatalf("expected success=true: %+v", ev.Fields)
	}
}

func TestCryptoInterpreterHashData(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0, 0, 64, 32}, Argc: 4, Ret: 0}
	ev := cryptoInterpreter("CryptHashData", call)
	if ev.Fields["input_size"] != uintptr(64) {
		t.Fatalf("unexpected input_size: %+v", ev.Fields)
	}
	if ev.Fields["success"] != false {
		t.Fatalf("expected success=false: %+v", ev.Fields)
	}
}

func TestCryptoInterpreterModern(t *testing.T) {
	call := CallArgs{Args: [6]uintptr{0, 0, 512, 512}, Argc: 6, Ret: 1}
	ev := cryptoInterpreter("BCryptEncrypt", call)
	if ev.Fields["input_size"] != uintptr(512) {
		t.Fatalf("unexpected input_size: %+v", ev.Fields)
	}
}
