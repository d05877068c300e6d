//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import "golang.org/x/sys/windows"

var modUser32 = windows.NewLazySystemDLL("user32.dll")
var procSetCursorPos = modUser32.NewProc("SetCursorPos")

type systemMover struct{}

// NewSystemMover returns a [Mover] backed by the real SetCursorPos API.
func NewSystemMover() Mover { return systemMover{} }

var _ Mover = systemMover{}

func (systemMover) MoveTo(x, y int) {
	procSetCursorPos.Call(uintptr(x), uintptr(y))
}
