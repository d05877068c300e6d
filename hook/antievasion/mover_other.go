//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

type noopMover struct{}

// NewSystemMover returns a [Mover] that does nothing. The sandbox guest
// is always Windows; this exists so the package builds off Windows.
func NewSystemMover() Mover { return noopMover{} }

var _ Mover = noopMover{}

func (noopMover) MoveTo(x, y int) {}
