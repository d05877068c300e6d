// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import (
	"context"
	"math/rand"
	"time"
)

// humanMinDelay and humanMaxDelay bound the randomized inter-event delay
// between synthetic mouse movements.
const (
	humanMinDelay = 800 * time.Millisecond
	humanMaxDelay = 4 * time.Second
)

// Mover performs one synthetic mouse movement to (x, y). Production code
// supplies a Windows SetCursorPos-backed implementation; tests supply a
// recording fake.
type Mover interface {
	MoveTo(x, y int)
}

// MoverFunc adapts a function to a [Mover].
type MoverFunc func(x, y int)

func (f MoverFunc) MoveTo(x, y int) { f(x, y) }

// HumanSimulator runs [HumanSimulator.Run] as a background goroutine,
// issuing synthetic mouse movements at randomized intervals until
// stopped.
type HumanSimulator struct {
	Mover  Mover
	Emit   Emitter
	Rand   *rand.Rand
	screen ScreenMetrics
}

// NewHumanSimulator returns a [*HumanSimulator] moving the mouse within
// the given screen bounds.
func NewHumanSimulator(mover Mover, emit Emitter, screen ScreenMetrics) *HumanSimulator {
	if screen.Width <= 0 {
		screen.Width = 1920
	}
	if screen.Height <= 0 {
		screen.Height = 1080
	}
	return &HumanSimulator{Mover: mover, Emit: emit, Rand: rand.New(rand.NewSource(1)), screen: screen}
}

// Run issues synthetic mouse movements until ctx is done.
func (h *HumanSimulator) Run(ctx context.Context) {
	for {
		delay := humanMinDelay + time.Duration(h.Rand.Int63n(int64(humanMaxDelay-humanMinDelay)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		x, y := h.Rand.Intn(h.screen.Width), h.Rand.Intn(h.screen.Height)
		h.Mover.MoveTo(x, y)
		if h.Emit != nil {
			h.Emit.Emit("anti_evasion_human", map[string]any{"x": x, "y": y})
		}
	}
}
