// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingMover struct {
	mu    sync.Mutex
	moves [][2]int
}

func (m *recordingMover) MoveTo(x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves = append(m.moves, [2]int{x, y})
}

func (m *recordingMover) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.moves)
}

func TestHumanSimulatorRunReturnsOnContextCancel(t *testing.T) {
	mover := &recordingMover{}
	e := &recordingEmitter{}
	sim := NewHumanSimulator(mover, e, ScreenMetrics{Width: 1024, Height: 768})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Force fast iterations for the test by shrinking the delay bounds
	// indirectly is not exposed; instead just confirm Run returns cleanly
	// on context cancellation and never panics with zero movements.
	done := make(chan struct{})
	go func() {
		sim.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestHumanSimulatorDefaultsScreenBounds(t *testing.T) {
	sim := NewHumanSimulator(MoverFunc(func(x, y int) {}), nil, ScreenMetrics{})
	if sim.screen.Width != 1920 || sim.screen.Height != 1080 {
		t.Fatalf("got %+v, want defaults", sim.screen)
	}
}
