// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "github.com/loonaro/sandbox/wire"

// Event is one hook observation, ready to be serialized over the local
// IPC channel as an [ipc.EventEnvelope].
type Event struct {
	// Discriminator names the wire event kind this observation reframes
	// to once it reaches the agent.
	Discriminator wire.Discriminator

	// Name is the event_type tag carried in the IPC envelope, e.g.
	// "memory-alloc", "crypto-op", "generic-hook".
	Name string

	// Fields is the event body, JSON-friendly and matching the {..}
	// shapes named per category.
	Fields map[string]any
}

// Sink receives hook events. A [Library] hands every installed hook the
// same Sink so all events funnel through one place before reaching the
// IPC client writer.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a [Sink].
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }
