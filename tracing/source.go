// SPDX-License-Identifier: GPL-3.0-or-later

package tracing

import (
	"context"
	"time"

	"github.com/loonaro/sandbox/wire"
)

// Ancillary carries the fields every kernel-event callback gets regardless
// of event kind: timestamp, pid, tid.
type Ancillary struct {
	Timestamp uint64
	PID       uint32
	TID       uint32
}

// ProviderGUID is a platform-neutral 16-byte GUID naming an ETW provider,
// so that callers outside this package's windows-only build-tagged files
// can name providers without importing golang.org/x/sys/windows.
type ProviderGUID [16]byte

// Callback is invoked by an [EventSource] for every kernel event. payload
// is the opaque, vendor-defined event body; discriminator identifies
// which [ParseProcessCreate]-family parser applies.
type Callback func(ancillary Ancillary, discriminator wire.Discriminator, payload []byte)

// EventSource abstracts the host OS's kernel-event infrastructure: opening
// a named tracing session, enabling providers by stable identifier, and
// running the session for a bounded duration.
//
// Kernel-event callbacks execute on OS threads owned by the tracing
// subsystem and MUST NOT block on async I/O; implementations
// must honor that by calling cb synchronously and cheaply, handing off any
// slower work through a channel.
type EventSource interface {
	// Providers returns the stable provider identifiers this source
	// enables.
	Providers() []string

	// Run opens the session, enables providers, and invokes cb for each
	// event until duration elapses or ctx is done, whichever comes first.
	Run(ctx context.Context, duration time.Duration, cb Callback) error
}

// FakeEventSource is a test double that replays a fixed sequence of
// events, one per [time.Duration] tick (or immediately if Interval is
// zero), honoring ctx and duration exactly like a real source would.
type FakeEventSource struct {
	ProviderIDs []string
	Events      []FakeEvent
	Interval    time.Duration
}

// FakeEvent is one event [FakeEventSource] replays.
type FakeEvent struct {
	Ancillary     Ancillary
	Discriminator wire.Discriminator
	Payload       []byte
}

var _ EventSource = &FakeEventSource{}

// Providers implements [EventSource].
func (f *FakeEventSource) Providers() []string {
	return f.ProviderIDs
}

// Run implements [EventSource].
func (f *FakeEventSource) Run(ctx context.Context, duration time.Duration, cb Callback) error {
	deadline := time.Now().Add(duration)
	for _, ev := range f.Events {
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		cb(ev.Ancillary, ev.Discriminator, ev.Payload)
		if f.Interval > 0 {
			time.Sleep(f.Interval)
		}
	}
	remaining := time.Until(deadline)
	if remaining > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(remaining):
		}
	}
	return nil
}
