// SPDX-License-Identifier: GPL-3.0-or-later

package tracing

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/loonaro/sandbox/egress"
	"github.com/loonaro/sandbox/telemetry"
	"github.com/loonaro/sandbox/wire"
)

// Sender is the subset of [*egress.Queue] the producer needs, so tests
// can substitute a recording fake without standing up a real queue.
type Sender interface {
	TrySend(msg egress.Message) bool
}

// Producer runs an [EventSource] for a bounded duration and enqueues
// {control-frame, payload-bytes} messages onto a [Sender].
//
// The callback graph this type drives (multiple events sharing the
// outbound queue sender and a counter) is modeled as a single handle-clone
// value with an interior-mutable, session-owned counter: no back-pointers,
// no cycles.
type Producer struct {
	Source  EventSource
	Queue   Sender
	Logger  telemetry.SLogger
	counter atomic.Uint64
	dropped atomic.Uint64
}

// NewProducer returns a [*Producer] wired to source and queue.
func NewProducer(source EventSource, queue Sender, logger telemetry.SLogger) *Producer {
	if logger == nil {
		logger = telemetry.DefaultSLogger()
	}
	return &Producer{Source: source, Queue: queue, Logger: logger}
}

// Run subscribes to Source for duration, then emits exactly one
// TracingFinished(n) control message carrying the final event count.
func (p *Producer) Run(ctx context.Context, duration time.Duration) error {
	err := p.Source.Run(ctx, duration, p.onEvent)
	finishedFrame := wire.EncodeTracingFinishedMsg(p.counter.Load())
	p.Queue.TrySend(egress.Message{Frame: finishedFrame})
	return err
}

// onEvent is the [Callback] passed to the [EventSource]. It runs on an OS
// thread owned by the tracing subsystem and must not block: it
// only increments a counter, builds a header, and hands off via TrySend.
func (p *Producer) onEvent(ancillary Ancillary, discriminator wire.Discriminator, payload []byte) {
	p.counter.Add(1)

	header := wire.EventHeader{
		Discriminator: discriminator,
		Timestamp:     ancillary.Timestamp,
		PID:           ancillary.PID,
		TID:           ancillary.TID,
	}
	if len(payload) > wire.MaxPayloadLen {
		payload = payload[:wire.MaxPayloadLen]
	}
	frame := wire.EncodeEventHeaderMsg(header, uint32(len(payload)))

	// On queue-full the event is dropped with a recorded counter — data
	// plane preserves liveness over completeness.
	if !p.Queue.TrySend(egress.Message{Frame: frame, Payload: payload}) {
		p.dropped.Add(1)
		p.Logger.Info("tracingEventDropped",
			slog.String("discriminator", discriminator.String()),
			slog.Uint64("droppedTotal", p.dropped.Load()),
		)
	}
}

// EventCount returns the number of events observed so far.
func (p *Producer) EventCount() uint64 {
	return p.counter.Load()
}

// Dropped returns the number of events dropped due to queue backpressure.
func (p *Producer) Dropped() uint64 {
	return p.dropped.Load()
}
