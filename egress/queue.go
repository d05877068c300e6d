// SPDX-License-Identifier: GPL-3.0-or-later

// Package egress implements the agent's bounded outbound queue and its
// drain loop to the authenticated transport.
//
// The data path never blocks an event callback: producers call [Queue.TrySend],
// which either enqueues the message or drops it and reports the drop, and a
// single dedicated goroutine drains the queue in order.
package egress

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/loonaro/sandbox/telemetry"
)

// DefaultCapacity is the default outbound queue capacity.
const DefaultCapacity = 8192

// Message is a pre-framed two-part message: a control frame
// and its declared trailing payload, if any. Producers build Frame with
// [github.com/loonaro/sandbox/wire]; Payload may be nil when the control
// message declares none.
type Message struct {
	Frame   []byte
	Payload []byte
}

// Queue is the agent's bounded, single-consumer outbound queue.
//
// Multiple producers may call [Queue.TrySend] concurrently: each call is independently
// non-blocking and preserves that producer's own ordering, since a
// successful send onto the channel is immediately visible to the single
// consumer in send order.
type Queue struct {
	ch        chan Message
	dropped   atomic.Uint64
	logger    telemetry.SLogger
	closeOnce sync.Once
}

// NewQueue returns a [*Queue] with the given capacity. Use
// [DefaultCapacity] absent a reason to deviate.
func NewQueue(capacity int, logger telemetry.SLogger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = telemetry.DefaultSLogger()
	}
	return &Queue{ch: make(chan Message, capacity), logger: logger}
}

// TrySend enqueues msg without blocking. On a full queue the message is
// dropped, a counter is incremented, and a warning is logged — liveness
// over completeness.
func (q *Queue) TrySend(msg Message) bool {
	select {
	case q.ch <- msg:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Info("egressQueueFull",
			slog.Int("frameLen", len(msg.Frame)),
			slog.Int("payloadLen", len(msg.Payload)),
			slog.Uint64("droppedTotal", q.dropped.Load()),
		)
		return false
	}
}

// Dropped returns the number of messages dropped so far due to backpressure.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Writer is the subset of the transport connection the drain loop needs.
type Writer interface {
	Write(p []byte) (int, error)
}

// Drain runs the single dedicated consumer: it writes messages to w in
// FIFO order until the queue is closed via [Queue.Close] or a write fails.
// On write error the loop exits and the queue is closed, matching the
// rule that a transport error terminates the egress task.
//
// Drain returns nil on clean shutdown (ctx done or [Queue.Close] with no
// pending write error) and the write error otherwise.
func (q *Queue) Drain(ctx context.Context, w Writer) error {
	defer q.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-q.ch:
			if !ok {
				return nil
			}
			if err := writeMessage(w, msg); err != nil {
				q.logger.Info("egressWriteError", slog.Any("err", err))
				return err
			}
		}
	}
}

func writeMessage(w Writer, msg Message) error {
	if _, err := w.Write(msg.Frame); err != nil {
		return err
	}
	if len(msg.Payload) == 0 {
		return nil
	}
	_, err := w.Write(msg.Payload)
	return err
}

// Close closes the queue. Safe to call more than once; subsequent calls
// are no-ops. After Close, [Queue.TrySend] panics the way a send on a
// closed channel always does, matching producers' expectation that once
// the egress task has exited the session is over and no further event
// should be emitted.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}
