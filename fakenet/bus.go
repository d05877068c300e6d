// SPDX-License-Identifier: GPL-3.0-or-later

package fakenet

import "sync"

// subscriberCapacity bounds each subscriber's backlog. A subscriber that
// falls behind lags: the bus drops its oldest buffered event to make room
// for the newest one.
const subscriberCapacity = 256

// Bus is a single multi-producer/multi-subscriber broadcast channel for
// [ProtocolEvent] values. [Publish] fans out to every current subscriber
// and to the file-append logger.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]chan ProtocolEvent
	nextID      int
	logger      *Logger
}

// NewBus returns a [*Bus]. logger may be nil to skip file logging (tests).
func NewBus(logger *Logger) *Bus {
	return &Bus{subscribers: make(map[int]chan ProtocolEvent), logger: logger}
}

// Subscribe registers a new subscriber and returns its channel and an
// unsubscribe function.
func (b *Bus) Subscribe() (<-chan ProtocolEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan ProtocolEvent, subscriberCapacity)
	b.subscribers[id] = ch
	return ch, func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Publish fans ev out to the logger and every current subscriber. A
// subscriber whose channel is full has its oldest buffered event dropped
// to make room.
func (b *Bus) Publish(ev ProtocolEvent) {
	if b.logger != nil {
		b.logger.Append(ev)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
