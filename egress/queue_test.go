// SPDX-License-Identifier: GPL-3.0-or-later

package egress

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrderingPerProducer(t *testing.T) {
	q := NewQueue(4, nil)
	var buf bytes.Buffer

	require.True(t, q.TrySend(Message{Frame: []byte("a")}))
	require.True(t, q.TrySend(Message{Frame: []byte("b")}))
	require.True(t, q.TrySend(Message{Frame: []byte("c")}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Drain(ctx, &buf)
		close(done)
	}()

	require.Eventually(t, func() bool { return buf.String() == "abc" }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestTrySendDropsOnFullQueueWithoutBlocking(t *testing.T) {
	q := NewQueue(1, nil)
	require.True(t, q.TrySend(Message{Frame: []byte("a")}))
	assert.False(t, q.TrySend(Message{Frame: []byte("b")}))
	assert.Equal(t, uint64(1), q.Dropped())
}

type errWriter struct{}

func (errWriter) Write(p []byte) (int, error) {
	return 0, assertErr
}

var assertErr = errAssertion{}

type errAssertion struct{}

func (errAssertion) Error() string { return "boom" }

func TestDrainExitsOnWriteError(t *testing.T) {
	q := NewQueue(4, nil)
	require.True(t, q.TrySend(Message{Frame: []byte("a")}))

	err := q.Drain(context.Background(), errWriter{})
	require.Error(t, err)

	// The queue is closed after a write error; further sends must panic.
	assert.Panics(t, func() { q.TrySend(Message{Frame: []byte("b")}) })
}

func TestDrainStopsOnContextDone(t *testing.T) {
	q := NewQueue(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	require.NoError(t, q.Drain(ctx, &buf))
}
