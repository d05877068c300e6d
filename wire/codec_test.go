// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	header := EventHeader{Discriminator: DiscriminatorProcessCreate, Timestamp: 0, PID: 1, TID: 2}
	payload := []byte{0xAA, 0xBB}

	require.NoError(t, enc.WriteEventHeader(header, payload))

	dec := NewDecoder(&buf)
	msg, gotPayload, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, VariantEventHeader, msg.Variant)
	assert.Equal(t, header, msg.Header)
	assert.Equal(t, payload, gotPayload)

	_, _, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestTracingFinishedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).WriteTracingFinished(42))

	msg, payload, err := NewDecoder(&buf).Decode()
	require.NoError(t, err)
	assert.Equal(t, VariantTracingFinished, msg.Variant)
	assert.Equal(t, uint64(42), msg.EventCount)
	assert.False(t, msg.HasPayload)
	assert.Nil(t, payload)
}

func TestMemoryDumpRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	hdr := MemoryDumpHeader{ProcessID: 7, Base: 0x1000, Size: 256}
	payload := bytes.Repeat([]byte{0x41}, 256)
	require.NoError(t, NewEncoder(&buf).WriteMemoryDump(hdr, payload))

	msg, gotPayload, err := NewDecoder(&buf).Decode()
	require.NoError(t, err)
	assert.Equal(t, VariantMemoryDump, msg.Variant)
	assert.Equal(t, hdr, msg.DumpHeader)
	assert.Equal(t, payload, gotPayload)
}

func TestFakeNetEventRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"domain":"evil.com"}`)
	require.NoError(t, NewEncoder(&buf).WriteFakeNetEvent(payload))

	msg, gotPayload, err := NewDecoder(&buf).Decode()
	require.NoError(t, err)
	assert.Equal(t, VariantFakeNetEvent, msg.Variant)
	assert.Equal(t, payload, gotPayload)
}

func TestMultipleFramesPreserveOrder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteEventHeader(EventHeader{Discriminator: DiscriminatorDNSQuery, PID: 1, TID: 1}, []byte("a")))
	require.NoError(t, enc.WriteEventHeader(EventHeader{Discriminator: DiscriminatorDNSQuery, PID: 1, TID: 1}, []byte("b")))
	require.NoError(t, enc.WriteTracingFinished(2))

	dec := NewDecoder(&buf)
	_, p1, err := dec.Decode()
	require.NoError(t, err)
	_, p2, err := dec.Decode()
	require.NoError(t, err)
	msg, _, err := dec.Decode()
	require.NoError(t, err)

	assert.Equal(t, []byte("a"), p1)
	assert.Equal(t, []byte("b"), p2)
	assert.Equal(t, VariantTracingFinished, msg.Variant)
}

func TestWriteEventHeaderRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := NewEncoder(&buf).WriteEventHeader(EventHeader{}, make([]byte, MaxPayloadLen+1))
	require.Error(t, err)
	assert.Equal(t, 0, buf.Len())
}

func TestDecodeFrameDesyncOnOversizedDeclaredLength(t *testing.T) {
	// Hand-craft a frame declaring a payload larger than MaxPayloadLen.
	h := encodeHeader(nil, EventHeader{Discriminator: DiscriminatorStatus})
	buf := []byte{VariantEventHeader}
	buf = putTLV(buf, tagMsgEventHeader, h)
	buf = putUint32Field(buf, tagMsgPayloadLen, MaxPayloadLen+1)
	buf = append(buf, tagEnd)

	_, _, err := NewDecoder(bytes.NewReader(buf)).Decode()
	require.Error(t, err)
	assert.True(t, errors.Is(err, FrameDesync))
}

func TestDecodeFrameDesyncOnTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).WriteEventHeader(EventHeader{}, []byte("hello")))
	truncated := buf.Bytes()[:buf.Len()-2]

	_, _, err := NewDecoder(bytes.NewReader(truncated)).Decode()
	require.Error(t, err)
	assert.True(t, errors.Is(err, FrameDesync))
}

func TestDiscriminatorString(t *testing.T) {
	assert.Equal(t, "process-create", DiscriminatorProcessCreate.String())
	assert.Equal(t, "dns-query", DiscriminatorDNSQuery.String())
	assert.Contains(t, Discriminator(200).String(), "discriminator")
}
