// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FrameDesync is returned by [Decoder.Decode] when the byte stream can no
// longer be trusted to contain well-formed frames: a declared payload
// length exceeds [MaxPayloadLen], or the transport closed mid-payload.
var FrameDesync = errors.New("wire: frame desync")

// field tags, shared by every tag/length/value record this package encodes.
// Tag 0x00 always terminates a record.
const (
	tagEnd uint8 = 0x00

	tagHeaderDiscriminator uint8 = 0x01
	tagHeaderTimestamp     uint8 = 0x02
	tagHeaderPID           uint8 = 0x03
	tagHeaderTID           uint8 = 0x04

	tagDumpProcessID uint8 = 0x01
	tagDumpBase      uint8 = 0x02
	tagDumpSize      uint8 = 0x03

	tagMsgEventHeader uint8 = 0x01
	tagMsgPayloadLen  uint8 = 0x02
	tagMsgEventCount  uint8 = 0x01
	tagMsgDumpHeader  uint8 = 0x01
)

// Variant discriminators for the top-level control message.
// These are the wire's stable small integers.
const (
	VariantEventHeader     uint8 = 1
	VariantTracingFinished uint8 = 2
	VariantMemoryDump      uint8 = 3
	VariantFakeNetEvent    uint8 = 4
)

// Message is a decoded control message together with its trailing payload,
// if the variant declares one.
type Message struct {
	// Variant is one of the Variant* constants above.
	Variant uint8

	// Header is set when Variant == [VariantEventHeader].
	Header EventHeader

	// DumpHeader is set when Variant == [VariantMemoryDump].
	DumpHeader MemoryDumpHeader

	// EventCount is set when Variant == [VariantTracingFinished].
	EventCount uint64

	// PayloadLen is the number of trailing payload bytes that follow this
	// control message on the stream. Zero when the variant carries none
	// (TracingFinished never does; the others always declare one, which
	// may itself be zero).
	PayloadLen uint32

	// HasPayload reports whether this variant declares a trailing payload
	// field at all (as opposed to PayloadLen simply being zero).
	HasPayload bool
}

// putTLV appends a tag/length/value field: a 1-byte tag, a varint length,
// then the raw value bytes.
func putTLV(buf []byte, tag uint8, value []byte) []byte {
	buf = append(buf, tag)
	var lenbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenbuf[:], uint64(len(value)))
	buf = append(buf, lenbuf[:n]...)
	buf = append(buf, value...)
	return buf
}

func putUint64Field(buf []byte, tag uint8, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return putTLV(buf, tag, tmp[:])
}

func putUint32Field(buf []byte, tag uint8, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return putTLV(buf, tag, tmp[:])
}

func putUint8Field(buf []byte, tag uint8, v uint8) []byte {
	return putTLV(buf, tag, []byte{v})
}

// encodeHeader renders an [EventHeader] as a self-contained TLV record
// (without the enclosing end tag; callers append it).
func encodeHeader(buf []byte, h EventHeader) []byte {
	buf = putUint8Field(buf, tagHeaderDiscriminator, uint8(h.Discriminator))
	buf = putUint64Field(buf, tagHeaderTimestamp, h.Timestamp)
	buf = putUint32Field(buf, tagHeaderPID, h.PID)
	buf = putUint32Field(buf, tagHeaderTID, h.TID)
	buf = append(buf, tagEnd)
	return buf
}

func encodeDumpHeader(buf []byte, h MemoryDumpHeader) []byte {
	buf = putUint32Field(buf, tagDumpProcessID, h.ProcessID)
	buf = putUint64Field(buf, tagDumpBase, h.Base)
	buf = putUint64Field(buf, tagDumpSize, h.Size)
	buf = append(buf, tagEnd)
	return buf
}

// EncodeEventHeaderMsg encodes the `EventHeader(header, payload_len)`
// control message.
func EncodeEventHeaderMsg(h EventHeader, payloadLen uint32) []byte {
	buf := []byte{VariantEventHeader}
	nested := encodeHeader(nil, h)
	buf = putTLV(buf, tagMsgEventHeader, nested)
	buf = putUint32Field(buf, tagMsgPayloadLen, payloadLen)
	buf = append(buf, tagEnd)
	return buf
}

// EncodeTracingFinishedMsg encodes `TracingFinished(event_count)`.
func EncodeTracingFinishedMsg(count uint64) []byte {
	buf := []byte{VariantTracingFinished}
	buf = putUint64Field(buf, tagMsgEventCount, count)
	buf = append(buf, tagEnd)
	return buf
}

// EncodeMemoryDumpMsg encodes `MemoryDump(dump_header, payload_len)`.
func EncodeMemoryDumpMsg(h MemoryDumpHeader, payloadLen uint32) []byte {
	buf := []byte{VariantMemoryDump}
	nested := encodeDumpHeader(nil, h)
	buf = putTLV(buf, tagMsgDumpHeader, nested)
	buf = putUint32Field(buf, tagMsgPayloadLen, payloadLen)
	buf = append(buf, tagEnd)
	return buf
}

// EncodeFakeNetEventMsg encodes `FakeNetEvent(payload_len)`.
func EncodeFakeNetEventMsg(payloadLen uint32) []byte {
	buf := []byte{VariantFakeNetEvent}
	buf = putUint32Field(buf, tagMsgPayloadLen, payloadLen)
	buf = append(buf, tagEnd)
	return buf
}

// Encoder writes control messages followed by their declared payload to an
// [io.Writer]. The zero value is not usable; use [NewEncoder].
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an [*Encoder] writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteEventHeader writes `EventHeader(header, len(payload))` followed by
// payload. Returns an error if len(payload) exceeds [MaxPayloadLen].
func (e *Encoder) WriteEventHeader(h EventHeader, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("wire: payload of %d bytes exceeds %d-byte ceiling", len(payload), MaxPayloadLen)
	}
	if _, err := e.w.Write(EncodeEventHeaderMsg(h, uint32(len(payload)))); err != nil {
		return err
	}
	_, err := e.w.Write(payload)
	return err
}

// WriteTracingFinished writes the terminal `TracingFinished(count)` frame.
func (e *Encoder) WriteTracingFinished(count uint64) error {
	_, err := e.w.Write(EncodeTracingFinishedMsg(count))
	return err
}

// WriteMemoryDump writes `MemoryDump(header, len(payload))` followed by payload.
func (e *Encoder) WriteMemoryDump(h MemoryDumpHeader, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("wire: payload of %d bytes exceeds %d-byte ceiling", len(payload), MaxPayloadLen)
	}
	if _, err := e.w.Write(EncodeMemoryDumpMsg(h, uint32(len(payload)))); err != nil {
		return err
	}
	_, err := e.w.Write(payload)
	return err
}

// WriteFakeNetEvent writes `FakeNetEvent(len(payload))` followed by payload.
func (e *Encoder) WriteFakeNetEvent(payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("wire: payload of %d bytes exceeds %d-byte ceiling", len(payload), MaxPayloadLen)
	}
	if _, err := e.w.Write(EncodeFakeNetEventMsg(uint32(len(payload)))); err != nil {
		return err
	}
	_, err := e.w.Write(payload)
	return err
}

// Decoder reads control messages and their declared payload from an
// [io.Reader]. The zero value is not usable; use [NewDecoder].
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a [*Decoder] reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

func readByte(r *bufio.Reader) (uint8, error) {
	b, err := r.ReadByte()
	return b, err
}

func readUvarint(r *bufio.Reader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func readExact(r *bufio.Reader, n uint64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, FrameDesync
		}
		return nil, err
	}
	return buf, nil
}

// decodeTLVRecord reads tag/length/value fields until [tagEnd], invoking fn
// for every field encountered. It returns any error fn returns.
func decodeTLVRecord(r *bufio.Reader, fn func(tag uint8, value []byte) error) error {
	for {
		tag, err := readByte(r)
		if err != nil {
			return err
		}
		if tag == tagEnd {
			return nil
		}
		n, err := readUvarint(r)
		if err != nil {
			return err
		}
		value, err := readExact(r, n)
		if err != nil {
			return err
		}
		if err := fn(tag, value); err != nil {
			return err
		}
	}
}

func decodeHeader(r *bufio.Reader) (EventHeader, error) {
	var h EventHeader
	err := decodeTLVRecord(r, func(tag uint8, value []byte) error {
		switch tag {
		case tagHeaderDiscriminator:
			if len(value) != 1 {
				return fmt.Errorf("wire: bad discriminator field length %d", len(value))
			}
			h.Discriminator = Discriminator(value[0])
		case tagHeaderTimestamp:
			if len(value) != 8 {
				return fmt.Errorf("wire: bad timestamp field length %d", len(value))
			}
			h.Timestamp = binary.BigEndian.Uint64(value)
		case tagHeaderPID:
			if len(value) != 4 {
				return fmt.Errorf("wire: bad pid field length %d", len(value))
			}
			h.PID = binary.BigEndian.Uint32(value)
		case tagHeaderTID:
			if len(value) != 4 {
				return fmt.Errorf("wire: bad tid field length %d", len(value))
			}
			h.TID = binary.BigEndian.Uint32(value)
		}
		return nil
	})
	return h, err
}

func decodeDumpHeader(r *bufio.Reader) (MemoryDumpHeader, error) {
	var h MemoryDumpHeader
	err := decodeTLVRecord(r, func(tag uint8, value []byte) error {
		switch tag {
		case tagDumpProcessID:
			if len(value) != 4 {
				return fmt.Errorf("wire: bad process id field length %d", len(value))
			}
			h.ProcessID = binary.BigEndian.Uint32(value)
		case tagDumpBase:
			if len(value) != 8 {
				return fmt.Errorf("wire: bad base field length %d", len(value))
			}
			h.Base = binary.BigEndian.Uint64(value)
		case tagDumpSize:
			if len(value) != 8 {
				return fmt.Errorf("wire: bad size field length %d", len(value))
			}
			h.Size = binary.BigEndian.Uint64(value)
		}
		return nil
	})
	return h, err
}

// Decode reads one control message. If the message declares a trailing
// payload, Decode reads exactly that many bytes and returns them.
//
// Decode returns io.EOF (unwrapped) when the stream ends cleanly between
// frames. It returns [FrameDesync] when a declared payload length exceeds
// [MaxPayloadLen] or the stream ends before the declared payload is fully
// read.
func (d *Decoder) Decode() (Message, []byte, error) {
	variant, err := readByte(d.r)
	if err != nil {
		return Message{}, nil, err
	}

	var msg Message
	msg.Variant = variant

	switch variant {
	case VariantEventHeader:
		err = decodeTLVRecord(d.r, func(tag uint8, value []byte) error {
			switch tag {
			case tagMsgEventHeader:
				h, err := decodeHeader(bufio.NewReader(newByteReader(value)))
				if err != nil {
					return err
				}
				msg.Header = h
			case tagMsgPayloadLen:
				if len(value) != 4 {
					return fmt.Errorf("wire: bad payload_len field length %d", len(value))
				}
				msg.PayloadLen = binary.BigEndian.Uint32(value)
				msg.HasPayload = true
			}
			return nil
		})
	case VariantTracingFinished:
		err = decodeTLVRecord(d.r, func(tag uint8, value []byte) error {
			if tag == tagMsgEventCount {
				if len(value) != 8 {
					return fmt.Errorf("wire: bad event_count field length %d", len(value))
				}
				msg.EventCount = binary.BigEndian.Uint64(value)
			}
			return nil
		})
	case VariantMemoryDump:
		err = decodeTLVRecord(d.r, func(tag uint8, value []byte) error {
			switch tag {
			case tagMsgDumpHeader:
				h, err := decodeDumpHeader(bufio.NewReader(newByteReader(value)))
				if err != nil {
					return err
				}
				msg.DumpHeader = h
			case tagMsgPayloadLen:
				if len(value) != 4 {
					return fmt.Errorf("wire: bad payload_len field length %d", len(value))
				}
				msg.PayloadLen = binary.BigEndian.Uint32(value)
				msg.HasPayload = true
			}
			return nil
		})
	case VariantFakeNetEvent:
		err = decodeTLVRecord(d.r, func(tag uint8, value []byte) error {
			if tag == tagMsgPayloadLen {
				if len(value) != 4 {
					return fmt.Errorf("wire: bad payload_len field length %d", len(value))
				}
				msg.PayloadLen = binary.BigEndian.Uint32(value)
				msg.HasPayload = true
			}
			return nil
		})
	default:
		return Message{}, nil, fmt.Errorf("wire: unknown control message variant %d", variant)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, nil, FrameDesync
		}
		return Message{}, nil, err
	}

	if !msg.HasPayload {
		return msg, nil, nil
	}
	if msg.PayloadLen > MaxPayloadLen {
		return Message{}, nil, FrameDesync
	}
	payload, err := readExact(d.r, uint64(msg.PayloadLen))
	if err != nil {
		return Message{}, nil, err
	}
	return msg, payload, nil
}

// newByteReader avoids importing bytes solely for bytes.NewReader's
// io.Reader+io.ByteReader pair; decodeTLVRecord needs the latter.
func newByteReader(b []byte) *byteReader {
	return &byteReader{b: b}
}

type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}

func (r *byteReader) ReadByte() (byte, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	b := r.b[r.i]
	r.i++
	return b, nil
}
