//
// SPDX-License-Identifier: GPL-3.0-or-later
//

// Package tracing implements the event-tracing producer: it subscribes to
// the host OS's kernel-event infrastructure, parses vendor-defined binary
// payloads into typed records, and enqueues {control-frame, payload-bytes}
// messages onto the agent's egress queue.
package tracing

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// ParseError is returned by a payload parser when a field cannot be
// decoded, carrying the failing field's name.
//
// On a ParseError the caller logs once and forwards the raw payload
// unchanged — a parse failure never drops the observation.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tracing: parse field %q: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// errShortBuffer is wrapped into a [ParseError] whenever a read would run
// past the end of the payload.
type errShortBuffer struct {
	field      string
	need, have int
}

func (e *errShortBuffer) Error() string {
	return fmt.Sprintf("need %d bytes, have %d", e.need, e.have)
}

// cursor is the small bounds-checking combinator every parser in this
// package is built on.
// Every read either succeeds or returns a [ParseError] naming the field
// that ran out of buffer.
type cursor struct {
	buf []byte
	off int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) bytes(field string, n int) ([]byte, error) {
	if c.remaining() < n {
		return nil, &ParseError{Field: field, Err: &errShortBuffer{field, n, c.remaining()}}
	}
	v := c.buf[c.off : c.off+n]
	c.off += n
	return v, nil
}

func (c *cursor) skip(field string, n int) error {
	_, err := c.bytes(field, n)
	return err
}

func (c *cursor) u16le(field string) (uint16, error) {
	b, err := c.bytes(field, 2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (c *cursor) u32le(field string) (uint32, error) {
	b, err := c.bytes(field, 4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (c *cursor) u64le(field string) (uint64, error) {
	b, err := c.bytes(field, 8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func (c *cursor) i32le(field string) (int32, error) {
	v, err := c.u32le(field)
	return int32(v), err
}

func (c *cursor) u16be(field string) (uint16, error) {
	b, err := c.bytes(field, 2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (c *cursor) u32be(field string) (uint32, error) {
	b, err := c.bytes(field, 4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (c *cursor) ipv4be(field string) (string, error) {
	b, err := c.bytes(field, 4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3]), nil
}

// utf16le decodes a NUL-terminated UTF-16LE string starting at the
// cursor's current offset, advancing past the terminator. This is the
// vendor encoding ETW uses for string tails (image name, command line,
// registry key name, DNS query name).
func (c *cursor) utf16le(field string) (string, error) {
	start := c.off
	i := start
	for {
		if i+1 >= len(c.buf) {
			c.off = len(c.buf)
			return "", &ParseError{Field: field, Err: &errShortBuffer{field, 2, len(c.buf) - i}}
		}
		if c.buf[i] == 0 && c.buf[i+1] == 0 {
			break
		}
		i += 2
	}
	raw := c.buf[start:i]
	c.off = i + 2
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return "", &ParseError{Field: field, Err: err}
	}
	return string(decoded), nil
}

// cstring reads a NUL-terminated ASCII/UTF-8 string.
func (c *cursor) cstring(field string) (string, error) {
	start := c.off
	i := start
	for {
		if i >= len(c.buf) {
			c.off = len(c.buf)
			return "", &ParseError{Field: field, Err: &errShortBuffer{field, 1, len(c.buf) - i}}
		}
		if c.buf[i] == 0 {
			break
		}
		i++
	}
	s := string(c.buf[start:i])
	c.off = i + 1
	return s, nil
}
