//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop (tagged Func/Config conventions)
//

// Package wire implements the canonical binary framing codec carried on the
// authenticated transport between the in-guest agent and the host-side
// collector.
//
// A frame is a control message followed by, when the control message
// declares one, exactly that many trailing opaque payload bytes. There are
// no framing escape codes: a well-formed frame boundary is always uniquely
// recoverable from the byte stream, because every field is a tag/length/
// value triple and every record ends with an explicit end-of-record tag.
//
// No CBOR library is present in the retrieval pack this module was built
// from; the tag/length/value encoding below is a small hand-rolled
// equivalent of "CBOR-style self-describing records" (see DESIGN.md for the
// standard-library justification).
package wire

import "fmt"

// Discriminator identifies the kind of observation an [EventHeader] carries.
type Discriminator uint8

// Discriminator values, stable across the wire.
const (
	DiscriminatorProcessCreate Discriminator = iota + 1
	DiscriminatorProcessTerminate
	DiscriminatorFileCreate
	DiscriminatorRegistrySet
	DiscriminatorTCPConnect
	DiscriminatorDNSQuery
	DiscriminatorMemoryAlloc
	DiscriminatorMemoryWrite
	DiscriminatorMemoryProtect
	DiscriminatorThreadCreate
	DiscriminatorThreadResume
	DiscriminatorThreadSetContext
	DiscriminatorCryptoOp
	DiscriminatorHTTPRequest
	DiscriminatorFakeNetEvent
	DiscriminatorTiming
	DiscriminatorGenericHook
	DiscriminatorAntiEvasionAction
	DiscriminatorStatus
)

// String implements [fmt.Stringer] for logging.
func (d Discriminator) String() string {
	switch d {
	case DiscriminatorProcessCreate:
		return "process-create"
	case DiscriminatorProcessTerminate:
		return "process-terminate"
	case DiscriminatorFileCreate:
		return "file-create"
	case DiscriminatorRegistrySet:
		return "registry-set"
	case DiscriminatorTCPConnect:
		return "tcp-connect"
	case DiscriminatorDNSQuery:
		return "dns-query"
	case DiscriminatorMemoryAlloc:
		return "memory-alloc"
	case DiscriminatorMemoryWrite:
		return "memory-write"
	case DiscriminatorMemoryProtect:
		return "memory-protect"
	case DiscriminatorThreadCreate:
		return "thread-create"
	case DiscriminatorThreadResume:
		return "thread-resume"
	case DiscriminatorThreadSetContext:
		return "thread-set-context"
	case DiscriminatorCryptoOp:
		return "crypto-op"
	case DiscriminatorHTTPRequest:
		return "http-request"
	case DiscriminatorFakeNetEvent:
		return "fakenet-event"
	case DiscriminatorTiming:
		return "timing"
	case DiscriminatorGenericHook:
		return "generic-hook"
	case DiscriminatorAntiEvasionAction:
		return "anti-evasion-action"
	case DiscriminatorStatus:
		return "status"
	default:
		return fmt.Sprintf("discriminator(%d)", uint8(d))
	}
}

// MaxPayloadLen is the per-message payload ceiling: 64 KiB.
const MaxPayloadLen = 64 * 1024

// EventHeader is the fixed-shape record carried before every observation
// payload. It is immutable once constructed.
type EventHeader struct {
	// Discriminator identifies the observation kind.
	Discriminator Discriminator

	// Timestamp is a monotonic timestamp in units defined by the emitting
	// producer (ETW ticks for [tracing], a process-relative counter for
	// [hook]).
	Timestamp uint64

	// PID is the originating process id.
	PID uint32

	// TID is the originating thread id.
	TID uint32
}

// MemoryDumpHeader accompanies the MemoryDump control message: a named dump region captured
// alongside a memory hook event.
type MemoryDumpHeader struct {
	ProcessID uint32
	Base      uint64
	Size      uint64
}
