// SPDX-License-Identifier: GPL-3.0-or-later

// Package sandbox documents the loonaro malware-analysis sandbox: the
// observation pipeline and trust spine that execute an untrusted binary
// inside an isolated guest, observe it from multiple vantage points, and
// stream those observations to a host-side collector over a
// mutually-authenticated channel.
//
// # Packages
//
// Producers, in the guest:
//
//   - [github.com/loonaro/sandbox/tracing]: subscribes to the OS kernel-event
//     stream and parses vendor-defined binary payloads into typed events.
//   - [github.com/loonaro/sandbox/hook]: injects a shared library into the
//     target process and installs inline detours on system functions.
//   - [github.com/loonaro/sandbox/hook/antievasion]: the detour policies that
//     hide common virtualization/analysis indicators from the target.
//   - [github.com/loonaro/sandbox/ipc]: the local duplex channel between the
//     injected hook library and the in-guest agent.
//   - [github.com/loonaro/sandbox/egress]: the agent's bounded outbound queue
//     and its drain loop to the transport.
//   - [github.com/loonaro/sandbox/fakenet]: the DNS/HTTP responder that
//     answers guest network traffic from a priority-ordered rule engine.
//
// Wire format and transport:
//
//   - [github.com/loonaro/sandbox/wire]: the canonical binary framing codec.
//   - [github.com/loonaro/sandbox/transport]: per-session PKI issuance and
//     the mutually-authenticated TLS channel.
//
// Host side:
//
//   - [github.com/loonaro/sandbox/collector]: terminates the transport,
//     decodes frames, persists artifacts, and forwards events to the
//     external event store.
//   - [github.com/loonaro/sandbox/orchestrator]: the per-submission
//     lifecycle — stage, spawn the collector (which issues the session
//     PKI), wait for agent_config.json, launch, enforce duration, clean up.
//
// Ambient:
//
//   - [github.com/loonaro/sandbox/telemetry]: structured logging, error
//     classification, and span correlation, shared by every package above.
//   - [github.com/loonaro/sandbox/errclass]: the syscall/stdlib error
//     classifier behind [github.com/loonaro/sandbox/telemetry.ErrClassifier].
//   - [github.com/loonaro/sandbox/pipeline]: the generic Func/Compose
//     pipeline primitives that the transport's connect, TLS-handshake,
//     cancel-watch and observe stages implement.
//
// # Scope
//
// The REST submission front-end, the downstream columnar event store, the
// policy-script evaluator, the YARA static scanner, and the
// hypervisor/sandbox-image launcher are external collaborators, declared
// here only through the interfaces this module calls.
package sandbox
