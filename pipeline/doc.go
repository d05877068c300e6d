// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipeline provides composable primitives for chaining operations
// that can fail, used to express the transport's connect, TLS-handshake,
// cancel-watch and observe stages as a sequence of type-checked stages
// rather than a hand-rolled sequence of if-err-return blocks.
//
// The package is built around a single interface:
//
//	type Func[A, B any] interface {
//		Call(ctx context.Context, input A) (B, error)
//	}
//
// Each Func represents an atomic operation with exactly one success mode
// and one failure mode. [Compose2] through [Compose8] chain Funcs into
// pipelines where the compiler verifies that outputs match inputs across
// stages; if any stage errs, downstream stages are skipped and the error
// propagates immediately.
//
// Resource cleanup contract: when a Func receives a closeable resource as
// input and returns an error, it is responsible for closing that resource
// before returning, so composed pipelines never leak resources on partial
// failure.
package pipeline
