// SPDX-License-Identifier: GPL-3.0-or-later

// Package telemetry provides the structured-logging, error-classification,
// and span-correlation primitives shared by every component in this
// module: [SLogger] (slog-compatible, defaults to a no-op discard logger),
// [ErrClassifier] (defaults to [DefaultErrClassifier], backed by
// github.com/loonaro/sandbox/errclass), and [NewSpanID] (a UUIDv7 the
// collector uses as the event id of each event it forwards).
package telemetry
