//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package tracing

import (
	"context"
	"fmt"
	"time"
)

// NewWindowsEventSource is unavailable on non-Windows builds. The sandbox
// guest is always Windows; this stub exists only so the package
// builds on the host platforms this module is developed and tested from.
func NewWindowsEventSource(sessionName string, providerGUIDs []ProviderGUID, providerIDs []string) EventSource {
	return unsupportedEventSource{providerIDs: providerIDs}
}

type unsupportedEventSource struct {
	providerIDs []string
}

var _ EventSource = unsupportedEventSource{}

func (s unsupportedEventSource) Providers() []string { return s.providerIDs }

func (s unsupportedEventSource) Run(_ context.Context, _ time.Duration, _ Callback) error {
	return fmt.Errorf("tracing: ETW event source is only available on windows")
}
