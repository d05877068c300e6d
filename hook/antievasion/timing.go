// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

// Accelerate decides what a sleep/wait call actually waits for. With
// skipping disabled, requestedMs is returned unchanged. Otherwise a request
// above threshold is clamped to threshold, and a request at or below it is
// divided by the acceleration factor (a factor <= 0 counts as 1).
func Accelerate(cfg TimingConfig, requestedMs uint64) (actualMs uint64, skipped bool) {
	if !cfg.SkipEnabled {
		return requestedMs, false
	}
	if requestedMs > cfg.ThresholdMs {
		return cfg.ThresholdMs, true
	}
	factor := cfg.AccelerationFactor
	if factor <= 0 {
		factor = 1
	}
	actual := uint64(float64(requestedMs) / factor)
	return actual, actual != requestedMs
}

// EmitSleep applies [Accelerate] and publishes the timing event.
func EmitSleep(e Emitter, cfg TimingConfig, function string, requestedMs uint64) uint64 {
	actual, skipped := Accelerate(cfg, requestedMs)
	e.Emit("timing", map[string]any{
		"function":  function,
		"requested": requestedMs,
		"actual":    actual,
		"skipped":   skipped,
	})
	return actual
}
