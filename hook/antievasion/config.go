// SPDX-License-Identifier: GPL-3.0-or-later

// Package antievasion implements the twelve anti-evasion sub-modules plus
// the background "human" simulator: decision functions that
// hide virtualization/analysis indicators from a monitored process by
// rewriting what certain OS queries return.
//
// Every decision function here is pure: given a configuration and the
// observed inputs, it returns what (if anything) should be substituted
// for the real value. This package never touches process memory or
// patches code itself — that belongs to the Windows-specific hook
// installation in the parent hook package, which calls these functions
// from inside its own detours and applies the returned substitution.
// Keeping these functions pure is also what makes every spoof decision
// here testable on any host platform, not only Windows.
package antievasion

// TimingConfig configures the timing sub-module.
type TimingConfig struct {
	SkipEnabled        bool
	ThresholdMs        uint64
	AccelerationFactor float64
}

// Config is the process-wide anti-evasion configuration.
type Config struct {
	Timing      TimingConfig
	Filesystem  bool
	Registry    bool
	OSQueries   bool
	OSObjects   bool
	UI          bool
	OSFeatures  bool
	Processes   bool
	Network     bool
	CPU         bool
	Hardware    bool
	Firmware    bool
	Human       bool
	SpoofedUser string
	SpoofedHost string
	HideList    []string
	Extra       map[string]string
}

// Emitter publishes one anti-evasion action event. Every anti-evasion
// action MUST emit an event describing the spoof so the collector can
// reconstruct ground truth.
type Emitter interface {
	Emit(kind string, fields map[string]any)
}
