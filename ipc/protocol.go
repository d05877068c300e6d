// SPDX-License-Identifier: GPL-3.0-or-later

// Package ipc implements the local duplex channel between the in-guest
// agent and the injected hook library: a line-delimited JSON
// stream over a named channel, carrying a handshake, the hook
// configuration, and then one event document per line.
package ipc

import "encoding/json"

// Handshake is the client's (hook library's) first line.
type Handshake struct {
	PID         int    `json:"pid"`
	ProcessName string `json:"process_name"`
}

// GenericHookSpec names a user-supplied (library, function, arity) to wrap
// with an arity-specialized trampoline.
type GenericHookSpec struct {
	Library  string `json:"library"`
	Function string `json:"function"`
	Arity    int    `json:"arity"`
}

// TimingConfig configures the timing anti-evasion sub-module.
type TimingConfig struct {
	SkipEnabled        bool    `json:"skip_enabled"`
	ThresholdMs         uint64  `json:"threshold_ms"`
	AccelerationFactor  float64 `json:"acceleration_factor"`
}

// AntiEvasionConfig is the process-wide anti-evasion configuration shipped
// to the hook library as part of [HookConfig].
type AntiEvasionConfig struct {
	Timing      TimingConfig      `json:"timing"`
	Filesystem  bool              `json:"filesystem"`
	Registry    bool              `json:"registry"`
	OSQueries   bool              `json:"os_queries"`
	OSObjects   bool              `json:"os_objects"`
	UI          bool              `json:"ui"`
	OSFeatures  bool              `json:"os_features"`
	Processes   bool              `json:"processes"`
	Network     bool              `json:"network"`
	CPU         bool              `json:"cpu"`
	Hardware    bool              `json:"hardware"`
	Firmware    bool              `json:"firmware"`
	Human       bool              `json:"human"`
	SpoofedUser string            `json:"spoofed_user,omitempty"`
	SpoofedHost string            `json:"spoofed_host,omitempty"`
	HideList    []string          `json:"hide_list,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// HookConfig is the server's (agent's) reply to the handshake: the categories of hooks to install, specific and generic hook
// lists, and the anti-evasion configuration.
type HookConfig struct {
	Categories    []string          `json:"categories"`
	SpecificHooks []string          `json:"specific_hooks"`
	GenericHooks  []GenericHookSpec `json:"generic_hooks"`
	AntiEvasion   AntiEvasionConfig `json:"anti_evasion"`
}

// EventEnvelope is the shape every event line after the handshake takes:
// a discriminating `event_type` tag plus the rest of the document,
// deferred as raw JSON until a consumer needs the typed fields.
type EventEnvelope struct {
	EventType string          `json:"event_type"`
	Fields    json.RawMessage `json:"-"`
}

// UnmarshalJSON implements [json.Unmarshaler], keeping the full document
// (including event_type) available via Fields for re-framing by the agent.
func (e *EventEnvelope) UnmarshalJSON(data []byte) error {
	var probe struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	e.EventType = probe.EventType
	e.Fields = append(json.RawMessage(nil), data...)
	return nil
}
