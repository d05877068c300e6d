// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import (
	"testing"

	"github.com/loonaro/sandbox/telemetry"
)

func TestBundleScreenMetricForIndex(t *testing.T) {
	emitter := &recordingEmitter{}
	bundle := NewBundle(emitter, Config{
		UI: true,
		Extra: map[string]string{
			"screen_width":  "1024",
			"screen_height": "768",
			"monitor_count": "1",
		},
	}, telemetry.DefaultSLogger())

	width, ok := bundle.ScreenMetricForIndex(smCXScreen, 1920)
	if !ok || width != 1024 {
		t.Fatalf("got (%d, %v), want (1024, true)", width, ok)
	}
	height, ok := bundle.ScreenMetricForIndex(smCYScreen, 1080)
	if !ok || height != 768 {
		t.Fatalf("got (%d, %v), want (768, true)", height, ok)
	}
	monitors, ok := bundle.ScreenMetricForIndex(smCMonitors, 2)
	if !ok || monitors != 1 {
		t.Fatalf("got (%d, %v), want (1, true)", monitors, ok)
	}
	// An index this bundle has no mapping for passes the actual value through.
	other, ok := bundle.ScreenMetricForIndex(999, 42)
	if ok || other != 42 {
		t.Fatalf("got (%d, %v), want (42, false)", other, ok)
	}
}

func TestBundleScreenMetricForIndexDisabled(t *testing.T) {
	bundle := NewBundle(&recordingEmitter{}, Config{UI: false}, telemetry.DefaultSLogger())
	width, ok := bundle.ScreenMetricForIndex(smCXScreen, 1920)
	if ok || width != 1920 {
		t.Fatalf("got (%d, %v), want (1920, false)", width, ok)
	}
}

func TestBundleLogicalProcessorOverride(t *testing.T) {
	bundle := NewBundle(&recordingEmitter{}, Config{
		CPU:   true,
		Extra: map[string]string{"logical_processors": "16"},
	}, telemetry.DefaultSLogger())

	reported, ok := bundle.LogicalProcessorOverride(2)
	if !ok || reported != 16 {
		t.Fatalf("got (%d, %v), want (16, true)", reported, ok)
	}
}

func TestExtraIntMissingOrMalformedKeysDefaultToZero(t *testing.T) {
	if v := extraInt(nil, "missing"); v != 0 {
		t.Fatalf("got %d, want 0", v)
	}
	if v := extraInt(map[string]string{"k": "not-a-number"}, "k"); v != 0 {
		t.Fatalf("got %d, want 0", v)
	}
	if v := extraInt(map[string]string{"k": "123"}, "k"); v != 123 {
		t.Fatalf("got %d, want 123", v)
	}
}

func TestBundleStartStopHumanSimulator(t *testing.T) {
	bundle := NewBundle(&recordingEmitter{}, Config{Human: true}, telemetry.DefaultSLogger())
	bundle.Start()
	bundle.Stop()
}

func TestBundleStartNoopWhenHumanDisabled(t *testing.T) {
	bundle := NewBundle(&recordingEmitter{}, Config{Human: false}, telemetry.DefaultSLogger())
	bundle.Start()
	bundle.Stop()
}
