// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import "strconv"

// ScreenMetrics are the configured screen-metric overrides.
type ScreenMetrics struct {
	Width, Height, MonitorCount int
}

// OverrideScreenMetrics returns the configured metrics when UI spoofing
// is enabled and at least one override is non-zero.
func OverrideScreenMetrics(enabled bool, metrics ScreenMetrics) (ScreenMetrics, bool) {
	if !enabled {
		return ScreenMetrics{}, false
	}
	if metrics.Width == 0 && metrics.Height == 0 && metrics.MonitorCount == 0 {
		return ScreenMetrics{}, false
	}
	return metrics, true
}

// vmWindowClasses lists window class names used by common VM guest
// integration tools.
var vmWindowClasses = []string{"VBoxTrayToolWndClass", "VMwareUToolsClass"}

// ShouldHideWindow reports whether a window-find for className should
// return a null handle.
func ShouldHideWindow(enabled bool, className string) bool {
	if !enabled {
		return false
	}
	return containsAny(className, vmWindowClasses)
}

// EmitScreenMetricQuery applies [OverrideScreenMetrics] and publishes the
// UI anti-evasion event when a substitution was made.
func EmitScreenMetricQuery(e Emitter, enabled bool, metrics ScreenMetrics, function string) (ScreenMetrics, bool) {
	out, ok := OverrideScreenMetrics(enabled, metrics)
	if ok {
		e.Emit("anti_evasion_ui", map[string]any{
			"function": function,
			"width":    strconv.Itoa(out.Width),
			"height":   strconv.Itoa(out.Height),
			"monitors": strconv.Itoa(out.MonitorCount),
		})
	}
	return out, ok
}

// EmitWindowFind applies [ShouldHideWindow] and publishes the UI
// anti-evasion event when the window is hidden.
func EmitWindowFind(e Emitter, enabled bool, className string) (hide bool) {
	hide = ShouldHideWindow(enabled, className)
	if hide {
		e.Emit("anti_evasion_ui", map[string]any{"function": "FindWindowW", "class": className, "hidden": true})
	}
	return hide
}
