// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

// SpoofedUserName returns the configured user name to report, if
// configured and querying is enabled.
func SpoofedUserName(cfg Config) (string, bool) {
	if !cfg.OSQueries || cfg.SpoofedUser == "" {
		return "", false
	}
	return cfg.SpoofedUser, true
}

// SpoofedComputerName returns the configured computer name to report.
func SpoofedComputerName(cfg Config) (string, bool) {
	if !cfg.OSQueries || cfg.SpoofedHost == "" {
		return "", false
	}
	return cfg.SpoofedHost, true
}

// HideDebugger reports whether a debugger-present query should report
// false regardless of the real state.
func HideDebugger(cfg Config) bool {
	return cfg.OSQueries
}

// EmitOSQuery applies the relevant spoof for function and publishes the
// os-query anti-evasion event when a substitution was made.
func EmitOSQuery(e Emitter, cfg Config, function string) (value string, substituted bool) {
	switch function {
	case "GetUserNameW":
		value, substituted = SpoofedUserName(cfg)
	case "GetComputerNameW":
		value, substituted = SpoofedComputerName(cfg)
	case "IsDebuggerPresent", "CheckRemoteDebuggerPresent":
		if HideDebugger(cfg) {
			substituted = true
		}
	}
	if substituted {
		e.Emit("anti_evasion_os_queries", map[string]any{"function": function, "value": value})
	}
	return value, substituted
}
