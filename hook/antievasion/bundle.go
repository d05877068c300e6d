// SPDX-License-Identifier: GPL-3.0-or-later

package antievasion

import (
	"context"

	"github.com/loonaro/sandbox/telemetry"
)

// Bundle wires a [Config] to an [Emitter] and owns the background human
// simulator's lifecycle. The hook package's Windows-specific detours call
// Bundle's per-submodule methods from inside the mutable hooks they
// install; Bundle never installs hooks itself.
type Bundle struct {
	cfg    Config
	emit   Emitter
	logger telemetry.SLogger

	human  *HumanSimulator
	cancel context.CancelFunc
}

// NewBundle returns a [*Bundle] for cfg, publishing spoof events to emit.
func NewBundle(emit Emitter, cfg Config, logger telemetry.SLogger) *Bundle {
	if logger == nil {
		logger = telemetry.DefaultSLogger()
	}
	return &Bundle{cfg: cfg, emit: emit, logger: logger}
}

// Start launches the human simulator if enabled. No-op otherwise.
func (b *Bundle) Start() {
	if !b.cfg.Human {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.human = NewHumanSimulator(NewSystemMover(), b.emit, ScreenMetrics{})
	go b.human.Run(ctx)
}

// Stop stops the human simulator, if running.
func (b *Bundle) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Config returns the bundle's configuration.
func (b *Bundle) Config() Config { return b.cfg }

// Sleep applies the timing sub-module to a requested sleep/wait duration.
func (b *Bundle) Sleep(function string, requestedMs uint64) uint64 {
	return EmitSleep(b.emit, b.cfg.Timing, function, requestedMs)
}

// FileAttributeQuery applies the filesystem sub-module.
func (b *Bundle) FileAttributeQuery(path string) bool {
	return EmitFileAttributeQuery(b.emit, b.cfg.Filesystem, b.cfg.HideList, path)
}

// RegistryKeyOpen applies the registry sub-module.
func (b *Bundle) RegistryKeyOpen(keyPath string) bool {
	return EmitRegistryKeyOpen(b.emit, b.cfg.Registry, b.cfg.HideList, keyPath)
}

// OSQuery applies the os-queries sub-module.
func (b *Bundle) OSQuery(function string) (string, bool) {
	return EmitOSQuery(b.emit, b.cfg, function)
}

// ObjectCreate applies the os-objects sub-module.
func (b *Bundle) ObjectCreate(function, name string) bool {
	return EmitObjectCreate(b.emit, b.cfg.OSObjects, b.cfg.HideList, function, name)
}

// ScreenMetricQuery applies the UI sub-module's screen-metric override.
func (b *Bundle) ScreenMetricQuery(function string, metrics ScreenMetrics) (ScreenMetrics, bool) {
	return EmitScreenMetricQuery(b.emit, b.cfg.UI, metrics, function)
}

// WindowFind applies the UI sub-module's window-hiding decision.
func (b *Bundle) WindowFind(className string) bool {
	return EmitWindowFind(b.emit, b.cfg.UI, className)
}

// PhysicalMemoryQuery applies the os-features sub-module.
func (b *Bundle) PhysicalMemoryQuery(configured, actual uint64) (uint64, bool) {
	return EmitPhysicalMemoryQuery(b.emit, b.cfg.OSFeatures, configured, actual)
}

// ProcessEnumeration applies the processes sub-module.
func (b *Bundle) ProcessEnumeration(images []string) []string {
	return EmitProcessEnumeration(b.emit, b.cfg.Processes, b.cfg.HideList, images)
}

// AdapterEnumeration applies the network (MAC) sub-module.
func (b *Bundle) AdapterEnumeration(mac [6]byte) [6]byte {
	var replacement [3]byte
	if raw, ok := b.cfg.Extra["mac_replacement_oui"]; ok {
		copy(replacement[:], []byte(raw))
	}
	return EmitAdapterEnumeration(b.emit, b.cfg.Network, replacement, mac)
}

// LogicalProcessorQuery applies the CPU sub-module.
func (b *Bundle) LogicalProcessorQuery(configured, actual uint32) (uint32, bool) {
	return EmitLogicalProcessorQuery(b.emit, b.cfg.CPU, configured, actual)
}

// StorageQuery applies the hardware sub-module.
func (b *Bundle) StorageQuery(buf []byte) ([]byte, bool) {
	return EmitStorageQuery(b.emit, b.cfg.Hardware, nil, buf)
}

// screenMetricIndex names the GetSystemMetrics index values this bundle
// knows how to override.
const (
	smCXScreen  = 0
	smCYScreen  = 1
	smCMonitors = 80
)

// ScreenMetricForIndex applies the UI sub-module to a single
// GetSystemMetrics(index) call, mapping the well-known index constants
// to the configured override field they correspond to.
func (b *Bundle) ScreenMetricForIndex(index int, actual int) (int, bool) {
	metrics := ScreenMetrics{}
	switch index {
	case smCXScreen:
		metrics.Width = actual
	case smCYScreen:
		metrics.Height = actual
	case smCMonitors:
		metrics.MonitorCount = actual
	default:
		return actual, false
	}
	out, ok := b.ScreenMetricQuery("GetSystemMetrics", configuredScreenMetrics(b.cfg))
	if !ok {
		return actual, false
	}
	switch index {
	case smCXScreen:
		return out.Width, out.Width != 0
	case smCYScreen:
		return out.Height, out.Height != 0
	default:
		return out.MonitorCount, out.MonitorCount != 0
	}
}

// configuredScreenMetrics reads the UI sub-module's configured overrides
// out of [Config.Extra] (set by the agent alongside the boolean
// category flags).
func configuredScreenMetrics(cfg Config) ScreenMetrics {
	return ScreenMetrics{
		Width:        extraInt(cfg.Extra, "screen_width"),
		Height:       extraInt(cfg.Extra, "screen_height"),
		MonitorCount: extraInt(cfg.Extra, "monitor_count"),
	}
}

// LogicalProcessorOverride applies the CPU sub-module using the
// configured processor count from [Config.Extra].
func (b *Bundle) LogicalProcessorOverride(actual uint32) (uint32, bool) {
	configured := extraInt(b.cfg.Extra, "logical_processors")
	return b.LogicalProcessorQuery(uint32(configured), actual)
}

func extraInt(extra map[string]string, key string) int {
	raw, ok := extra[key]
	if !ok {
		return 0
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// FirmwareQuery applies the firmware sub-module.
func (b *Bundle) FirmwareQuery(function string, buf []byte) ([]byte, bool) {
	return EmitFirmwareQuery(b.emit, b.cfg.Firmware, nil, function, buf)
}
