//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package hook

// unsupportedPatcher reports errPatchUnsupported for every operation. The
// sandbox guest is always Windows; this exists so the package builds (and
// its function-table-level tests run) on the host platforms this module
// is developed from.
type unsupportedPatcher struct{}

func newPatcher() Patcher { return unsupportedPatcher{} }

var _ Patcher = unsupportedPatcher{}

func (unsupportedPatcher) Install(target, detour Address) ([]byte, error) {
	return nil, errPatchUnsupported
}

func (unsupportedPatcher) Restore(target Address, saved []byte) error {
	return errPatchUnsupported
}
