//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "fmt"

// unsupportedResolver reports an error for every lookup. See
// [unsupportedPatcher] for why this package still builds off Windows.
type unsupportedResolver struct{}

func newResolver() Resolver { return unsupportedResolver{} }

var _ Resolver = unsupportedResolver{}

func (unsupportedResolver) Resolve(library, function string) (Address, error) {
	return 0, fmt.Errorf("hook: function resolution is only available on windows (wanted %s!%s)", library, function)
}
