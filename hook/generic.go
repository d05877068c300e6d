// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "github.com/loonaro/sandbox/wire"

const genericDiscriminator = wire.DiscriminatorGenericHook

// genericInterpreter builds the {library, function, args[]} event shape
// for a user-supplied generic hook. library is closed over
// per call since, unlike the built-in categories, generic hooks are
// keyed by a caller-chosen (library, function) pair rather than a fixed
// catalog entry.
func genericInterpreter(library string) Interpreter {
	return func(name string, call CallArgs) Event {
		args := make([]uintptr, call.Argc)
		copy(args, call.Args[:call.Argc])
		return Event{
			Discriminator: genericDiscriminator,
			Name:          name,
			Fields: map[string]any{
				"library":  library,
				"function": name,
				"args":     args,
			},
		}
	}
}
