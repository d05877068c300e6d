// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "github.com/loonaro/sandbox/wire"

// processInterpreter builds the remote thread create/resume/set-context
// events: {target-process, start-address, flags} /
// {thread, previous-suspend-count} / {thread}.
func processInterpreter(name string, call CallArgs) Event {
	switch name {
	case "CreateRemoteThread":
		return Event{
			Discriminator: wire.DiscriminatorThreadCreate,
			Name:          name,
			Fields: map[string]any{
				"target_process": call.Arg(0),
				"start_address":  call.Arg(3),
				"flags":          call.Arg(5),
			},
		}
	case "ResumeThread":
		return Event{
			Discriminator: wire.DiscriminatorThreadResume,
			Name:          name,
			Fields: map[string]any{
				"thread":                  call.Arg(0),
				"previous_suspend_count": call.Ret,
			},
		}
	default: // SetThreadContext
		return Event{
			Discriminator: wire.DiscriminatorThreadSetContext,
			Name:          name,
			Fields: map[string]any{
				"thread": call.Arg(0),
			},
		}
	}
}
