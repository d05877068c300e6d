// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "github.com/loonaro/sandbox/wire"

// networkInterpreter builds the event fields for connect ({endpoint,
// sockaddr, namelen}), send and recv ({endpoint, bytes}) and WinHttpOpen
// ({access_type, session}).
//
// sockaddr is recorded as the raw pointer ws2_32 passes; the address and
// URL contents behind such pointers are not decoded.
func networkInterpreter(name string, call CallArgs) Event {
	switch name {
	case "connect":
		return Event{
			Discriminator: wire.DiscriminatorHTTPRequest,
			Name:          name,
			Fields: map[string]any{
				"endpoint":   call.Arg(0),
				"sockaddr":   call.Arg(1),
				"namelen":    call.Arg(2),
			},
		}
	case "send":
		return Event{
			Discriminator: wire.DiscriminatorHTTPRequest,
			Name:          name,
			Fields: map[string]any{
				"endpoint": call.Arg(0),
				"bytes":    call.Arg(2),
			},
		}
	case "recv":
		return Event{
			Discriminator: wire.DiscriminatorHTTPRequest,
			Name:          name,
			Fields: map[string]any{
				"endpoint": call.Arg(0),
				"bytes":    call.Ret,
			},
		}
	default: // WinHttpOpen
		return Event{
			Discriminator: wire.DiscriminatorHTTPRequest,
			Name:          name,
			Fields: map[string]any{
				"access_type": call.Arg(1),
				"session":     call.Ret,
			},
		}
	}
}
