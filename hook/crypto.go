// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import "github.com/loonaro/sandbox/wire"

// cryptoInterpreter builds the {operation, input-size, output-size,
// success} event shape shared by the legacy (CryptEncrypt/CryptDecrypt/
// CryptHashData) and modern (BCryptEncrypt/BCryptDecrypt) crypto hooks.
func cryptoInterpreter(name string, call CallArgs) Event {
	var inputSize uintptr
	switch name {
	case "CryptEncrypt", "CryptDecrypt":
		inputSize = call.Arg(4)
	case "CryptHashData":
		inputSize = call.Arg(2)
	default: // BCryptEncrypt, BCryptDecrypt
		inputSize = call.Arg(2)
	}
	return Event{
		Discriminator: wire.DiscriminatorCryptoOp,
		Name:          name,
		Fields: map[string]any{
			"operation":   name,
			"input_size":  inputSize,
			"output_size": call.Arg(3),
			"success":     call.Ret != 0,
		},
	}
}
