package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// CheckWitness checks witness of the passed caller.
// It panics with the given message on fail.
func CheckWitness(caller interop.Hash160, panicMsg string) {
	if !runtime.CheckWitness(caller) {
		panic(panicMsg)
	}
}

// IsValidHash160 checks that h has the length of the script hash.
func IsValidHash160(h interop.Hash160) bool {
	return len(h) == interop.Hash160Len
}
