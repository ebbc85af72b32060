package main

import (
	"strings"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/rpcerr"
)

// buildRegistry assembles the procedure table every listener dispatches
// through. A real deployment would register its own domain procedures;
// these built-ins exist so "rpcserver serve" and "rpcserver procedures
// list" are useful out of the box and so the binary-echo scenario (§8
// scenario 1) has a concrete method to exercise.
func buildRegistry() *registry.Registry {
	reg := registry.New()

	reg.Register("", "multiply", registry.NewFuncProcedure(func(a, b int64) int64 {
		return a * b
	}))
	reg.Register("", "echo", registry.NewFuncProcedure(func(s string) string {
		return s
	}))
	reg.Register("", "uppercase", registry.NewFuncProcedure(func(s string) string {
		return strings.ToUpper(s)
	}))
	reg.Register("", "fault", registry.NewFuncProcedure(func(code int64, message string) (int64, error) {
		return 0, rpcerr.Remote(int32(code), message)
	}))

	return reg
}
