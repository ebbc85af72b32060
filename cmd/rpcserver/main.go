// Command rpcserver is the composition root for the multi-protocol RPC
// stack: it wires internal/config, internal/log, the procedure registry,
// the binary reactor, and the XML-RPC/JSON-RPC HTTP adapters together,
// reproducing (in cobra idiom) what original_source/cxxtools/src/bin's
// rpcserver.cpp/rpcserverimpl.cpp do as a concrete binary — the
// distillation describes the server surface abstractly (§6) but drops the
// entrypoint itself (see SPEC_FULL.md §9 supplemented features).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "rpcserver",
		Short: "multi-protocol RPC server (binary, XML-RPC, JSON-RPC)",
	}
	RegisterServe(root)
	RegisterProcedures(root)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
