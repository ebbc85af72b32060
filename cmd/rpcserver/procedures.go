package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func runProceduresList(cmd *cobra.Command, _ []string) error {
	reg := buildRegistry()
	methods := reg.Methods()
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintln(cmd.OutOrStdout(), m)
	}
	return nil
}

// RegisterProcedures installs the "procedures" command group on root.
func RegisterProcedures(root *cobra.Command) {
	proceduresCmd := &cobra.Command{
		Use:   "procedures",
		Short: "inspect the procedure registry",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list every registered procedure name",
		RunE:  runProceduresList,
	}
	proceduresCmd.AddCommand(listCmd)
	root.AddCommand(proceduresCmd)
}
