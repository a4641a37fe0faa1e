package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func sectionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "section", Short: "section-level diagnostics"}
	invariants := &cobra.Command{
		Use:   "invariants",
		Short: "trigger a manual invariant check against a running node",
		Args:  cobra.NoArgs,
		RunE:  sectionInvariants,
	}
	invariants.Flags().StringVar(&diagnosticsAddr, "diagnostics-addr", "127.0.0.1:8090", "address of the diagnostics HTTP server")
	cmd.AddCommand(invariants)
	return cmd
}

func sectionInvariants(cmd *cobra.Command, _ []string) error {
	body, err := postJSON(fmt.Sprintf("http://%s/invariants/check", diagnosticsAddr))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), body)
	return nil
}
