// Command sectionroute is the operator CLI for a section-routing node: a
// cobra root with subcommand groups for running a node, inspecting its
// section state, and standing up a local multi-node devnet.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{Use: "sectionroute"}
	root.AddCommand(nodeCmd())
	root.AddCommand(sectionCmd())
	root.AddCommand(devnetCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
