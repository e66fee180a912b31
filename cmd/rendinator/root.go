package main

import (
	"github.com/spf13/cobra"

	"github.com/SebastianRueClausen/rendinator-sub000/logging"
)

var verbose bool

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rendinator",
		Short:         "Condition glTF scenes and fonts into renderer-ready assets",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(*cobra.Command, []string) {
			logging.SetVerbose(verbose)
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.AddCommand(newGLTFCmd(), newFontCmd())
	return cmd
}
