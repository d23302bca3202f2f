package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "openwire",
		Short:         "OpenWire reactive component server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("openwire version {{.Version}}\n")

	cmd.AddCommand(
		newServeCmd(),
		newCompileCmd(),
		newComponentsCmd(),
	)
	return cmd
}
