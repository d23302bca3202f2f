package main

import (
	"fmt"

	"github.com/pthm/openwire"
	"github.com/pthm/openwire/internal/demo"
	"github.com/spf13/cobra"
)

func newComponentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "List the component and block aliases the server registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := openwire.NewRegistry()
			demo.Init(reg, nil)
			for _, name := range reg.Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
