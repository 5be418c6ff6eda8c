package main

import "github.com/spf13/cobra"

func newDisableCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable sparse-checkout and restore the full working tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController(g)
			if err != nil {
				return err
			}
			return ctrl.Disable()
		},
	}
}
