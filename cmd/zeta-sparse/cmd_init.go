package main

import "github.com/spf13/cobra"

func newInitCmd(g *globals) *cobra.Command {
	var cone bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Enable sparse-checkout, seeding the pattern file if absent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController(g)
			if err != nil {
				return err
			}
			return ctrl.Init(cone)
		},
	}
	cmd.Flags().BoolVar(&cone, "cone", false, "use the restricted cone pattern dialect")
	return cmd
}
