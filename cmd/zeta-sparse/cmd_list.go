package main

import (
	"fmt"

	"github.com/antgroup/zeta-sparse/pkg/sparsecheckout"
	"github.com/spf13/cobra"
)

func newListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the active sparse-checkout pattern set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController(g)
			if err != nil {
				return err
			}
			content, err := ctrl.List()
			if err == sparsecheckout.ErrMissingPatternFile {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: this worktree does not have sparse-checkout enabled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
}
