package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"
)

func newSetCmd(g *globals) *cobra.Command {
	var cone bool
	var stdin bool
	cmd := &cobra.Command{
		Use:   "set [patterns...]",
		Short: "Replace the active pattern set and reconcile the working tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if stdin {
				read, err := readPatternLines(os.Stdin)
				if err != nil {
					return err
				}
				patterns = append(patterns, read...)
			}
			ctrl, err := newController(g)
			if err != nil {
				return err
			}
			return ctrl.Set(patterns, cone)
		},
	}
	cmd.Flags().BoolVar(&cone, "cone", false, "use the restricted cone pattern dialect")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read additional newline-delimited patterns from stdin")
	return cmd
}

func readPatternLines(f *os.File) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
