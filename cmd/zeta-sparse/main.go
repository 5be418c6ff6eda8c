// Command zeta-sparse is the CLI surface for the sparse-checkout pattern
// engine (component E's external collaborator): list, init, set, and
// disable, each driving pkg/sparsecheckout.Controller against a worktree's
// .zeta directory.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
