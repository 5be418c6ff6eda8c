package main

import (
	"path/filepath"

	"github.com/antgroup/zeta-sparse/modules/index"
	"github.com/antgroup/zeta-sparse/modules/objstore"
	"github.com/antgroup/zeta-sparse/modules/trace"
	"github.com/antgroup/zeta-sparse/modules/unpack"
	"github.com/antgroup/zeta-sparse/modules/vfs"
	"github.com/antgroup/zeta-sparse/pkg/sparsecheckout"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globals struct {
	gitDir  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "zeta-sparse",
		Short:         "Restrict a worktree to a subset of tracked files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.gitDir, "git-dir", ".zeta", "path to the repository's control directory")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "print step timing to stderr")

	var tracker *trace.Tracker
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if g.verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		tracker = trace.NewTracker(g.verbose)
		tracker.StepNext("%s starting", cmd.Name())
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if tracker != nil {
			tracker.StepNext("%s done", cmd.Name())
		}
	}

	root.AddCommand(
		newListCmd(g),
		newInitCmd(g),
		newSetCmd(g),
		newDisableCmd(g),
	)
	return root
}

// newController opens the index and object-store collaborators rooted at
// g.gitDir's parent directory and wires them into a Controller. Reading
// the object store and resolving HEAD are this system's external
// collaborator boundary, so newController always treats HEAD as present
// but empty, matching how DefaultUnpacker only consults it to detect a
// fresh repository.
func newController(g *globals) (*sparsecheckout.Controller, error) {
	gitDir, err := filepath.Abs(g.gitDir)
	if err != nil {
		return nil, err
	}
	root := filepath.Dir(gitDir)

	idx, err := index.Load(filepath.Join(gitDir, "index"))
	if err != nil {
		return nil, err
	}
	store := objstore.NewMemory()
	fs := vfs.NewVFS(root)
	u := unpack.New(store, idx, fs, root)

	head := func() (*objstore.Tree, error) { return &objstore.Tree{}, nil }
	return sparsecheckout.New(gitDir, u, head), nil
}
