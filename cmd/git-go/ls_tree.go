package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/object"
	"github.com/sim-o/wyag/internal/errutil"
)

func newLsTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree TREE-ISH",
		Short: "List the contents of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return lsTreeCmd(cmd.OutOrStdout(), cfg, args[0])
	}

	return cmd
}

func lsTreeCmd(out io.Writer, cfg *globalFlags, objectName string) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	oid, err := ginternals.NewOidFromStr(objectName)
	if err != nil {
		ref, err := r.GetReference(objectName)
		if err != nil {
			return xerrors.Errorf("could not resolve %s: %w", objectName, err)
		}
		oid = ref.Target()
	}

	o, err := r.GetObject(oid)
	if err != nil {
		return xerrors.Errorf("could not get object %s: %w", objectName, err)
	}

	switch o.Type() {
	case object.TypeCommit:
		c, err := o.AsCommit()
		if err != nil {
			return err
		}
		oid = c.TreeID()
		o, err = r.GetObject(oid)
		if err != nil {
			return xerrors.Errorf("could not get tree %s: %w", oid.String(), err)
		}
	}

	tree, err := o.AsTree()
	if err != nil {
		return xerrors.Errorf("%s is not a tree: %w", objectName, err)
	}

	for _, e := range tree.Entries() {
		fmt.Fprintf(out, "%06o %s %s\t%s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
	}
	return nil
}
