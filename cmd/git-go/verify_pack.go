package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/packfile"
)

func newVerifyPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-pack PACKFILE...",
		Short: "Validate packed git archive files",
		Args:  cobra.MinimumNArgs(1),
	}

	verbose := cmd.Flags().BoolP("verbose", "v", false, "Show objects contained in the pack.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return verifyPackCmd(cmd.OutOrStdout(), args, *verbose)
	}

	return cmd
}

func verifyPackCmd(out io.Writer, paths []string, verbose bool) error {
	for _, p := range paths {
		if err := verifyPackFile(out, p, verbose); err != nil {
			return xerrors.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func verifyPackFile(out io.Writer, path string, verbose bool) error {
	if !strings.HasSuffix(path, packfile.ExtPackfile) {
		path += packfile.ExtPackfile
	}

	pack, err := packfile.NewFromFile(afero.NewOsFs(), filepath.Clean(path))
	if err != nil {
		return err
	}
	defer pack.Close() //nolint:errcheck

	if verbose {
		err = pack.WalkEntries(func(oid ginternals.Oid, offset uint64, entry *packfile.Entry) error {
			fmt.Fprintf(out, "%s %s %d %d\n", oid.String(), entry.Type.String(), len(entry.Data), offset)
			return nil
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%s: ok, %d objects\n", pack.ID().String(), pack.ObjectCount())
	return nil
}
