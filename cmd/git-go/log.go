package main

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/gitlog"
	"github.com/sim-o/wyag/ginternals/object"
	"github.com/sim-o/wyag/internal/errutil"
)

func newLogCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [commit]",
		Short: "Show commit logs",
		Args:  cobra.MaximumNArgs(1),
	}

	oneline := cmd.Flags().Bool("oneline", false, "Print each commit on a single line.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		tip := ginternals.Head
		if len(args) > 0 {
			tip = args[0]
		}
		return logCmd(cmd.OutOrStdout(), cfg, tip, *oneline)
	}

	return cmd
}

func logCmd(out io.Writer, cfg *globalFlags, tip string, oneline bool) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	oid, err := ginternals.NewOidFromStr(tip)
	if err != nil {
		refName := tip
		if refName != ginternals.Head {
			refName = ginternals.LocalBranchFullName(tip)
		}
		ref, err := r.GetReference(refName)
		if err != nil {
			return xerrors.Errorf("could not resolve %s: %w", tip, err)
		}
		oid = ref.Target()
	}

	return r.Log([]ginternals.Oid{oid}, func(c *object.Commit) error {
		if oneline {
			_, err := io.WriteString(out, gitlog.OneLine(c)+"\n")
			return err
		}
		_, err := io.WriteString(out, renderCommit(c))
		return err
	})
}

func renderCommit(c *object.Commit) string {
	s := "commit " + c.ID().String() + "\n"
	s += "Author: " + c.Author().String() + "\n\n"
	s += indent(c.Message()) + "\n"
	return s
}

func indent(s string) string {
	out := "    "
	for _, r := range s {
		out += string(r)
		if r == '\n' {
			out += "    "
		}
	}
	return out
}
