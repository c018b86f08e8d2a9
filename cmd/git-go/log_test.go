package main

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	git "github.com/sim-o/wyag"
	"github.com/sim-o/wyag/env"
	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/config"
	"github.com/sim-o/wyag/ginternals/object"
)

// newTestRepoWithCommit initializes a repository, writes a single
// commit directly through the Go API (the CLI has no "commit"
// subcommand), and points a branch ref named branchName at it. It
// returns the repository path and the commit's id.
func newTestRepoWithCommit(t *testing.T, branchName, message string) (repoPath string, commitOid ginternals.Oid) {
	t.Helper()

	dir := t.TempDir()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	cmd := newRootCmd(cwd, env.NewFromOs())
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"-C", dir, "init"})
	require.NoError(t, cmd.Execute())

	p, err := config.LoadConfig(env.NewFromOs(), config.LoadConfigOptions{
		WorkingDirectory: dir,
	})
	require.NoError(t, err)

	r, err := git.OpenRepositoryWithParams(p, git.OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })

	tree := object.New(object.TypeTree, nil)
	treeOid, err := r.WriteObject(tree)
	require.NoError(t, err)

	c := object.NewCommit(
		treeOid,
		object.Signature{Name: "author", Email: "author@domain.tld", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		&object.CommitOptions{Message: message},
	)
	o := c.ToObject()
	oid, err := r.WriteObject(o)
	require.NoError(t, err)

	_, err = r.NewReference(ginternals.LocalBranchFullName(branchName), oid)
	require.NoError(t, err)

	return dir, oid
}

func TestLogResolvesShortBranchName(t *testing.T) {
	t.Parallel()

	repoPath, commitOid := newTestRepoWithCommit(t, "feature", "first commit")

	cwd, err := os.Getwd()
	require.NoError(t, err)

	out := bytes.NewBufferString("")
	cmd := newRootCmd(cwd, env.NewFromOs())
	cmd.SetOut(out)
	cmd.SetArgs([]string{"-C", repoPath, "log", "--oneline", "feature"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), commitOid.String())
	assert.Contains(t, out.String(), "first commit")
}
