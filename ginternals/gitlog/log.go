// Package gitlog implements reverse-chronological traversal of the
// commit graph: starting from one or more tips, visit commits in
// order of decreasing committer timestamp, following every parent
// edge exactly once.
package gitlog

import (
	"container/heap"

	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/object"
)

// Resolver is the subset of the object resolver the walker needs: the
// ability to fetch a commit object by id.
type Resolver interface {
	Resolve(oid ginternals.Oid) (*object.Object, error)
}

// frontierEntry is one pending commit in the priority frontier.
type frontierEntry struct {
	commit *object.Commit
	// seq breaks ties between equal timestamps in a stable,
	// deterministic way (insertion order), since Go's heap is not
	// stable on its own.
	seq int
}

// frontier is a max-heap ordered by committer timestamp, so the most
// recent pending commit is always visited next.
type frontier []*frontierEntry

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	ti := f[i].commit.Committer().Time
	tj := f[j].commit.Committer().Time
	if ti.Equal(tj) {
		return f[i].seq < f[j].seq
	}
	return ti.After(tj)
}
func (f frontier) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(*frontierEntry)) }
func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// Walk visits every commit reachable from tips, in order of
// decreasing committer timestamp, calling fn once per commit. Each
// commit is visited exactly once even if reachable through multiple
// parent paths. Walk stops and returns fn's error the first time fn
// returns a non-nil error.
func Walk(r Resolver, tips []ginternals.Oid, fn func(*object.Commit) error) error {
	seen := make(map[ginternals.Oid]struct{})
	pq := &frontier{}
	heap.Init(pq)
	seq := 0

	push := func(oid ginternals.Oid) error {
		if _, ok := seen[oid]; ok {
			return nil
		}
		seen[oid] = struct{}{}

		o, err := r.Resolve(oid)
		if err != nil {
			return xerrors.Errorf("resolving commit %s: %w", oid, err)
		}
		c, err := o.AsCommit()
		if err != nil {
			return xerrors.Errorf("parsing commit %s: %w", oid, err)
		}
		heap.Push(pq, &frontierEntry{commit: c, seq: seq})
		seq++
		return nil
	}

	for _, tip := range tips {
		if err := push(tip); err != nil {
			return err
		}
	}

	for pq.Len() > 0 {
		entry := heap.Pop(pq).(*frontierEntry)
		if err := fn(entry.commit); err != nil {
			return err
		}
		for _, parent := range entry.commit.ParentIDs() {
			if err := push(parent); err != nil {
				return err
			}
		}
	}

	return nil
}

// OneLine formats a commit the way `log --oneline`-style tooling
// does: "<id> <author>: <message>", with any embedded newlines in the
// message flattened to spaces.
func OneLine(c *object.Commit) string {
	msg := flattenNewlines(c.Message())
	return c.ID().String() + " " + c.Author().Name + ": " + msg
}

func flattenNewlines(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out[i] = ' '
			continue
		}
		out[i] = s[i]
	}
	return string(out)
}
