package object

import (
	"bytes"
	"sort"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
)

// TreeObjectMode represents the mode of an object inside a tree.
// Non-standard modes (like 0o100664) are not supported.
type TreeObjectMode int32

const (
	// ModeFile represents the mode to use for a regular file
	ModeFile TreeObjectMode = 0o100644
	// ModeExecutable represents the mode to use for an executable file
	ModeExecutable TreeObjectMode = 0o100755
	// ModeDirectory represents the mode to use for a directory
	ModeDirectory TreeObjectMode = 0o040000
	// ModeSymLink represents the mode to use for a symbolic link
	ModeSymLink TreeObjectMode = 0o120000
	// ModeGitLink represents the mode to use for a gitlink (submodule)
	ModeGitLink TreeObjectMode = 0o160000
)

// IsValid returns whether the mode is a supported mode or not
func (m TreeObjectMode) IsValid() bool {
	switch m {
	case ModeFile, ModeExecutable, ModeDirectory, ModeSymLink, ModeGitLink:
		return true
	default:
		return false
	}
}

// ObjectType returns the object type associated with a mode
func (m TreeObjectMode) ObjectType() Type {
	switch m {
	case ModeDirectory:
		return TypeTree
	case ModeGitLink:
		return TypeCommit
	case ModeExecutable, ModeFile, ModeSymLink:
		return TypeBlob
	default:
		return TypeBlob
	}
}

// Tree represents a tree object: an ordered list of named entries,
// each pointing at a blob, a nested tree, or (for a gitlink) a
// commit in another repository.
type Tree struct {
	rawObject *Object
	// we don't use pointers so that entries stay immutable
	entries []TreeEntry
}

// TreeEntry represents one entry inside a tree.
type TreeEntry struct {
	Path string
	ID   ginternals.Oid
	Mode TreeObjectMode
}

// sortKey returns the byte sequence tree entries sort by: the path,
// with an implicit trailing '/' for directories. This is what makes
// "foo" (a file) sort before "foo.txt" but "foo/" (a directory) sort
// after it, matching how the format disambiguates a directory name
// from a file name that happens to be its prefix.
func (e TreeEntry) sortKey() string {
	if e.Mode == ModeDirectory {
		return e.Path + "/"
	}
	return e.Path
}

// NewTree returns a new tree holding the given entries. Entries are
// reordered into canonical order when the tree is serialized; the
// slice passed in is not required to already be sorted.
func NewTree(entries []TreeEntry) *Tree {
	t := &Tree{entries: entries}
	t.rawObject = t.ToObject()
	return t
}

// NewTreeFromObject parses o as a tree.
//
// Each entry has the format:
//
//	{octal_mode} {path_name}\0{raw 20-byte id}
//
// A tree may have any number of entries, back to back, with no
// separator between them beyond the fixed-width id.
func NewTreeFromObject(o *Object) (*Tree, error) {
	if o.Type() != TypeTree {
		return nil, xerrors.Errorf("type %s is not a tree: %w", o.typ, ErrObjectInvalid)
	}

	entries := []TreeEntry{}

	objData := o.Bytes()
	offset := 0
	for i := 1; offset < len(objData); i++ {
		spc := bytes.IndexByte(objData[offset:], ' ')
		if spc < 0 {
			return nil, xerrors.Errorf("could not retrieve the mode of entry %d: %w", i, ErrTreeInvalid)
		}
		mode, err := strconv.ParseInt(string(objData[offset:offset+spc]), 8, 32)
		if err != nil {
			return nil, xerrors.Errorf("could not parse mode of entry %d: %s: %w", i, err.Error(), ErrTreeInvalid)
		}
		offset += spc + 1

		nul := bytes.IndexByte(objData[offset:], 0)
		if nul < 0 {
			return nil, xerrors.Errorf("could not retrieve the path of entry %d: %w", i, ErrTreeInvalid)
		}
		path := string(objData[offset : offset+nul])
		offset += nul + 1

		if offset+ginternals.OidSize > len(objData) {
			return nil, xerrors.Errorf("not enough space to retrieve the ID of entry %d: %w", i, ErrTreeInvalid)
		}
		id, err := ginternals.NewOidFromBytes(objData[offset : offset+ginternals.OidSize])
		if err != nil {
			return nil, xerrors.Errorf("invalid SHA for entry %d: %w", i, ErrTreeInvalid)
		}
		offset += ginternals.OidSize

		entries = append(entries, TreeEntry{Mode: TreeObjectMode(mode), Path: path, ID: id})
	}

	return &Tree{
		rawObject: o,
		entries:   entries,
	}, nil
}

// Entries returns a copy of the tree's entries: in the order stored
// in the underlying object for a tree parsed by NewTreeFromObject, and
// in the order given to NewTree otherwise (ToObject sorts its own copy).
func (t *Tree) Entries() []TreeEntry {
	out := make([]TreeEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ID returns the tree's identifier.
func (t *Tree) ID() ginternals.Oid {
	return t.rawObject.ID()
}

// ToObject serializes the tree's entries into an Object, sorting
// them into canonical order first: a byte-wise comparison of each
// entry's path, treating directories as if their name ended in '/'.
// Serializing an already-canonical tree reproduces its original
// bytes exactly.
func (t *Tree) ToObject() *Object {
	sorted := make([]TreeEntry, len(t.entries))
	copy(sorted, t.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].sortKey() < sorted[j].sortKey()
	})

	buf := new(bytes.Buffer)
	for _, e := range sorted {
		buf.WriteString(strconv.FormatInt(int64(e.Mode), 8))
		buf.WriteByte(' ')
		buf.WriteString(e.Path)
		buf.WriteByte(0)
		buf.Write(e.ID.Bytes())
	}

	return New(TypeTree, buf.Bytes())
}
