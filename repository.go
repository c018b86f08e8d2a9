// Package git ties together the configuration, object database and
// reference store into a single repository handle, mirroring the
// porcelain/plumbing split of the real git CLI.
package git

import (
	"os"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/backend"
	"github.com/sim-o/wyag/backend/fsbackend"
	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/config"
	"github.com/sim-o/wyag/ginternals/gitlog"
	"github.com/sim-o/wyag/ginternals/object"
)

// ErrRepositoryExists is returned by InitRepositoryWithParams when its
// target directory already exists and is not empty.
var ErrRepositoryExists = backend.ErrRepositoryExists

// Repository represents a git repository: its configuration and its
// object/reference database.
type Repository struct {
	Config *config.Config

	backend backend.Backend
}

// InitOptions contains the options used to customize the creation of
// a new repository.
type InitOptions struct {
	// IsBare states whether the repository should have a working
	// directory or not.
	IsBare bool
	// InitialBranchName is the name of the branch HEAD will point to.
	// Defaults to ginternals.Master.
	InitialBranchName string
	// Symlink states whether the git directory is expected to live
	// somewhere else than its default location, in which case a
	// ".git" file pointing to it is left behind instead of a regular
	// directory. Only meaningful for non-bare repositories.
	Symlink bool
}

// InitRepositoryWithParams creates a new repository using the given
// config. The target git directory must not exist, or must exist and
// be empty: running it on top of an already-initialized repository
// fails with ErrRepositoryExists rather than touching anything that's
// there.
func InitRepositoryWithParams(cfg *config.Config, opts InitOptions) (*Repository, error) {
	b, err := fsbackend.New(ginternals.DotGitPath(cfg))
	if err != nil {
		return nil, xerrors.Errorf("could not create backend: %w", err)
	}
	if err := b.Init(); err != nil {
		if xerrors.Is(err, backend.ErrRepositoryExists) {
			return nil, ErrRepositoryExists
		}
		return nil, xerrors.Errorf("could not initialize repository: %w", err)
	}

	if opts.Symlink {
		if err := writeGitDirSymlink(cfg, b.Fs()); err != nil {
			return nil, xerrors.Errorf("could not create .git symlink file: %w", err)
		}
	}

	branch := opts.InitialBranchName
	if branch == "" {
		branch = ginternals.Master
	}
	head := ginternals.NewSymbolicReference(ginternals.Head, ginternals.LocalBranchFullName(branch))
	if err := b.WriteReference(head); err != nil {
		return nil, xerrors.Errorf("could not write HEAD: %w", err)
	}

	return &Repository{Config: cfg, backend: b}, nil
}

// writeGitDirSymlink writes a text file at the conventional ./.git
// location, containing a pointer to the repository's actual git
// directory, the way --separate-git-dir does. It goes through fs
// rather than the os package directly, so it honors the same
// filesystem the rest of the repository was built against.
func writeGitDirSymlink(cfg *config.Config, fs afero.Fs) error {
	if cfg.WorkTreePath == "" {
		return nil
	}
	link := cfg.WorkTreePath + string(os.PathSeparator) + ".git"
	content := "gitdir: " + cfg.GitDirPath + "\n"
	return afero.WriteFile(fs, link, []byte(content), 0o644)
}

// OpenOptions contains the options used to customize opening an
// existing repository.
type OpenOptions struct {
	// IsBare states whether the repository is expected to have no
	// working directory.
	IsBare bool
}

// OpenRepositoryWithParams returns a handle on an already-initialized
// repository described by cfg.
func OpenRepositoryWithParams(cfg *config.Config, _ OpenOptions) (*Repository, error) {
	b, err := fsbackend.New(ginternals.DotGitPath(cfg))
	if err != nil {
		return nil, xerrors.Errorf("could not create backend: %w", err)
	}
	return &Repository{Config: cfg, backend: b}, nil
}

// Close releases the resources (open packfiles, file descriptors...)
// held by the repository.
func (r *Repository) Close() error {
	return r.backend.Close()
}

// GetObject returns the object stored under oid.
func (r *Repository) GetObject(oid ginternals.Oid) (*object.Object, error) {
	return r.backend.Object(oid)
}

// HasObject returns whether oid is present in the object database.
func (r *Repository) HasObject(oid ginternals.Oid) (bool, error) {
	return r.backend.HasObject(oid)
}

// WriteObject persists o and returns its object id.
func (r *Repository) WriteObject(o *object.Object) (ginternals.Oid, error) {
	return r.backend.WriteObject(o)
}

// GetReference returns the reference named name.
func (r *Repository) GetReference(name string) (*ginternals.Reference, error) {
	return r.backend.Reference(name)
}

// Reference is an alias of GetReference kept for readability at call
// sites that read more naturally as a plain accessor.
func (r *Repository) Reference(name string) (*ginternals.Reference, error) {
	return r.backend.Reference(name)
}

// NewReference creates (or overwrites) a direct reference named name
// pointing at target.
func (r *Repository) NewReference(name string, target ginternals.Oid) (*ginternals.Reference, error) {
	ref := ginternals.NewReference(name, target)
	if err := r.backend.WriteReference(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// NewSymbolicReference creates (or overwrites) a symbolic reference
// named name pointing at the reference targetRef.
func (r *Repository) NewSymbolicReference(name, targetRef string) (*ginternals.Reference, error) {
	ref := ginternals.NewSymbolicReference(name, targetRef)
	if err := r.backend.WriteReference(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Commit returns the commit stored under oid.
func (r *Repository) Commit(oid ginternals.Oid) (*object.Commit, error) {
	o, err := r.backend.Object(oid)
	if err != nil {
		return nil, xerrors.Errorf("could not get object %s: %w", oid.String(), err)
	}
	return o.AsCommit()
}

// resolverAdapter exposes a backend.Backend as a gitlog.Resolver.
type resolverAdapter struct {
	b backend.Backend
}

func (a resolverAdapter) Resolve(oid ginternals.Oid) (*object.Object, error) {
	return a.b.Object(oid)
}

// Log walks the commit graph starting at the given tips, in
// reverse-chronological order, invoking fn once per visited commit.
func (r *Repository) Log(tips []ginternals.Oid, fn func(*object.Commit) error) error {
	return gitlog.Walk(resolverAdapter{b: r.backend}, tips, fn)
}
