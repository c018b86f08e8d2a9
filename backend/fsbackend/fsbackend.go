// Package fsbackend contains an implementation of the backend.Backend
// interface for the filesystem
package fsbackend

import (
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/backend"
	"github.com/sim-o/wyag/ginternals/resolver"
	"github.com/sim-o/wyag/internal/gitpath"
	"github.com/sim-o/wyag/internal/syncutil"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// writeLockStripes is the number of stripes used to serialize
// concurrent loose-object writes by key. A prime spreads keys more
// evenly than a power of two.
const writeLockStripes = 251

// Backend is a Backend implementation that uses the filesystem to store data
type Backend struct {
	fs   afero.Fs
	root string

	resolver *resolver.Resolver
	objectMu *syncutil.NamedMutex
}

// New returns a new Backend rooted at dotGitPath (the .git directory),
// opening every packfile found under objects/pack.
func New(dotGitPath string) (*Backend, error) {
	return NewWithFS(afero.NewOsFs(), dotGitPath)
}

// NewWithFS is like New but lets the caller provide the filesystem
// implementation, which is useful for testing against an in-memory
// filesystem.
func NewWithFS(fs afero.Fs, dotGitPath string) (*Backend, error) {
	objectsDir := filepath.Join(dotGitPath, gitpath.ObjectsPath)
	r, err := resolver.New(fs, objectsDir)
	if err != nil {
		return nil, xerrors.Errorf("could not open object database at %s: %w", objectsDir, err)
	}

	return &Backend{
		fs:       fs,
		root:     dotGitPath,
		resolver: r,
		objectMu: syncutil.NewNamedMutex(writeLockStripes),
	}, nil
}

// Close free the resources
func (b *Backend) Close() error {
	return b.resolver.Close()
}

// Fs returns the filesystem the backend was constructed with, so
// callers outside the package can persist files alongside the
// repository (e.g. a --separate-git-dir pointer file) without
// bypassing it with raw os calls.
func (b *Backend) Fs() afero.Fs {
	return b.fs
}

// Init initializes a repository. The target directory must not exist,
// or must exist and be empty: Init refuses to run over a non-empty
// directory, returning backend.ErrRepositoryExists.
func (b *Backend) Init() error {
	empty, err := dirIsEmpty(b.fs, b.root)
	if err != nil {
		return xerrors.Errorf("could not inspect %s: %w", b.root, err)
	}
	if !empty {
		return backend.ErrRepositoryExists
	}

	// Create the directories
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsTagsPath,
		gitpath.RefsHeadsPath,
		gitpath.ObjectsInfoPath,
		gitpath.ObjectsPackPath,
	}
	for _, d := range dirs {
		fullPath := filepath.Join(b.root, d)
		if err := b.fs.MkdirAll(fullPath, 0o750); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	// Create the files with the default content
	// (taken from a repo created on github)
	files := []struct {
		path    string
		content []byte
	}{
		{
			path:    gitpath.DescriptionPath,
			content: []byte("Unnamed repository; edit this file 'description' to name the repository.\n"),
		},
	}
	for _, f := range files {
		fullPath := filepath.Join(b.root, f.path)
		if err := afero.WriteFile(b.fs, fullPath, f.content, 0o644); err != nil {
			return xerrors.Errorf("could not create file %s: %w", f.path, err)
		}
	}

	if err := b.setDefaultCfg(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	return nil
}

// dirIsEmpty reports whether path is empty, treating a non-existent
// path as empty.
func dirIsEmpty(fs afero.Fs, path string) (bool, error) {
	exists, err := afero.DirExists(fs, path)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
