package fsbackend

import (
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/backend"
	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/object"
	"github.com/sim-o/wyag/internal/gitpath"
)

// Object returns the object that has given oid
// This method can be called concurrently
func (b *Backend) Object(oid ginternals.Oid) (*object.Object, error) {
	return b.resolver.Resolve(oid)
}

// HasObject returns whether an object exists in the odb
// This method can be called concurrently
func (b *Backend) HasObject(oid ginternals.Oid) (bool, error) {
	return b.resolver.HasObject(oid), nil
}

// looseObjectPath returns the absolute path of an object
// .git/object/first_2_chars_of_sha/remaining_chars_of_sha
// Ex. path of fcfe68a0e44e04bd7fd564fc0b75f1ae457e18b3 is:
// .git/objects/fc/fe68a0e44e04bd7fd564fc0b75f1ae457e18b3
func (b *Backend) looseObjectPath(sha string) string {
	return filepath.Join(b.root, gitpath.ObjectsPath, sha[:2], sha[2:])
}

// WriteObject adds an object to the odb
// This method can be called concurrently
func (b *Backend) WriteObject(o *object.Object) (ginternals.Oid, error) {
	data, err := o.Compress()
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not compress object: %w", err)
	}

	oid := o.ID()
	b.objectMu.Lock(oid[:])
	defer b.objectMu.Unlock(oid[:])

	// Make sure the object doesn't already exist anywhere
	if b.resolver.HasObject(oid) {
		return oid, nil
	}

	// Persist the data on disk
	sha := oid.String()
	p := b.looseObjectPath(sha)

	// We need to make sure the dest dir exists
	dest := filepath.Dir(p)
	if err = b.fs.MkdirAll(dest, 0o755); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not create the destination directory %s: %w", dest, err)
	}

	// We use 444 because git objects are read-only
	if err = afero.WriteFile(b.fs, p, data, 0o444); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not persist object %s at path %s: %w", sha, p, err)
	}

	return oid, nil
}

// WalkPackedObjectIDs runs the provided method on all the oids found
// in every open packfile
func (b *Backend) WalkPackedObjectIDs(f backend.OidWalkFunc) error {
	err := b.resolver.WalkPackedObjectIDs(func(oid ginternals.Oid) error {
		return f(oid)
	})
	if err == backend.WalkStop { //nolint:errorlint,goerr113 // it's a fake error so no need to use Error.Is()
		return nil
	}
	return err
}

// WalkLooseObjectIDs runs the provided method on all the oids of all
// the loose objects
func (b *Backend) WalkLooseObjectIDs(f backend.OidWalkFunc) error {
	err := b.resolver.WalkLooseObjectIDs(func(oid ginternals.Oid) error {
		return f(oid)
	})
	if err == backend.WalkStop { //nolint:errorlint,goerr113 // it's a fake error so no need to use Error.Is()
		return nil
	}
	return err
}
