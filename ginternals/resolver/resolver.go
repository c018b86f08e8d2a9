// Package resolver implements the location oracle and delta-unwinding
// logic that turns an object identifier into a typed, verified
// object, regardless of whether it lives loose on disk or packed
// (possibly as a chain of deltas).
package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/delta"
	"github.com/sim-o/wyag/ginternals/object"
	"github.com/sim-o/wyag/ginternals/packfile"
)

// isOSNotExist reports whether err ultimately wraps os.ErrNotExist,
// the way afero's filesystem implementations do.
func isOSNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// maxDeltaDepth bounds how many bases a single resolve may chain
// through before giving up. Canonical packs rarely chain past a few
// dozen; this guards against a corrupt or adversarial pack looping
// forever.
const maxDeltaDepth = 50

// defaultCacheSize is the number of resolved objects kept in the
// resolver's LRU cache.
const defaultCacheSize = 256

// Resolver locates and assembles objects out of a repository's
// object database: the loose-object tree and every packfile under
// objects/pack.
type Resolver struct {
	fs         afero.Fs
	objectsDir string

	mu    sync.Mutex
	packs []*packfile.Pack
	cache *lru.Cache
}

// New returns a Resolver over the object database rooted at
// objectsDir (typically ".git/objects"), opening every packfile found
// under objectsDir/pack.
func New(fs afero.Fs, objectsDir string) (*Resolver, error) {
	r := &Resolver{
		fs:         fs,
		objectsDir: objectsDir,
		cache:      lru.New(defaultCacheSize),
	}

	packDir := filepath.Join(objectsDir, "pack")
	entries, err := afero.ReadDir(fs, packDir)
	if err != nil {
		if isOSNotExist(err) {
			return r, nil
		}
		return nil, xerrors.Errorf("listing %s: %w", packDir, err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != packfile.ExtPackfile {
			continue
		}
		p, err := packfile.NewFromFile(fs, filepath.Join(packDir, e.Name()))
		if err != nil {
			return nil, xerrors.Errorf("opening pack %s: %w", e.Name(), err)
		}
		r.packs = append(r.packs, p)
	}

	return r, nil
}

// Close releases every open pack handle.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, p := range r.packs {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Resolve returns the typed object named by oid, reading it loose if
// present, otherwise searching every open pack, unwinding any delta
// chain, and verifying the reconstructed content re-hashes to oid.
func (r *Resolver) Resolve(oid ginternals.Oid) (*object.Object, error) {
	r.mu.Lock()
	cached, ok := r.cache.Get(oid)
	r.mu.Unlock()
	if ok {
		return cached.(*object.Object), nil
	}

	o, err := r.resolveUncached(oid, 0)
	if err != nil {
		return nil, err
	}

	if o.ID() != oid {
		return nil, xerrors.Errorf("object %s re-hashed to %s: %w", oid, o.ID(), ginternals.ErrObjectCorrupt)
	}

	r.mu.Lock()
	r.cache.Add(oid, o)
	r.mu.Unlock()
	return o, nil
}

// HasObject reports whether oid names a known object, loose or
// packed, without fully resolving (and verifying) it.
func (r *Resolver) HasObject(oid ginternals.Oid) bool {
	if ok, err := afero.Exists(r.fs, r.loosePath(oid)); err == nil && ok {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.packs {
		if _, err := p.GetEntryOffset(oid); err == nil {
			return true
		}
	}
	return false
}

func (r *Resolver) loosePath(oid ginternals.Oid) string {
	return filepath.Join(r.objectsDir, ginternals.LooseObjectPath(oid))
}

// WalkPackedObjectIDs calls fn once per object id named by any open
// pack's index, without unwinding deltas.
func (r *Resolver) WalkPackedObjectIDs(fn func(oid ginternals.Oid) error) error {
	r.mu.Lock()
	packs := r.packs
	r.mu.Unlock()

	for _, p := range packs {
		err := p.WalkEntries(func(oid ginternals.Oid, offset uint64, entry *packfile.Entry) error {
			return fn(oid)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WalkLooseObjectIDs calls fn once per loose object found under the
// resolver's object directory's two-hex-character subdirectories.
func (r *Resolver) WalkLooseObjectIDs(fn func(oid ginternals.Oid) error) error {
	entries, err := afero.ReadDir(r.fs, r.objectsDir)
	if err != nil {
		if isOSNotExist(err) {
			return nil
		}
		return xerrors.Errorf("listing %s: %w", r.objectsDir, err)
	}

	for _, dirEntry := range entries {
		if !dirEntry.IsDir() || len(dirEntry.Name()) != 2 {
			continue
		}
		prefix := dirEntry.Name()
		dirPath := filepath.Join(r.objectsDir, prefix)
		files, err := afero.ReadDir(r.fs, dirPath)
		if err != nil {
			return xerrors.Errorf("listing %s: %w", dirPath, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			oid, err := ginternals.NewOidFromHex(prefix + f.Name())
			if err != nil {
				continue
			}
			if err := fn(oid); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) resolveUncached(oid ginternals.Oid, depth int) (*object.Object, error) {
	if o, err := r.readLoose(oid); err == nil {
		return o, nil
	} else if !isOSNotExist(err) {
		return nil, err
	}

	r.mu.Lock()
	packs := r.packs
	r.mu.Unlock()

	for _, p := range packs {
		offset, err := p.GetEntryOffset(oid)
		if err != nil {
			if xerrors.Is(err, ginternals.ErrObjectNotFound) {
				continue
			}
			return nil, err
		}
		return r.unwind(p, offset, depth)
	}

	return nil, xerrors.Errorf("%s: %w", oid, ginternals.ErrObjectNotFound)
}

func (r *Resolver) readLoose(oid ginternals.Oid) (*object.Object, error) {
	f, err := r.fs.Open(r.loosePath(oid))
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	parsed, err := ginternals.ParseLooseObject(f)
	if err != nil {
		return nil, xerrors.Errorf("parsing loose object %s: %w", oid, err)
	}

	typ, err := object.NewTypeFromString(parsed.Type)
	if err != nil {
		return nil, xerrors.Errorf("loose object %s: %w", oid, err)
	}

	return object.New(typ, parsed.Content), nil
}

// unwind reads the entry at offset in p and, if it is a delta,
// recursively resolves and applies bases until it reaches a
// materialized object.
func (r *Resolver) unwind(p *packfile.Pack, offset uint64, depth int) (*object.Object, error) {
	if depth > maxDeltaDepth {
		return nil, xerrors.Errorf("unwinding offset %d: %w", offset, ginternals.ErrDeltaChainTooDeep)
	}

	entry, err := p.ReadEntryAt(offset)
	if err != nil {
		return nil, xerrors.Errorf("reading entry at offset %d: %w", offset, err)
	}

	if !entry.IsDelta() {
		return object.New(entry.Type, entry.Data), nil
	}

	var base *object.Object
	if !entry.DeltaBaseOid.IsZero() {
		base, err = r.resolveUncached(entry.DeltaBaseOid, depth+1)
		if err != nil {
			return nil, xerrors.Errorf("resolving delta base %s: %w", entry.DeltaBaseOid, err)
		}
	} else {
		base, err = r.unwind(p, entry.DeltaBaseOffset, depth+1)
		if err != nil {
			return nil, xerrors.Errorf("resolving delta base at offset %d: %w", entry.DeltaBaseOffset, err)
		}
	}

	hdr, instructions, err := delta.Split(entry.Data)
	if err != nil {
		return nil, xerrors.Errorf("parsing delta at offset %d: %w", offset, err)
	}

	rebuilt, err := delta.Apply(base.Bytes(), hdr, instructions)
	if err != nil {
		return nil, xerrors.Errorf("applying delta at offset %d: %w", offset, err)
	}

	return object.New(base.Type(), rebuilt), nil
}
