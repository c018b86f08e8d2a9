// Package packfile contains methods and structs to read packfiles:
// a header, a sequence of framed object entries, and a trailing
// checksum.
package packfile

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/object"
	"github.com/sim-o/wyag/ginternals/varint"
)

// packfileHeaderSize is the size of a packfile's header: 4 bytes of
// magic, 4 bytes of version, 4 bytes of entry count.
const packfileHeaderSize = 12

func packfileMagic() []byte   { return []byte{'P', 'A', 'C', 'K'} }
func packfileVersion() []byte { return []byte{0, 0, 0, 2} }

var (
	// ErrInvalidMagic is returned when a file doesn't start with the
	// expected packfile magic.
	ErrInvalidMagic = errors.New("invalid packfile magic")
	// ErrInvalidVersion is returned when a file declares an
	// unsupported packfile version.
	ErrInvalidVersion = errors.New("unsupported packfile version")
)

// Entry is a single framed object read out of a pack at a given
// offset. If Type is a delta type, exactly one of DeltaBaseOid or
// DeltaBaseOffset identifies where its base lives: DeltaBaseOid for a
// reference delta, DeltaBaseOffset (an absolute offset into the same
// pack) for an offset delta.
type Entry struct {
	Type            object.Type
	Data            []byte
	DeltaBaseOid    ginternals.Oid
	DeltaBaseOffset uint64
}

// IsDelta reports whether the entry is a delta frame rather than a
// materialized object.
func (e *Entry) IsDelta() bool {
	return e.Type == object.ObjectDeltaOFS || e.Type == object.ObjectDeltaRef
}

// Pack represents an open packfile plus its companion index.
//
// Header (12 bytes): magic "PACK", big-endian version (must be 2),
// big-endian object count.
// Body: each object is preceded by a variable-length header encoding
// its type (3 bits) and size, then zlib-compressed payload.
// Trailer (20 bytes): the identifier of the pack (a digest over
// everything preceding it).
// https://git-scm.com/book/en/v2/Git-Internals-Git-Objects
type Pack struct {
	r       afero.File
	idxFile afero.File
	idx     *PackIndex
	header  [packfileHeaderSize]byte
	id      ginternals.Oid

	mu sync.Mutex
}

// NewFromFile opens the pack at filePath (and its companion .idx file)
// for reading. The returned Pack must be closed with Close.
func NewFromFile(fs afero.Fs, filePath string) (pack *Pack, err error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return nil, xerrors.Errorf("could not open %s: %w", filePath, err)
	}
	defer func() {
		if err != nil {
			f.Close() //nolint:errcheck // it already failed
		}
	}()

	p := &Pack{r: f, id: ginternals.NullOid}

	if _, err = f.ReadAt(p.header[:], 0); err != nil {
		return nil, xerrors.Errorf("could not read packfile header: %w", err)
	}
	if !bytes.Equal(p.header[0:4], packfileMagic()) {
		return nil, fmt.Errorf("invalid header: %w: %w", ErrInvalidMagic, ginternals.ErrBadPack)
	}
	if !bytes.Equal(p.header[4:8], packfileVersion()) {
		return nil, fmt.Errorf("invalid header: %w: %w", ErrInvalidVersion, ginternals.ErrBadPack)
	}

	indexFilePath := strings.TrimSuffix(filePath, ExtPackfile) + ExtIndex
	p.idxFile, err = fs.Open(indexFilePath)
	if err != nil {
		return nil, xerrors.Errorf("could not open %s: %w", indexFilePath, err)
	}
	defer func() {
		if err != nil {
			p.idxFile.Close() //nolint:errcheck // it already failed
		}
	}()

	expectedID, err := packID(fs, filePath)
	if err != nil {
		return nil, xerrors.Errorf("could not read pack trailer of %s: %w", filePath, err)
	}
	p.id = expectedID

	p.idx, err = NewIndex(bufio.NewReader(p.idxFile), expectedID)
	if err != nil {
		return nil, xerrors.Errorf("could not create index for %s: %w", indexFilePath, err)
	}

	return p, nil
}

// packID reads the trailing 20-byte pack identifier without
// disturbing the caller's own file handle.
func packID(fs afero.Fs, filePath string) (ginternals.Oid, error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return ginternals.NullOid, err
	}
	defer f.Close() //nolint:errcheck

	id := make([]byte, ginternals.OidSize)
	offset, err := f.Seek(-ginternals.OidSize, io.SeekEnd)
	if err != nil {
		return ginternals.NullOid, err
	}
	if _, err = f.ReadAt(id, offset); err != nil {
		return ginternals.NullOid, err
	}
	return ginternals.NewOidFromBytes(id)
}

// ReadEntryAt reads the single framed entry sitting at byte offset
// objectOffset. It does not follow delta references; that is the
// resolver's job (see ginternals/resolver), since a delta's base may
// live outside this pack entirely.
func (pck *Pack) ReadEntryAt(objectOffset uint64) (entry *Entry, err error) {
	if _, err = pck.r.Seek(int64(objectOffset), io.SeekStart); err != nil {
		return nil, xerrors.Errorf("could not seek to offset %d: %w", objectOffset, err)
	}
	buf := bufio.NewReader(pck.r)

	typ, size, err := varint.ReadTypeAndSize(buf)
	if err != nil {
		return nil, xerrors.Errorf("could not read object header at offset %d: %w", objectOffset, err)
	}

	entry = &Entry{Type: object.Type(typ)}

	switch entry.Type { //nolint:exhaustive // only the two delta types carry extra framing
	default:
		if !entry.Type.IsValid() {
			return nil, xerrors.Errorf("entry at offset %d has bad-pack-type %d: %w", objectOffset, typ, ginternals.ErrBadPack)
		}
	case object.ObjectDeltaRef:
		baseSHA := make([]byte, ginternals.OidSize)
		if _, err = io.ReadFull(buf, baseSHA); err != nil {
			return nil, xerrors.Errorf("could not read delta base id: %w", err)
		}
		entry.DeltaBaseOid, err = ginternals.NewOidFromBytes(baseSHA)
		if err != nil {
			return nil, xerrors.Errorf("invalid delta base id: %w", err)
		}
	case object.ObjectDeltaOFS:
		back, derr := varint.ReadDeltaOffset(buf)
		if derr != nil {
			return nil, xerrors.Errorf("could not read delta base offset: %w", derr)
		}
		if back == 0 || back > objectOffset {
			return nil, xerrors.Errorf("delta base offset %d out of range at %d: %w", back, objectOffset, ginternals.ErrBadPack)
		}
		entry.DeltaBaseOffset = objectOffset - back
	}

	zlibR, err := zlib.NewReader(buf)
	if err != nil {
		return nil, xerrors.Errorf("could not open zlib reader at offset %d: %w", objectOffset, err)
	}
	defer func() {
		if cerr := zlibR.Close(); err == nil {
			err = cerr
		}
	}()

	var data bytes.Buffer
	if _, err = io.Copy(&data, zlibR); err != nil {
		return nil, xerrors.Errorf("could not decompress entry at offset %d: %w", objectOffset, err)
	}
	if data.Len() != int(size) {
		return nil, xerrors.Errorf("entry at offset %d decompressed to %d bytes, expected %d: %w", objectOffset, data.Len(), size, ginternals.ErrBadPack)
	}

	entry.Data = data.Bytes()
	return entry, nil
}

// GetEntryOffset returns the byte offset of oid within this pack, or
// ginternals.ErrObjectNotFound if this pack doesn't contain it.
func (pck *Pack) GetEntryOffset(oid ginternals.Oid) (uint64, error) {
	pck.mu.Lock()
	defer pck.mu.Unlock()
	return pck.idx.GetObjectOffset(oid)
}

// ReadEntry looks up oid in this pack's index and reads its entry.
func (pck *Pack) ReadEntry(oid ginternals.Oid) (*Entry, uint64, error) {
	offset, err := pck.GetEntryOffset(oid)
	if err != nil {
		return nil, 0, err
	}
	pck.mu.Lock()
	defer pck.mu.Unlock()
	entry, err := pck.ReadEntryAt(offset)
	return entry, offset, err
}

// ObjectCount returns the number of objects in the packfile.
func (pck *Pack) ObjectCount() uint32 {
	return binary.BigEndian.Uint32(pck.header[8:])
}

// ID returns the identifier of the packfile.
func (pck *Pack) ID() ginternals.Oid {
	return pck.id
}

// WalkEntries calls fn for every object entry in the pack, in index
// order, without following deltas. Used by pack-listing tooling.
func (pck *Pack) WalkEntries(fn func(oid ginternals.Oid, offset uint64, entry *Entry) error) error {
	return pck.idx.Walk(func(oid ginternals.Oid, offset uint64) error {
		pck.mu.Lock()
		entry, err := pck.ReadEntryAt(offset)
		pck.mu.Unlock()
		if err != nil {
			return err
		}
		return fn(oid, offset, entry)
	})
}

// Close releases the pack's file handles.
func (pck *Pack) Close() error {
	pck.mu.Lock()
	defer pck.mu.Unlock()

	packErr := pck.r.Close()
	idxErr := pck.idxFile.Close()
	if packErr != nil {
		return packErr
	}
	return idxErr
}
