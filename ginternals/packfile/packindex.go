package packfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
)

// fanoutEntries is the number of entries in the fanout table: one per
// possible first byte of a 20-byte identifier.
const fanoutEntries = 256

// indexHeader returns the 8-byte header every version-2 pack index
// starts with: a 4-byte magic, then the big-endian version number. We
// only support version 2.
func indexHeader() []byte {
	return []byte{0xff, 't', 'O', 'c', 0, 0, 0, 2}
}

// msbMask flags a 32-bit offset-table entry as an index into the
// 64-bit spill table rather than a literal offset.
const msbMask = 1 << 31

// PackIndex is a parsed pack index (version 2): a header, a fanout
// table over the sorted identifiers, their CRCs, a 32-bit offset table
// with a 64-bit spill for packs bigger than 2GiB, and a trailing
// digest.
//
// Layout, back to back:
//  0. header:  8 bytes - magic {0xff, 't', 'O', 'c'} + big-endian version (2)
//  1. fanout:  256 x uint32 (big-endian), cumulative counts by first byte
//  2. hashes:  fanout[255] x 20 bytes, sorted ascending
//  3. crc32:   fanout[255] x uint32
//  4. offsets: fanout[255] x uint32 (top bit set -> index into offsets64)
//  5. offsets64: 0+ x uint64, for entries whose offset didn't fit in 31 bits
//
// Trailer: 20-byte pack id, then a 20-byte digest over every byte
// preceding it. The digest is verified at load time; a mismatch is
// rejected outright.
type PackIndex struct {
	fanout    [fanoutEntries]uint32
	hashes    []ginternals.Oid
	crc32     []uint32
	offsets   []uint32
	offsets64 []uint64
}

// NewIndex parses a pack index from r and verifies its trailing
// digest against expectedPackID and the digest recomputed over the
// index's own bytes.
func NewIndex(r *bufio.Reader, expectedPackID ginternals.Oid) (*PackIndex, error) {
	// Every byte is read through hr, header included. hr is read
	// directly rather than through a bufio.Reader, which would read
	// ahead and feed bytes of the trailing digest into the hash.
	hr := ginternals.NewHashingReader(r)
	br := hr

	header := make([]byte, len(indexHeader()))
	if _, err := readFull(br, header); err != nil {
		return nil, xerrors.Errorf("reading index header: %w", err)
	}
	if !bytes.Equal(header[:4], indexHeader()[:4]) {
		return nil, xerrors.Errorf("invalid header: %w", ErrInvalidMagic)
	}
	if !bytes.Equal(header[4:], indexHeader()[4:]) {
		return nil, xerrors.Errorf("invalid header: %w", ErrInvalidVersion)
	}

	idx := &PackIndex{}

	for i := 0; i < fanoutEntries; i++ {
		var v uint32
		if err := binary.Read(br, binary.BigEndian, &v); err != nil {
			return nil, xerrors.Errorf("reading fanout entry %d: %w", i, err)
		}
		idx.fanout[i] = v
	}

	total := int(idx.fanout[fanoutEntries-1])

	idx.hashes = make([]ginternals.Oid, total)
	for i := 0; i < total; i++ {
		buf := make([]byte, ginternals.OidSize)
		if _, err := readFull(br, buf); err != nil {
			return nil, xerrors.Errorf("reading hash %d: %w", i, err)
		}
		oid, err := ginternals.NewOidFromBytes(buf)
		if err != nil {
			return nil, xerrors.Errorf("parsing hash %d: %w", i, err)
		}
		idx.hashes[i] = oid
	}

	idx.crc32 = make([]uint32, total)
	for i := 0; i < total; i++ {
		if err := binary.Read(br, binary.BigEndian, &idx.crc32[i]); err != nil {
			return nil, xerrors.Errorf("reading crc32 %d: %w", i, err)
		}
	}

	idx.offsets = make([]uint32, total)
	spillCount := 0
	for i := 0; i < total; i++ {
		if err := binary.Read(br, binary.BigEndian, &idx.offsets[i]); err != nil {
			return nil, xerrors.Errorf("reading offset %d: %w", i, err)
		}
		if idx.offsets[i]&msbMask != 0 {
			spillCount++
		}
	}

	if spillCount > 0 {
		idx.offsets64 = make([]uint64, spillCount)
		for i := 0; i < spillCount; i++ {
			if err := binary.Read(br, binary.BigEndian, &idx.offsets64[i]); err != nil {
				return nil, xerrors.Errorf("reading 64-bit offset %d: %w", i, err)
			}
		}
	}

	gotPackID := make([]byte, ginternals.OidSize)
	if _, err := readFull(br, gotPackID); err != nil {
		return nil, xerrors.Errorf("reading pack id trailer: %w", err)
	}
	packID, err := ginternals.NewOidFromBytes(gotPackID)
	if err != nil {
		return nil, xerrors.Errorf("parsing pack id trailer: %w", err)
	}
	if packID != expectedPackID {
		return nil, xerrors.Errorf("index names pack %s, companion pack is %s: %w", packID, expectedPackID, ginternals.ErrBadIndex)
	}

	// The trailing digest covers everything read so far (header
	// through the pack id), computed by the HashingReader as those
	// bytes flowed through it.
	computed := hr.Sum()

	gotDigest := make([]byte, ginternals.OidSize)
	if _, err := readFull(br, gotDigest); err != nil {
		return nil, xerrors.Errorf("reading index digest trailer: %w", err)
	}
	digest, err := ginternals.NewOidFromBytes(gotDigest)
	if err != nil {
		return nil, xerrors.Errorf("parsing index digest trailer: %w", err)
	}
	if digest != computed {
		return nil, xerrors.Errorf("index digest %s does not match computed %s: %w", digest, computed, ginternals.ErrBadIndex)
	}

	return idx, nil
}

func readFull(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ObjectCountAt returns how many identifiers share the given first
// byte (prefix), and the cumulative count of identifiers strictly
// before that prefix.
func (idx *PackIndex) ObjectCountAt(prefix byte) (count, cumulative int) {
	cumulative = 0
	if prefix > 0 {
		cumulative = int(idx.fanout[prefix-1])
	}
	count = int(idx.fanout[prefix]) - cumulative
	return count, cumulative
}

// search finds oid's position in idx.hashes using the fanout table to
// bound a binary search to the range sharing oid's first byte. This
// is what keeps lookup O(log N) rather than a linear scan.
func (idx *PackIndex) search(oid ginternals.Oid) (pos int, found bool) {
	count, cumulative := idx.ObjectCountAt(oid[0])
	if count == 0 {
		return 0, false
	}

	lo, hi := cumulative, cumulative+count
	i := sort.Search(hi-lo, func(i int) bool {
		return idx.hashes[lo+i].Compare(oid) >= 0
	})
	pos = lo + i
	if pos < hi && idx.hashes[pos] == oid {
		return pos, true
	}
	return 0, false
}

// GetObjectOffset returns the byte offset of oid within the
// companion pack, or ginternals.ErrObjectNotFound.
func (idx *PackIndex) GetObjectOffset(oid ginternals.Oid) (uint64, error) {
	pos, found := idx.search(oid)
	if !found {
		return 0, ginternals.ErrObjectNotFound
	}
	return idx.resolveOffset(pos), nil
}

func (idx *PackIndex) resolveOffset(pos int) uint64 {
	raw := idx.offsets[pos]
	if raw&msbMask == 0 {
		return uint64(raw)
	}
	return idx.offsets64[raw&^uint32(msbMask)]
}

// Walk calls fn for every (oid, offset) pair in the index, in
// hash-sorted order.
func (idx *PackIndex) Walk(fn func(oid ginternals.Oid, offset uint64) error) error {
	for i, oid := range idx.hashes {
		if err := fn(oid, idx.resolveOffset(i)); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of objects described by the index.
func (idx *PackIndex) Count() int {
	return len(idx.hashes)
}
