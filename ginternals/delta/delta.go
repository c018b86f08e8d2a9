// Package delta implements the binary delta format used by packed
// objects: a base size, an expanded size, and a stream of copy/insert
// instructions that rebuild the expanded content from a base buffer.
package delta

import (
	"bytes"

	"golang.org/x/xerrors"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/varint"
)

// Header is the base-size/expanded-size pair found at the start of
// every delta's decompressed payload.
type Header struct {
	BaseSize     uint64
	ExpandedSize uint64
}

// ParseHeader reads the two varint-encoded sizes that precede a
// delta's instruction stream.
func ParseHeader(r *bytes.Reader) (Header, error) {
	baseSize, err := varint.ReadLE(r)
	if err != nil {
		return Header{}, xerrors.Errorf("reading delta base size: %w", err)
	}
	expandedSize, err := varint.ReadLE(r)
	if err != nil {
		return Header{}, xerrors.Errorf("reading delta expanded size: %w", err)
	}
	return Header{BaseSize: baseSize, ExpandedSize: expandedSize}, nil
}

// Split parses the header out of the front of raw (a delta's full
// decompressed payload) and returns it alongside the remaining
// instruction-stream bytes.
func Split(raw []byte) (Header, []byte, error) {
	r := bytes.NewReader(raw)
	hdr, err := ParseHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	consumed := len(raw) - r.Len()
	return hdr, raw[consumed:], nil
}

// Apply rebuilds the expanded object from base by replaying the
// instruction stream held in instructions (the bytes following the header
// read by ParseHeader). base must be exactly hdr.BaseSize bytes; the
// result is exactly hdr.ExpandedSize bytes.
func Apply(base []byte, hdr Header, instructions []byte) ([]byte, error) {
	if uint64(len(base)) != hdr.BaseSize {
		return nil, xerrors.Errorf("delta base is %d bytes, expected %d: %w", len(base), hdr.BaseSize, ginternals.ErrBadDelta)
	}

	out := make([]byte, 0, hdr.ExpandedSize)
	r := bytes.NewReader(instructions)

	for r.Len() > 0 {
		opcode, err := r.ReadByte()
		if err != nil {
			return nil, xerrors.Errorf("reading delta opcode: %w", err)
		}

		switch {
		case opcode&0x80 != 0:
			// Copy: up to 4 little-endian offset bytes gated by bits 0-3,
			// then up to 3 little-endian size bytes gated by bits 4-6.
			var offset, size uint32
			for i := uint(0); i < 4; i++ {
				if opcode&(1<<i) != 0 {
					b, rerr := r.ReadByte()
					if rerr != nil {
						return nil, xerrors.Errorf("reading copy offset byte: %w", rerr)
					}
					offset |= uint32(b) << (8 * i)
				}
			}
			for i := uint(0); i < 3; i++ {
				if opcode&(1<<(4+i)) != 0 {
					b, rerr := r.ReadByte()
					if rerr != nil {
						return nil, xerrors.Errorf("reading copy size byte: %w", rerr)
					}
					size |= uint32(b) << (8 * i)
				}
			}
			if size == 0 {
				size = 0x10000
			}

			end := uint64(offset) + uint64(size)
			if end > hdr.BaseSize {
				return nil, xerrors.Errorf("copy instruction reads past base (offset=%d size=%d base=%d): %w", offset, size, hdr.BaseSize, ginternals.ErrBadDelta)
			}
			out = append(out, base[offset:offset+size]...)

		case opcode != 0:
			// Insert: the opcode itself is the literal byte count.
			n := int(opcode & 0x7f)
			buf := make([]byte, n)
			if _, err := r.Read(buf); err != nil {
				return nil, xerrors.Errorf("reading insert literal: %w", err)
			}
			out = append(out, buf...)

		default:
			return nil, xerrors.Errorf("delta opcode 0 is reserved: %w", ginternals.ErrBadDelta)
		}
	}

	if uint64(len(out)) != hdr.ExpandedSize {
		return nil, xerrors.Errorf("rebuilt delta is %d bytes, expected %d: %w", len(out), hdr.ExpandedSize, ginternals.ErrBadDelta)
	}

	return out, nil
}
