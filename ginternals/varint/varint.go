// Package varint implements the three variable-length integer encodings
// used by the packfile format: the plain little-endian 7-bit
// continuation encoding used for delta headers, the big-endian
// bias-encoded form used for offset-delta back references, and the
// type+size split encoding used in the header of every packed object
// entry.
package varint

import (
	"bufio"
	"io"

	"golang.org/x/xerrors"
)

// ReadLE reads the little-endian, 7-bit-continuation encoding used for
// a delta's base/expanded size fields: each byte contributes 7 bits at
// an increasing shift, continuing while the top bit is set.
func ReadLE(r io.ByteReader) (uint64, error) {
	var (
		value uint64
		shift uint
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, xerrors.Errorf("reading varint byte: %w", err)
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
	}
}

// ReadTypeAndSize reads the split header found at the start of every
// packed object entry: the first byte packs a 3-bit type in bits 4-6
// and the low 4 bits of the size in bits 0-3; each continuation byte
// contributes 7 more bits of size, starting at shift 4.
func ReadTypeAndSize(r *bufio.Reader) (typ uint8, size uint64, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, xerrors.Errorf("reading object header byte: %w", err)
	}

	typ = (b & 0b0111_0000) >> 4
	size = uint64(b & 0b0000_1111)
	shift := uint(4)

	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, 0, xerrors.Errorf("reading object header continuation: %w", err)
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
	}

	return typ, size, nil
}

// ReadDeltaOffset reads the bias-encoded back-offset used by an
// offset-delta entry. Each byte after the first adds 1 before
// shifting, which is what lets the encoding represent offsets that a
// naive base-128 scheme would encode redundantly.
func ReadDeltaOffset(r io.ByteReader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, xerrors.Errorf("reading delta offset byte: %w", err)
	}

	offset := uint64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, xerrors.Errorf("reading delta offset continuation: %w", err)
		}
		offset = ((offset + 1) << 7) | uint64(b&0x7f)
	}

	return offset, nil
}
