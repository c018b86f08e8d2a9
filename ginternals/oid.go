package ginternals

import (
	"crypto/sha1" //nolint:gosec // the on-disk format is defined in terms of SHA-1
	"encoding/hex"
	"errors"
)

// OidSize is the length, in bytes, of an object identifier.
const OidSize = 20

var (
	// NullOid is the identifier made of all zero bytes. It never
	// names a real object and is used as a sentinel zero value.
	NullOid = Oid{}

	// ErrInvalidOid is returned when a byte slice or string does not
	// hold a well-formed object identifier.
	ErrInvalidOid = errors.New("invalid oid")
)

// Oid is a content-addressed object identifier: the SHA-1 digest of an
// object's serialized form (type, size, and content).
type Oid [OidSize]byte

// Bytes returns the raw bytes of the identifier.
func (o Oid) Bytes() []byte {
	return o[:]
}

// String returns the lowercase hex encoding of the identifier.
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero reports whether o is the all-zero identifier.
func (o Oid) IsZero() bool {
	return o == NullOid
}

// Compare returns -1, 0 or 1 depending on whether o sorts before, equal
// to, or after other, comparing raw bytes lexicographically. This
// matches sorting the hex representation.
func (o Oid) Compare(other Oid) int {
	for i := range o {
		if o[i] != other[i] {
			if o[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// NewOidFromContent returns the identifier of the given bytes: the
// raw SHA-1 digest, not the identifier of a serialized git object.
// Callers that need an object identifier must hash the full
// "<type> <size>\0<payload>" form instead (see object.New).
func NewOidFromContent(content []byte) Oid {
	return sha1.Sum(content) //nolint:gosec
}

// NewOidFromBytes copies a 20-byte raw identifier out of id.
func NewOidFromBytes(id []byte) (Oid, error) {
	if len(id) < OidSize {
		return NullOid, ErrInvalidOid
	}
	var oid Oid
	copy(oid[:], id)
	return oid, nil
}

// NewOidFromHex decodes a 40-character hex string into an identifier.
func NewOidFromHex(id string) (Oid, error) {
	b, err := hex.DecodeString(id)
	if err != nil {
		return NullOid, ErrInvalidOid
	}
	if len(b) != OidSize {
		return NullOid, ErrInvalidOid
	}
	var oid Oid
	copy(oid[:], b)
	return oid, nil
}

// NewOidFromChars decodes the hex characters held in id (as opposed to
// the raw bytes of an already-binary identifier) into an Oid.
func NewOidFromChars(id []byte) (Oid, error) {
	return NewOidFromHex(string(id))
}

// NewOidFromStr is an alias of NewOidFromHex, accepting a 40-character
// hex string such as a commit-ish entered by a user.
func NewOidFromStr(id string) (Oid, error) {
	return NewOidFromHex(id)
}
