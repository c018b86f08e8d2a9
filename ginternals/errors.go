package ginternals

import "errors"

// ErrObjectNotFound is returned when an object identifier cannot be
// located in either the loose-object tree or any known pack.
var ErrObjectNotFound = errors.New("object not found")

// ErrBadPack is returned when a packfile's header or the framing of
// one of its entries does not match what the format requires. The
// trailing checksum is read as the pack's id and is not verified.
var ErrBadPack = errors.New("malformed packfile")

// ErrBadIndex is returned when a pack index's trailing digest does
// not match the digest recomputed over its own bytes.
var ErrBadIndex = errors.New("malformed pack index")

// ErrBadDelta is returned when a delta instruction stream contains an
// invalid opcode or a copy/insert that runs past the base or result
// buffer.
var ErrBadDelta = errors.New("malformed delta")

// ErrDeltaChainTooDeep is returned when resolving a delta requires
// following more base references than the resolver is willing to
// recurse through, guarding against cyclic or pathological chains.
var ErrDeltaChainTooDeep = errors.New("delta chain too deep")

// ErrObjectCorrupt is returned when a reconstructed object's content
// does not re-hash to the identifier it was looked up under.
var ErrObjectCorrupt = errors.New("object content does not match its id")

// ErrUnknownObjectType is returned when a raw object header names a
// type tag the reader does not recognize.
var ErrUnknownObjectType = errors.New("unknown object type")
