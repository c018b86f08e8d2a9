package object

import (
	"fmt"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/kvlm"
)

// TagParams represents all the data needed to create a Tag.
// Params starting with Opt are optional.
type TagParams struct {
	Target    *Object
	Name      string
	Tagger    Signature
	Message   string
	OptGPGSig string
}

// Tag represents a tag object: a named, signed pointer to another
// object (usually a commit).
type Tag struct {
	rawObject *Object

	tagger  Signature
	tag     string
	message string

	gpgSig string

	target ginternals.Oid
	typ    Type
}

// NewTag creates a new Tag object
func NewTag(p *TagParams) *Tag {
	return &Tag{
		target:  p.Target.ID(),
		typ:     p.Target.Type(),
		tag:     p.Name,
		tagger:  p.Tagger,
		message: p.Message,
		gpgSig:  p.OptGPGSig,
	}
}

// NewTagFromObject parses o as a tag. The body is a KVLM document
// with keys "object", "type", "tag", "tagger", and an optional
// "gpgsig", followed by the free-form message.
func NewTagFromObject(o *Object) (*Tag, error) {
	if o.typ != TypeTag {
		return nil, fmt.Errorf("type %s is not a tag: %w", o.typ, ErrObjectInvalid)
	}

	m, err := kvlm.Parse(o.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parsing tag body: %w: %w", err, ErrTagInvalid)
	}

	tag := &Tag{rawObject: o}

	targetLine := m.First("object")
	if targetLine == nil {
		return nil, fmt.Errorf("tag has no target: %w", ErrTagInvalid)
	}
	tag.target, err = ginternals.NewOidFromChars(targetLine)
	if err != nil {
		return nil, fmt.Errorf("could not parse target id %q: %w", targetLine, err)
	}

	typLine := m.First("type")
	if typLine == nil {
		return nil, fmt.Errorf("tag has no type: %w", ErrTagInvalid)
	}
	tag.typ, err = NewTypeFromString(string(typLine))
	if err != nil {
		return nil, fmt.Errorf("invalid object type %q: %w", typLine, err)
	}

	if tagLine := m.First("tag"); tagLine != nil {
		tag.tag = string(tagLine)
	}

	taggerLine := m.First("tagger")
	if taggerLine == nil {
		return nil, fmt.Errorf("tag has no tagger: %w", ErrTagInvalid)
	}
	tag.tagger, err = NewSignatureFromBytes(taggerLine)
	if err != nil {
		return nil, fmt.Errorf("could not parse tagger: %w", err)
	}

	if gpgsig := m.First("gpgsig"); gpgsig != nil {
		tag.gpgSig = string(gpgsig)
	}

	tag.message = string(m.First(kvlm.Message))

	if !tag.typ.IsValid() {
		return nil, fmt.Errorf("tag targets an invalid type: %w", ErrTagInvalid)
	}

	return tag, nil
}

// ID returns the identifier of the tag object
func (t *Tag) ID() ginternals.Oid {
	return t.ToObject().ID()
}

// Target returns the identifier of the object targeted by the tag
func (t *Tag) Target() ginternals.Oid {
	return t.target
}

// Type returns the type of the targeted object
func (t *Tag) Type() Type {
	return t.typ
}

// Name returns the tag's name
func (t *Tag) Name() string {
	return t.tag
}

// Tagger returns the Signature of the person that created the tag
func (t *Tag) Tagger() Signature {
	return t.tagger
}

// Message returns the tag's message
func (t *Tag) Message() string {
	return t.message
}

// GPGSig returns the GPG signature of the tag, if any
func (t *Tag) GPGSig() string {
	return t.gpgSig
}

// ToObject returns the underlying Object, serializing the tag's
// fields into KVLM form if it hasn't already been built.
func (t *Tag) ToObject() *Object {
	if t.rawObject != nil {
		return t.rawObject
	}

	m := kvlm.New()
	m.Add("object", []byte(t.target.String()))
	m.Add("type", []byte(t.typ.String()))
	m.Add("tag", []byte(t.tag))
	m.Add("tagger", []byte(t.Tagger().String()))
	if t.gpgSig != "" {
		m.Add("gpgsig", []byte(t.gpgSig))
	}
	m.Add(kvlm.Message, []byte(t.message))

	t.rawObject = New(TypeTag, m.Serialize())
	return t.rawObject
}
