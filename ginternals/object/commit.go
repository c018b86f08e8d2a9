package object

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sim-o/wyag/ginternals"
	"github.com/sim-o/wyag/ginternals/kvlm"
	"github.com/sim-o/wyag/internal/readutil"
)

// ErrSignatureInvalid is an error thrown when the signature of a commit
// couldn't be parsed
var ErrSignatureInvalid = errors.New("commit signature is invalid")

// Signature represents the author/committer and time of a commit
type Signature struct {
	Time  time.Time
	Name  string
	Email string
}

// String returns a stringified version of the Signature
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.Time.Unix(), s.Time.Format("-0700"))
}

// IsZero returns whether the signature has the zero value
func (s Signature) IsZero() bool {
	return s.Time.IsZero() && s.Name == "" && s.Email == ""
}

// NewSignature generates a signature at the current date and time
func NewSignature(name, email string) Signature {
	return Signature{
		Name:  name,
		Email: email,
		Time:  time.Now(),
	}
}

// NewSignatureFromBytes returns a signature from its serialized form:
//
//	User Name <user.email@domain.tld> timestamp timezone
//
// e.g. "Melvin Laplanche <melvin.wont.reply@gmail.com> 1566115917 -0700"
func NewSignatureFromBytes(b []byte) (Signature, error) {
	sig := Signature{}

	data := readutil.ReadTo(b, '<')
	if len(data) == 0 {
		if len(b) == 0 {
			return sig, fmt.Errorf("couldn't retrieve the name: %w", ErrSignatureInvalid)
		}
		return sig, fmt.Errorf("signature stopped after the name: %w", ErrSignatureInvalid)
	}
	sig.Name = strings.TrimSpace(string(data))
	offset := len(data) + 1 // +1 to skip the "<"
	if offset >= len(b) {
		return sig, fmt.Errorf("couldn't retrieve the email: %w", ErrSignatureInvalid)
	}

	data = readutil.ReadTo(b[offset:], '>')
	if len(data) == 0 {
		return sig, fmt.Errorf("couldn't retrieve the email: %w", ErrSignatureInvalid)
	}
	sig.Email = string(data)
	offset += len(data) + 2 // +2 to skip "> "
	if offset >= len(b) {
		return sig, fmt.Errorf("signature stopped after the email: %w", ErrSignatureInvalid)
	}

	timestamp := readutil.ReadTo(b[offset:], ' ')
	if len(timestamp) == 0 {
		return sig, fmt.Errorf("couldn't retrieve the timestamp: %w", ErrSignatureInvalid)
	}
	offset += len(timestamp) + 1 // +1 to skip the " "
	if offset >= len(b) {
		return sig, fmt.Errorf("signature stopped after the timestamp: %w", ErrSignatureInvalid)
	}

	t, err := strconv.ParseInt(string(timestamp), 10, 64)
	if err != nil {
		return sig, fmt.Errorf("invalid timestamp %s: %w", timestamp, err)
	}
	sig.Time = time.Unix(t, 0)

	timezone := b[offset:]
	tz, err := time.Parse("-0700", string(timezone))
	if err != nil {
		return sig, fmt.Errorf("invalid timezone format %s: %w", timezone, err)
	}
	sig.Time = sig.Time.In(tz.Location())
	return sig, nil
}

// CommitOptions represents all the optional data available when
// creating a commit
type CommitOptions struct {
	Message string
	GPGSig  string
	// Committer represents the person creating the commit.
	// If not provided, the author is used as committer.
	Committer Signature
	ParentsID []ginternals.Oid
}

// Commit represents a commit object: a pointer to a tree, zero or
// more parent commits, an author/committer pair, and a message.
type Commit struct {
	rawObject *Object

	author    Signature
	committer Signature

	gpgSig  string
	message string

	parentIDs []ginternals.Oid
	treeID    ginternals.Oid
}

// NewCommit creates a new Commit object. Provided Oids are not
// validated against the object database.
func NewCommit(treeID ginternals.Oid, author Signature, opts *CommitOptions) *Commit {
	c := &Commit{
		treeID:    treeID,
		author:    author,
		committer: opts.Committer,
		message:   opts.Message,
		parentIDs: opts.ParentsID,
		gpgSig:    opts.GPGSig,
	}

	if c.committer.IsZero() {
		c.committer = author
	}
	c.rawObject = c.ToObject()

	return c
}

// NewCommitFromObject parses o as a commit. The body is a KVLM
// document with keys "tree" (exactly once), "parent" (zero or more
// times, in parent order), "author", "committer", and an optional
// "gpgsig", followed by the free-form message.
func NewCommitFromObject(o *Object) (*Commit, error) {
	if o.typ != TypeCommit {
		return nil, fmt.Errorf("type %s is not a commit: %w", o.typ, ErrObjectInvalid)
	}

	m, err := kvlm.Parse(o.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parsing commit body: %w: %w", err, ErrCommitInvalid)
	}

	ci := &Commit{rawObject: o}

	if treeLine := m.First("tree"); treeLine != nil {
		ci.treeID, err = ginternals.NewOidFromChars(treeLine)
		if err != nil {
			return nil, fmt.Errorf("could not parse tree id %q: %w", treeLine, err)
		}
	}

	if parents, ok := m.Get("parent"); ok {
		for _, p := range parents {
			oid, perr := ginternals.NewOidFromChars(p)
			if perr != nil {
				return nil, fmt.Errorf("could not parse parent id %q: %w", p, perr)
			}
			ci.parentIDs = append(ci.parentIDs, oid)
		}
	}

	if authorLine := m.First("author"); authorLine != nil {
		ci.author, err = NewSignatureFromBytes(authorLine)
		if err != nil {
			return nil, fmt.Errorf("could not parse author signature: %w", err)
		}
	}

	if committerLine := m.First("committer"); committerLine != nil {
		ci.committer, err = NewSignatureFromBytes(committerLine)
		if err != nil {
			return nil, fmt.Errorf("could not parse committer signature: %w", err)
		}
	}

	if gpgsig := m.First("gpgsig"); gpgsig != nil {
		ci.gpgSig = string(gpgsig)
	}

	ci.message = string(bytes.TrimSuffix(m.First(kvlm.Message), []byte{'\n'}))

	if ci.author.IsZero() {
		return nil, fmt.Errorf("commit has no author: %w", ErrCommitInvalid)
	}
	if ci.treeID.IsZero() {
		return nil, fmt.Errorf("commit has no tree: %w", ErrCommitInvalid)
	}

	return ci, nil
}

// ID returns the identifier of the commit object
func (c *Commit) ID() ginternals.Oid {
	return c.rawObject.ID()
}

// Author returns the Signature of the person that made the changes
func (c *Commit) Author() Signature {
	return c.author
}

// Committer returns the Signature of the person that created the commit
func (c *Commit) Committer() Signature {
	return c.committer
}

// Message returns the commit's message
func (c *Commit) Message() string {
	return c.message
}

// ParentIDs returns the list of identifiers of the parent commits, if any:
//   - the first commit of an orphan branch has 0 parents
//   - a regular commit or a fast-forward merge has 1 parent
//   - a true (non-fast-forward) merge has 2 or more parents
func (c *Commit) ParentIDs() []ginternals.Oid {
	out := make([]ginternals.Oid, len(c.parentIDs))
	copy(out, c.parentIDs)
	return out
}

// TreeID returns the identifier of the commit's tree
func (c *Commit) TreeID() ginternals.Oid {
	return c.treeID
}

// GPGSig returns the GPG signature of the commit, if any
func (c *Commit) GPGSig() string {
	return c.gpgSig
}

// ToObject returns the underlying Object, serializing the commit's
// fields into KVLM form if it hasn't already been built.
func (c *Commit) ToObject() *Object {
	if c.rawObject != nil {
		return c.rawObject
	}

	m := kvlm.New()
	m.Add("tree", []byte(c.treeID.String()))
	for _, p := range c.parentIDs {
		m.Add("parent", []byte(p.String()))
	}
	m.Add("author", []byte(c.Author().String()))
	m.Add("committer", []byte(c.Committer().String()))
	if c.gpgSig != "" {
		m.Add("gpgsig", []byte(c.gpgSig))
	}
	m.Add(kvlm.Message, []byte(c.message))

	return New(TypeCommit, m.Serialize())
}
