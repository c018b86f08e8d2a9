// Package kvlm implements the key-value-list-with-message format used
// to serialize commit and tag objects: an ordered sequence of
// "key value" lines, where a value may span multiple lines via a
// single leading space on each continuation line, followed by a blank
// line and a free-form message.
package kvlm

import (
	"bytes"

	"golang.org/x/xerrors"
)

// Message is the key under which the trailing free-form message is
// stored. It is never a valid field key (field keys cannot be empty),
// so it cannot collide with a real field.
const Message = ""

// KVLM is an ordered multi-map: keys keep their first-seen order, and
// repeated keys keep the order their values were encountered in.
type KVLM struct {
	order  []string
	values map[string][][]byte
}

// New returns an empty KVLM.
func New() *KVLM {
	return &KVLM{values: map[string][][]byte{}}
}

// Add appends value under key, preserving insertion order for both
// new keys and repeats of an existing one.
func (k *KVLM) Add(key string, value []byte) {
	if _, ok := k.values[key]; !ok {
		k.order = append(k.order, key)
	}
	k.values[key] = append(k.values[key], value)
}

// Get returns all values recorded under key, in insertion order, and
// whether the key was present at all.
func (k *KVLM) Get(key string) ([][]byte, bool) {
	v, ok := k.values[key]
	return v, ok
}

// First returns the first value recorded under key, or nil if the key
// was never seen.
func (k *KVLM) First(key string) []byte {
	v, ok := k.values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return v[0]
}

// Keys returns the field keys in insertion order. The message key is
// included only if a message was set.
func (k *KVLM) Keys() []string {
	out := make([]string, len(k.order))
	copy(out, k.order)
	return out
}

// Parse reads the KVLM representation held in raw. Continuation lines
// (a line starting with a single space) are folded into the preceding
// value with the leading space removed, the newline before it kept,
// and the rest of the line preserved verbatim, so multi-line values
// such as a PGP signature round-trip exactly.
func Parse(raw []byte) (*KVLM, error) {
	m := New()
	if err := parseInto(raw, m); err != nil {
		return nil, err
	}
	return m, nil
}

func parseInto(raw []byte, m *KVLM) error {
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '\n' {
		m.Add(Message, raw[1:])
		return nil
	}

	spc := bytes.IndexByte(raw, ' ')
	if spc < 0 {
		return xerrors.Errorf("kvlm: line has no key/value separator")
	}
	key := string(raw[:spc])

	end := spc
	for {
		nl := bytes.IndexByte(raw[end+1:], '\n')
		if nl < 0 {
			end = len(raw) - 1
			break
		}
		end += 1 + nl
		if end+1 >= len(raw) || raw[end+1] != ' ' {
			break
		}
	}

	m.Add(key, foldContinuations(raw[spc+1:end]))

	return parseInto(raw[end+1:], m)
}

// foldContinuations removes the "\n " sequence that introduces each
// continuation line, leaving a single embedded "\n" in its place.
func foldContinuations(v []byte) []byte {
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '\n' && i+1 < len(v) && v[i+1] == ' ' {
			out = append(out, '\n')
			i++
			continue
		}
		out = append(out, v[i])
	}
	return out
}

// Serialize reproduces the KVLM wire form: one "key value" line per
// field (re-splitting any embedded newline back into a continuation
// line prefixed with a single space), in insertion order, followed by
// a blank line and the message, if any.
func (k *KVLM) Serialize() []byte {
	var buf bytes.Buffer

	for _, key := range k.order {
		if key == Message {
			continue
		}
		for _, v := range k.values[key] {
			buf.WriteString(key)
			buf.WriteByte(' ')
			lines := bytes.Split(v, []byte{'\n'})
			for i, line := range lines {
				if i > 0 {
					buf.WriteByte(' ')
				}
				buf.Write(line)
				buf.WriteByte('\n')
			}
		}
	}

	if msgs, ok := k.values[Message]; ok && len(msgs) > 0 {
		buf.WriteByte('\n')
		buf.Write(msgs[0])
	}

	return buf.Bytes()
}
