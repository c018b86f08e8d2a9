// Package env contains a small abstraction around process environment
// variables, so configuration loading can be driven by a fake
// environment in tests instead of the real process environment.
package env

import (
	"os"
	"strings"
)

// Env represents a snapshot of environment variables.
type Env struct {
	vars map[string]string
}

// NewFromOs builds an Env from the current process's environment.
func NewFromOs() *Env {
	return NewFromKVList(os.Environ())
}

// NewFromKVList builds an Env from a list of "key=value" strings, the
// format returned by os.Environ.
func NewFromKVList(vars []string) *Env {
	e := &Env{
		vars: make(map[string]string, len(vars)),
	}
	for _, kv := range vars {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		e.vars[k] = v
	}
	return e
}

// Has returns whether the given key has a value set. Has is
// case-sensitive.
func (e *Env) Has(key string) bool {
	_, ok := e.vars[key]
	return ok
}

// Get returns the value of the given key, or an empty string if the
// key has no value set. Get is case-sensitive.
func (e *Env) Get(key string) string {
	return e.vars[key]
}
