package ir

import (
	"io"
	"sort"

	"github.com/pkg/errors"
)

// Backend turns a finished module into a native relocatable object. The
// compiler core ships none; a target-specific backend registers itself at
// init time and the driver looks it up by name.
type Backend interface {
	Name() string
	// EmitObject writes the object representation of m to w. OptLevel is
	// the forwarded -O value; backends are free to ignore it.
	EmitObject(m *Module, w io.Writer, optLevel int) error
}

var backends = map[string]Backend{}

// Register makes a backend available to Lookup. Registering two backends
// under one name panics; that is a wiring bug, not a runtime condition.
func Register(b Backend) {
	if _, dup := backends[b.Name()]; dup {
		panic("ir: duplicate backend " + b.Name())
	}
	backends[b.Name()] = b
}

// Lookup returns the named backend. The error lists the registered names so
// a missing-backend failure is actionable.
func Lookup(name string) (Backend, error) {
	if b, ok := backends[name]; ok {
		return b, nil
	}
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, errors.Errorf("no native backend %q is registered (this build emits textual IR only; use -S)", name)
	}
	return nil, errors.Errorf("no native backend %q is registered (have %v)", name, names)
}
