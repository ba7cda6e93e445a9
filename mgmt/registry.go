package mgmt

import (
	"errors"
	"fmt"
	"github.com/magic-lib/go-plat-utils/conv"
	cmap "github.com/orcaman/concurrent-map/v2"
	"sync"
)

// ErrNotRegistered is returned when an attribute is read from a name
// nothing was registered under.
var ErrNotRegistered = errors.New("mgmt: object not registered")

// Source is one managed object: a bag of named attributes.
// Reading an unknown attribute returns an error.
type Source interface {
	Attribute(name string) (any, error)
}

// Server is the read side of a registry, the part a collector needs.
type Server interface {
	IsRegistered(name ObjectName) bool
	Attribute(name ObjectName, attr string) (any, error)
}

// Registry holds registered sources, keyed by canonical object name.
type Registry struct {
	sources cmap.ConcurrentMap[string, Source]
}

// NewRegistry xxx
func NewRegistry() *Registry {
	return &Registry{
		sources: cmap.New[Source](),
	}
}

// Register binds a source under the given name, replacing any prior one.
func (r *Registry) Register(name ObjectName, src Source) error {
	if name.IsZero() {
		return fmt.Errorf("register with a zero object name")
	}
	if src == nil {
		return fmt.Errorf("register a nil source under %s", name)
	}
	r.sources.Set(name.String(), src)
	return nil
}

// Unregister removes the source under the name, reporting whether one existed.
func (r *Registry) Unregister(name ObjectName) bool {
	_, ok := r.sources.Pop(name.String())
	return ok
}

// IsRegistered xxx
func (r *Registry) IsRegistered(name ObjectName) bool {
	return r.sources.Has(name.String())
}

// Attribute reads one named attribute of the source registered under name.
func (r *Registry) Attribute(name ObjectName, attr string) (any, error) {
	src, ok := r.sources.Get(name.String())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return src.Attribute(attr)
}

// Count reports how many sources are registered.
func (r *Registry) Count() int {
	return r.sources.Count()
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process wide registry, created on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Attr reads one attribute from a server and converts it to T.
func Attr[T any](s Server, name ObjectName, attr string) (T, error) {
	var zero T
	raw, err := s.Attribute(name, attr)
	if err != nil {
		return zero, err
	}
	val, err := conv.Convert[T](raw)
	if err != nil {
		return zero, fmt.Errorf("attribute %s of %s: %v", attr, name, err)
	}
	return val, nil
}

var _ Server = (*Registry)(nil)
