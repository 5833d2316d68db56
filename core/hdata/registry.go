package hdata

import (
	"maps"
	"slices"

	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Provider materializes the description of the type named name. It is
// invoked at most once per name. Returning (nil, nil) means the provider
// does not know the type after all.
type Provider func(name string) (*Type, error)

// Source supplies providers for names that were not registered directly
// with [Registry.RegisterProvider], e.g. hdata hooks.
type Source interface {
	LookupProvider(name string) (Provider, bool)
}

type entry struct {
	provider Provider
	typ      *Type
	resolved bool
}

// Registry maps type names to lazily materialized type descriptions.
//
// NOT thread-safe: all calls must come from the event loop goroutine.
type Registry struct {
	entries map[string]*entry
	source  Source
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// SetSource installs the fallback provider source.
func (r *Registry) SetSource(s Source) { r.source = s }

// RegisterProvider records a lazy provider for name. Registering a name
// that is already known is a no-op and returns false.
func (r *Registry) RegisterProvider(name string, p Provider) bool {
	if name == "" || p == nil {
		return false
	}
	if _, ok := r.entries[name]; ok {
		return false
	}
	r.entries[name] = &entry{provider: p}
	return true
}

// Register adds an already built type. Registering a type with the same
// shape as the existing one is a no-op; a different shape is rejected.
func (r *Registry) Register(t *Type) error {
	if e, ok := r.entries[t.name]; ok {
		if e.resolved && e.typ != nil && (e.typ == t || e.typ.SameShape(t)) {
			return nil
		}
		return types.Errorf(types.ErrInvalid, "type %q already registered", t.name)
	}
	r.entries[t.name] = &entry{typ: t, resolved: true}
	return nil
}

// Resolve returns the description of name, materializing it on first use.
// An unknown name is a normal outcome and yields false.
func (r *Registry) Resolve(name string) (*Type, bool) {
	e, ok := r.entries[name]
	if !ok {
		if r.source == nil {
			return nil, false
		}
		p, found := r.source.LookupProvider(name)
		if !found || p == nil {
			return nil, false
		}
		e = &entry{provider: p}
		r.entries[name] = e
	}
	if !e.resolved {
		e.resolved = true
		t, err := e.provider(name)
		switch {
		case err != nil:
			logger.Warn("hdata provider failed", "type", name, "error", err)
		case t == nil:
			logger.Debug("hdata provider returned nothing", "type", name)
		case t.name != name:
			logger.Warn("hdata provider returned wrong type", "type", name, "got", t.name)
		default:
			e.typ = t
			logger.Debug("hdata type materialized", "type", name, "fields", len(t.fields), "lists", len(t.lists))
		}
		e.provider = nil
	}
	return e.typ, e.typ != nil
}

// MustResolve is Resolve for types the caller registered itself.
func (r *Registry) MustResolve(name string) *Type {
	t, ok := r.Resolve(name)
	if !ok {
		panic("hdata: unknown type " + name)
	}
	return t
}

// AllNames returns the sorted names of all registered types, materialized
// or not.
func (r *Registry) AllNames() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

// Materialized returns the sorted names of types already resolved.
func (r *Registry) Materialized() []string {
	var names []string
	for name, e := range r.entries {
		if e.typ != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// FreeAllOwner removes every materialized type owned by owner. Called when
// a plugin unloads, after its hooks have been swept.
func (r *Registry) FreeAllOwner(owner string) int {
	n := 0
	for name, e := range r.entries {
		if e.typ != nil && e.typ.Owner() == owner {
			delete(r.entries, name)
			n++
		}
	}
	if n > 0 {
		logger.Debug("hdata types freed", "owner", owner, "count", n)
	}
	return n
}

// Len returns the number of registered names.
func (r *Registry) Len() int { return len(r.entries) }
