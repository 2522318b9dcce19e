package plug

import (
	"fmt"
	"sort"
	"sync"
)

// SourceFactory builds a fresh Source instance.
type SourceFactory func() Source

// EffectFactory builds a fresh Effect instance.
type EffectFactory func() Effect

// Registry maps plugin IDs to factories. It is an explicit value handed to
// whoever needs it rather than package-level state, so tests and embedders
// can hold independent catalogs.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]SourceFactory
	effects map[string]EffectFactory
	meta    map[string]Metadata
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: map[string]SourceFactory{},
		effects: map[string]EffectFactory{},
		meta:    map[string]Metadata{},
	}
}

// RegisterSource adds a source factory under its metadata ID. The factory is
// invoked once here to capture metadata; registering a duplicate or
// cross-category ID is an error.
func (r *Registry) RegisterSource(f SourceFactory) error {
	m := f().Meta()
	if m.Category != CategorySource {
		return fmt.Errorf("plugin %s: not a source", m.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meta[m.ID]; ok {
		return fmt.Errorf("plugin %s: already registered", m.ID)
	}
	r.sources[m.ID] = f
	r.meta[m.ID] = m
	return nil
}

// RegisterEffect adds an effect factory under its metadata ID.
func (r *Registry) RegisterEffect(f EffectFactory) error {
	m := f().Meta()
	if m.Category != CategoryEffect {
		return fmt.Errorf("plugin %s: not an effect", m.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meta[m.ID]; ok {
		return fmt.Errorf("plugin %s: already registered", m.ID)
	}
	r.effects[m.ID] = f
	r.meta[m.ID] = m
	return nil
}

// NewSource instantiates a registered source by ID.
func (r *Registry) NewSource(id string) (Source, error) {
	r.mu.RLock()
	f, ok := r.sources[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source plugin: %s", id)
	}
	return f(), nil
}

// NewEffect instantiates a registered effect by ID.
func (r *Registry) NewEffect(id string) (Effect, error) {
	r.mu.RLock()
	f, ok := r.effects[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown effect plugin: %s", id)
	}
	return f(), nil
}

// MetadataFor returns the metadata registered under id.
func (r *Registry) MetadataFor(id string) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meta[id]
	if !ok {
		return Metadata{}, fmt.Errorf("unknown plugin: %s", id)
	}
	return m, nil
}

// HasSource reports whether a source with the given ID is registered.
func (r *Registry) HasSource(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[id]
	return ok
}

// SourceIDs returns the registered source IDs in sorted order.
func (r *Registry) SourceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EffectIDs returns the registered effect IDs in sorted order.
func (r *Registry) EffectIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.effects))
	for id := range r.effects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
