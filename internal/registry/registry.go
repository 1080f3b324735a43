// Package registry maps short backend ids to their adapters. It is filled
// once at startup and sealed; after that it is read-only.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal/translator"
)

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrSealed         = errors.New("registry is sealed")
	ErrDuplicate      = errors.New("backend already registered")
)

type Registry struct {
	mu       sync.RWMutex
	order    []string
	backends map[string]translator.Backend
	sealed   bool
}

func New() *Registry {
	return &Registry{backends: make(map[string]translator.Backend)}
}

// NormalizeID lower-cases and trims a backend id.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (r *Registry) Register(b translator.Backend) error {
	if b == nil {
		return errors.New("nil backend")
	}
	id := NormalizeID(b.Descriptor().ID)
	if id == "" {
		return errors.New("backend has an empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register %s: %w", id, ErrSealed)
	}
	if _, ok := r.backends[id]; ok {
		return fmt.Errorf("register %s: %w", id, ErrDuplicate)
	}
	r.backends[id] = b
	r.order = append(r.order, id)
	return nil
}

// Seal forbids further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Resolve returns ErrUnknownBackend for ids that were never registered.
func (r *Registry) Resolve(id string) (translator.Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[NormalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}
	return b, nil
}

// IDs returns backend ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// List returns descriptors in registration order.
func (r *Registry) List() []translator.Descriptor {
	backends := r.Backends()
	out := make([]translator.Descriptor, 0, len(backends))
	for _, b := range backends {
		out = append(out, b.Descriptor())
	}
	return out
}

func (r *Registry) Backends() []translator.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]translator.Backend, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.backends[id])
	}
	return out
}

// Readiness reports each backend's initialization state, keyed by id.
func (r *Registry) Readiness() map[string]translator.InitState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]translator.InitState, len(r.backends))
	for id, b := range r.backends {
		out[id] = b.State()
	}
	return out
}

// Preload initializes the given backends one after another. Failures are
// logged and collected; they stay remembered by the backends themselves.
func (r *Registry) Preload(ctx context.Context, ids []string, logger zerolog.Logger) error {
	var errs []error
	for _, id := range ids {
		b, err := r.Resolve(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info().Str("backend", b.Descriptor().ID).Msg("preloading")
		if err := b.Initialize(ctx); err != nil {
			logger.Error().Err(err).Str("backend", b.Descriptor().ID).Msg("preload failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release drops loaded state of every backend that supports it and returns
// the ids that were released.
func (r *Registry) Release() []string {
	var released []string
	for _, b := range r.Backends() {
		if rel, ok := b.(translator.Releaser); ok {
			rel.Release()
			released = append(released, b.Descriptor().ID)
		}
	}
	return released
}
