// Package registry holds the set of registered identities.
package registry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/attendance/internal/domain/model"
)

const (
	defaultMinCaptures      = 1
	defaultDescriptorLength = 128
)

// Registry keeps identities in registration order. It is not safe for
// concurrent use; the service serializes access.
type Registry struct {
	minCaptures      int
	descriptorLength int
	newID            func() string

	order  []string
	byID   map[string]model.Identity
	byName map[string]string // normalized name -> id
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		minCaptures:      defaultMinCaptures,
		descriptorLength: defaultDescriptorLength,
		newID:            uuid.NewString,
		byID:             make(map[string]model.Identity),
		byName:           make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates and stores a new identity. Descriptors are copied.
func (r *Registry) Register(_ context.Context, displayName string, descriptors []model.Descriptor, now time.Time) (model.Identity, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return model.Identity{}, ErrInvalidName
	}
	if len(descriptors) == 0 {
		return model.Identity{}, ErrEmptyCapture
	}
	if len(descriptors) < r.minCaptures {
		return model.Identity{}, fmt.Errorf("%w: got %d, need %d", ErrInsufficientCaptures, len(descriptors), r.minCaptures)
	}
	for i, d := range descriptors {
		if err := r.validateDescriptor(d); err != nil {
			return model.Identity{}, fmt.Errorf("descriptor %d: %w", i, err)
		}
	}
	key := model.NormalizeName(name)
	if _, taken := r.byName[key]; taken {
		return model.Identity{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	embeddings := make([]model.Descriptor, len(descriptors))
	for i, d := range descriptors {
		embeddings[i] = d.Clone()
	}
	id := model.Identity{
		ID:           r.newID(),
		DisplayName:  name,
		Embeddings:   embeddings,
		RegisteredAt: now,
	}
	r.insert(id)
	return id, nil
}

func (r *Registry) validateDescriptor(d model.Descriptor) error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidDescriptor)
	}
	if r.descriptorLength > 0 && len(d) != r.descriptorLength {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidDescriptor, len(d), r.descriptorLength)
	}
	for _, v := range d {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidDescriptor)
		}
	}
	return nil
}

func (r *Registry) insert(id model.Identity) {
	r.order = append(r.order, id.ID)
	r.byID[id.ID] = id
	r.byName[model.NormalizeName(id.DisplayName)] = id.ID
}

// Delete removes an identity and returns it.
func (r *Registry) Delete(_ context.Context, id string) (model.Identity, error) {
	ident, ok := r.byID[id]
	if !ok {
		return model.Identity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.byID, id)
	delete(r.byName, model.NormalizeName(ident.DisplayName))
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return ident, nil
}

// Get returns the identity with the given id.
func (r *Registry) Get(id string) (model.Identity, bool) {
	ident, ok := r.byID[id]
	return ident, ok
}

// Exists reports whether id is registered.
func (r *Registry) Exists(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// List returns identities in registration order.
func (r *Registry) List() []model.Identity {
	out := make([]model.Identity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Candidates returns the matcher's search set. The slice is fresh but the
// embeddings are shared and must not be modified.
func (r *Registry) Candidates() []model.Identity {
	return r.List()
}

// Count returns the number of identities.
func (r *Registry) Count() int {
	return len(r.order)
}

// Restore replaces the contents with a persisted snapshot. Entries that
// would violate uniqueness are skipped and reported.
func (r *Registry) Restore(identities []model.Identity) (skipped int) {
	r.order = r.order[:0]
	r.byID = make(map[string]model.Identity, len(identities))
	r.byName = make(map[string]string, len(identities))
	for _, id := range identities {
		if id.ID == "" || len(id.Embeddings) == 0 {
			skipped++
			continue
		}
		if _, dup := r.byID[id.ID]; dup {
			skipped++
			continue
		}
		if _, dup := r.byName[model.NormalizeName(id.DisplayName)]; dup {
			skipped++
			continue
		}
		r.insert(id)
	}
	return skipped
}
