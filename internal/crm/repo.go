package crm

import "sync"

// Entity is anything stored in a Repository, keyed by its own id.
type Entity interface {
	EntityID() string
}

// Repository is an insert-if-absent collection of one entity kind, owned by
// the consumer process. Entities are stored and returned by value so
// readers never observe a half-applied update; mutation goes through
// Update. Insertion order is preserved for listing.
type Repository[E Entity] struct {
	mu    sync.RWMutex
	order []string
	items map[string]E
}

// NewRepository creates an empty repository.
func NewRepository[E Entity]() *Repository[E] {
	return &Repository[E]{items: make(map[string]E)}
}

// InsertIfAbsent stores the entity unless one with the same id already
// exists. Existing entities are never overwritten. Reports whether the
// entity was inserted.
func (r *Repository[E]) InsertIfAbsent(entity E) bool {
	id := entity.EntityID()
	if id == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; exists {
		return false
	}
	r.items[id] = entity
	r.order = append(r.order, id)
	return true
}

// Get returns a copy of the entity with the given id.
func (r *Repository[E]) Get(id string) (E, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.items[id]
	return entity, ok
}

// Update replaces an existing entity. Unknown ids are ignored so Update
// can never create entities.
func (r *Repository[E]) Update(entity E) bool {
	id := entity.EntityID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists {
		return false
	}
	r.items[id] = entity
	return true
}

// List returns all entities in insertion order.
func (r *Repository[E]) List() []E {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]E, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

// Len returns the number of stored entities.
func (r *Repository[E]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
