package being

import "sort"

// Registry owns every known being, keyed by id. It is driven from the
// goroutine that pumps server messages and is not safe for concurrent use.
type Registry struct {
	beings  map[ID]*Being
	blocked map[ID]struct{}
	created int
	removed int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		beings:  make(map[ID]*Being),
		blocked: make(map[ID]struct{}),
	}
}

// Create adds a being for id with the kind derived from job. An existing
// being with the same id is returned unchanged. Blocked ids yield nil.
func (r *Registry) Create(id ID, job int) *Being {
	if _, ok := r.blocked[id]; ok {
		return nil
	}
	if b, ok := r.beings[id]; ok {
		return b
	}
	b := newBeing(id, job)
	r.beings[id] = b
	r.created++
	return b
}

// Adopt registers an externally constructed being, such as the local
// player.
func (r *Registry) Adopt(b *Being) {
	if b == nil {
		return
	}
	r.beings[b.id] = b
}

// Find returns the being for id or nil.
func (r *Registry) Find(id ID) *Being {
	return r.beings[id]
}

// Destroy removes b. The caller must not use b afterwards.
func (r *Registry) Destroy(b *Being) {
	if b == nil {
		return
	}
	if cur, ok := r.beings[b.id]; ok && cur == b {
		delete(r.beings, b.id)
		r.removed++
	}
}

// Block destroys any being with id and refuses to create it again.
func (r *Registry) Block(id ID) {
	r.blocked[id] = struct{}{}
	r.Destroy(r.beings[id])
}

// Unblock lifts a Block.
func (r *Registry) Unblock(id ID) {
	delete(r.blocked, id)
}

func (r *Registry) IsBlocked(id ID) bool {
	_, ok := r.blocked[id]
	return ok
}

// Clear drops every being except keep, used when the map changes.
func (r *Registry) Clear(keep ID) {
	for id := range r.beings {
		if id != keep {
			delete(r.beings, id)
			r.removed++
		}
	}
}

func (r *Registry) Len() int { return len(r.beings) }

// Counts reports how many beings were created and removed so far.
func (r *Registry) Counts() (created, removed int) {
	return r.created, r.removed
}

// Each calls fn for every being in ascending id order. fn must not add or
// remove beings.
func (r *Registry) Each(fn func(*Being)) {
	ids := make([]ID, 0, len(r.beings))
	for id := range r.beings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(r.beings[id])
	}
}
