package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/theognis1002/linkmark/internal/search"
)

var errUnknownDocument = errors.New("unknown document")

// registry holds the loaded documents, evicting the oldest past max.
type registry struct {
	mu    sync.Mutex
	limit int
	docs  map[string]*search.Controller
	order []string
}

func newRegistry(limit int) *registry {
	return &registry{limit: limit, docs: make(map[string]*search.Controller)}
}

func (r *registry) add(c *search.Controller) (id string, evicted []string) {
	id = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs[id] = c
	r.order = append(r.order, id)
	for r.limit > 0 && len(r.order) > r.limit {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.docs, oldest)
		evicted = append(evicted, oldest)
	}
	return id, evicted
}

func (r *registry) get(id string) (*search.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.docs[id]
	if !ok {
		return nil, errUnknownDocument
	}
	return c, nil
}

func (r *registry) remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return errUnknownDocument
	}
	delete(r.docs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}
