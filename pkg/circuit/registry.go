package circuit

import "sync"

// handlerRegistry indexes a single component's own handlers into the three
// buckets described in spec §4.1: globals (wildcard name, wildcard
// channel), nameWildcards (wildcard name, specific channel), and byName
// (event name -> handlers, any channel).
type handlerRegistry struct {
	mu            sync.RWMutex
	globals       []*Handler
	nameWildcards []*Handler
	byName        map[string][]*Handler
	byID          map[string]*Handler
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		byName: make(map[string][]*Handler),
		byID:   make(map[string]*Handler),
	}
}

func (r *handlerRegistry) add(h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[h.ID] = h

	switch {
	case h.isGlobal():
		r.globals = append(r.globals, h)
	case h.wildcardName():
		r.nameWildcards = append(r.nameWildcards, h)
	default:
		for name := range h.Names {
			r.byName[name] = append(r.byName[name], h)
		}
	}
}

// remove deletes the handler with the given id, returning whether it was
// present. Removing an unregistered id is a safe no-op (spec §7, item 5).
func (r *handlerRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)

	switch {
	case h.isGlobal():
		r.globals = removeHandlerFromSlice(r.globals, id)
	case h.wildcardName():
		r.nameWildcards = removeHandlerFromSlice(r.nameWildcards, id)
	default:
		for name := range h.Names {
			r.byName[name] = removeHandlerFromSlice(r.byName[name], id)
		}
	}
	return true
}

func removeHandlerFromSlice(handlers []*Handler, id string) []*Handler {
	out := handlers[:0]
	for _, h := range handlers {
		if h.ID != id {
			out = append(out, h)
		}
	}
	return out
}

// collect appends every candidate handler for the given event name owned by
// this component into dst: the nameWildcards bucket, the byName bucket for
// this name, and unconditionally the globals bucket (spec §4.4 steps 1,2,5).
func (r *handlerRegistry) collect(name string, dst []*Handler) []*Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dst = append(dst, r.nameWildcards...)
	dst = append(dst, r.byName[name]...)
	dst = append(dst, r.globals...)
	return dst
}

func (r *handlerRegistry) isEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID) == 0
}
