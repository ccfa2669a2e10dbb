package circuit

import "github.com/google/uuid"

// HandlerFunc is a registered handler callable. It always receives the
// Event being dispatched — Go's static typing makes the source's
// args/kwargs-vs-event calling convention moot, so PassEvent is kept as
// registered metadata for introspection and parity with spec.md's handler
// attributes rather than as a second call signature (see DESIGN.md).
//
// A non-nil, non-error return is stored into the event's Value unless it
// implements Continuation, in which case the dispatcher suspends it as a
// task (spec §4.5/§4.6).
type HandlerFunc func(event Event) (interface{}, error)

// HandlerDescriptor is how a Component registers a handler, the statically
// typed substitute for the source's method-introspection step (spec §9,
// "Dynamic handler discovery").
type HandlerDescriptor struct {
	// Names is the set of event names this handler subscribes to. Empty
	// means wildcard (matches every name).
	Names []string

	// Channel overrides the owning component's channel for this handler.
	// Empty defers to the owning component's channel; "*" matches any
	// channel.
	Channel string

	// Priority orders handlers for the same event; higher runs first.
	Priority int

	// Filter, when true, halts dispatch for the remainder of the ordered
	// handler list if this handler's return is truthy.
	Filter bool

	// PassEvent records whether this handler was declared as wanting the
	// event as an explicit argument. See HandlerFunc's doc comment.
	PassEvent bool

	Func HandlerFunc
}

// Handler is a bound, registered HandlerDescriptor.
type Handler struct {
	ID        string
	Component *Component
	Names     map[string]struct{}
	Channel   string
	Priority  int
	Filter    bool
	PassEvent bool
	Fn        HandlerFunc
}

func newHandler(owner *Component, d HandlerDescriptor) *Handler {
	var names map[string]struct{}
	if len(d.Names) > 0 {
		names = make(map[string]struct{}, len(d.Names))
		for _, n := range d.Names {
			names[n] = struct{}{}
		}
	}
	return &Handler{
		ID:        uuid.New().String(),
		Component: owner,
		Names:     names,
		Channel:   d.Channel,
		Priority:  d.Priority,
		Filter:    d.Filter,
		PassEvent: d.PassEvent,
		Fn:        d.Func,
	}
}

// wildcardName reports whether this handler subscribes to every name.
func (h *Handler) wildcardName() bool {
	return len(h.Names) == 0
}

// matchesName reports whether this handler's name set includes name. Only
// meaningful for non-wildcard handlers.
func (h *Handler) matchesName(name string) bool {
	_, ok := h.Names[name]
	return ok
}

// isGlobal reports whether this handler is in the "globals" bucket: wildcard
// name and wildcard channel (spec §4.1).
func (h *Handler) isGlobal() bool {
	return h.wildcardName() && (h.Channel == "" || h.Channel == wildcardToken) && h.ownerChannelIsWildcard()
}

func (h *Handler) ownerChannelIsWildcard() bool {
	if h.Channel != "" {
		return h.Channel == wildcardToken
	}
	if h.Component == nil {
		return true
	}
	return h.Component.Channel() == wildcardToken
}

// effectiveChannel is the channel used for matching: explicit override, else
// the owning component's channel (spec §4.4 step 3).
func (h *Handler) effectiveChannel() Channel {
	if h.Channel != "" {
		return Chan(h.Channel)
	}
	if h.Component != nil {
		return Chan(h.Component.Channel())
	}
	return WildcardChannel
}

func truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
