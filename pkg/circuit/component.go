package circuit

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TickFunc is a periodic callable a component contributes to the root's
// tick set (spec §4.8).
type TickFunc func() error

type tickEntry struct {
	id string
	fn TickFunc
}

// Component is a node in the tree: it owns its own handler registry and
// child set, and carries a pointer to the tree's root Manager. Manager
// embeds Component, so the root is itself a Component with a nil parent
// whose root field points back to itself.
type Component struct {
	id      string
	kind    string
	channel string

	mu       sync.RWMutex
	parent   *Component
	root     *Manager
	children []*Component

	registry *handlerRegistry
	ticks    []tickEntry

	// managerSelf is non-nil when this Component is the node embedded in a
	// Manager; it lets Unregister restore self-rootedness on detach without
	// a package-level registry or an import cycle.
	managerSelf *Manager
}

// NewComponent creates a standalone component. kind is a free-form tag used
// by ContainsKind, the statically typed substitute for "query membership by
// class" (spec §4.2).
func NewComponent(id, kind string) *Component {
	if id == "" {
		id = uuid.New().String()
	}
	return &Component{
		id:       id,
		kind:     kind,
		channel:  wildcardToken,
		registry: newHandlerRegistry(),
	}
}

func (c *Component) ID() string { return c.id }

func (c *Component) Kind() string { return c.kind }

func (c *Component) Channel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

func (c *Component) SetChannel(channel string) {
	if channel == "" {
		channel = wildcardToken
	}
	c.mu.Lock()
	c.channel = channel
	c.mu.Unlock()
}

func (c *Component) Parent() *Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parent
}

// Root returns the Manager owning this component's tree, or nil if this
// component has never been attached to one and is not itself a Manager.
func (c *Component) Root() *Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root
}

func (c *Component) Children() []*Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Component, len(c.children))
	copy(out, c.children)
	return out
}

// Register attaches child to c, the spec's "register(parent)" operation
// (spec §4.2, §6). If child was itself a (possibly non-root) manager with
// events already queued, those events are migrated onto the new root's
// queue, preserving order, before the cache is invalidated.
func (c *Component) Register(child *Component) error {
	if child == nil {
		return fmt.Errorf("circuit: cannot register a nil component")
	}
	if child == c {
		return fmt.Errorf("circuit: component %s cannot register itself", c.id)
	}

	oldParent := child.Parent()
	if oldParent != nil {
		oldParent.Unregister(child)
	}

	oldRoot := child.Root()

	c.mu.Lock()
	child.mu.Lock()
	child.parent = c
	c.children = append(c.children, child)
	newRoot := c.root
	child.mu.Unlock()
	c.mu.Unlock()

	child.adoptRoot(newRoot)

	if oldRoot != nil && oldRoot != newRoot && newRoot != nil {
		newRoot.migrateQueueFrom(oldRoot)
	}

	if newRoot != nil {
		newRoot.invalidateCache()
		newRoot.recomputeTicks()
	}
	return nil
}

// adoptRoot recursively repoints c and every descendant's root pointer.
func (c *Component) adoptRoot(root *Manager) {
	c.mu.Lock()
	c.root = root
	children := make([]*Component, len(c.children))
	copy(children, c.children)
	c.mu.Unlock()

	for _, child := range children {
		child.adoptRoot(root)
	}
}

// Unregister detaches child from c, the spec's "unregister()" operation.
// child becomes its own (rootless, or self-root if it is itself a Manager)
// tree. Returns false if child was not a direct child of c.
func (c *Component) Unregister(child *Component) bool {
	c.mu.Lock()
	removed := false
	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			removed = true
			break
		}
	}
	root := c.root
	c.mu.Unlock()

	if !removed {
		return false
	}

	child.mu.Lock()
	child.parent = nil
	child.mu.Unlock()

	// A detached plain component has no manager of its own; a detached
	// Manager keeps acting as its own root (see selfManager).
	if selfRoot := child.selfManager(); selfRoot != nil {
		child.adoptRoot(selfRoot)
	} else {
		child.adoptRoot(nil)
	}

	if root != nil {
		root.invalidateCache()
		root.recomputeTicks()
	}
	return true
}

// selfManager returns the Manager c is embedded in, or nil if c is a plain
// (non-root-capable) component.
func (c *Component) selfManager() *Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.managerSelf
}

// AddHandler registers desc against c, returning the new handler's id.
// Registration always clears the root's resolution cache (spec §4.1); the
// root's tick set is recomputed by AddTick/RemoveTick and Register/
// Unregister, not here.
func (c *Component) AddHandler(desc HandlerDescriptor) string {
	h := newHandler(c, desc)
	c.registry.add(h)
	if root := c.Root(); root != nil {
		root.invalidateCache()
	}
	return h.ID
}

// RemoveHandler unregisters the handler with the given id. Returns whether
// a handler was actually removed; removing an absent id is a safe no-op.
func (c *Component) RemoveHandler(id string) bool {
	removed := c.registry.remove(id)
	if removed {
		if root := c.Root(); root != nil {
			root.invalidateCache()
		}
	}
	return removed
}

// AddTick registers a periodic callable owned by c, returning its id.
func (c *Component) AddTick(fn TickFunc) string {
	id := uuid.New().String()
	c.mu.Lock()
	c.ticks = append(c.ticks, tickEntry{id: id, fn: fn})
	c.mu.Unlock()
	if root := c.Root(); root != nil {
		root.recomputeTicks()
	}
	return id
}

// RemoveTick unregisters a previously added tick callable.
func (c *Component) RemoveTick(id string) bool {
	c.mu.Lock()
	removed := false
	for i, t := range c.ticks {
		if t.id == id {
			c.ticks = append(c.ticks[:i], c.ticks[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()
	if removed {
		if root := c.Root(); root != nil {
			root.recomputeTicks()
		}
	}
	return removed
}

func (c *Component) ownTicks() []TickFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TickFunc, len(c.ticks))
	for i, t := range c.ticks {
		out[i] = t.fn
	}
	return out
}

// Contains reports whether id identifies c itself or one of its descendants.
func (c *Component) Contains(id string) bool {
	if c.ID() == id {
		return true
	}
	for _, child := range c.Children() {
		if child.Contains(id) {
			return true
		}
	}
	return false
}

// ContainsKind reports whether c itself or one of its descendants was
// constructed with the given Kind tag.
func (c *Component) ContainsKind(kind string) bool {
	if c.Kind() == kind {
		return true
	}
	for _, child := range c.Children() {
		if child.ContainsKind(kind) {
			return true
		}
	}
	return false
}

// Fire determines the effective channel tuple (spec §4.3: explicit argument
// → event's own channels → this component's channel → wildcard), allocates
// a fresh Value bound to event, enqueues (event, channels) on the root's
// queue, and returns the Value as a placeholder for the eventual result.
// Fire never blocks and never invokes a handler synchronously.
func (c *Component) Fire(event Event, channels ...Channel) (*Value, error) {
	root := c.Root()
	if root == nil {
		return nil, fmt.Errorf("circuit: component %s has no root manager to fire %q into", c.id, event.Name())
	}

	effective := channels
	if len(effective) == 0 {
		effective = event.Channels()
	}
	if len(effective) == 0 {
		effective = []Channel{Chan(c.Channel())}
	}
	if len(effective) == 0 {
		effective = []Channel{WildcardChannel}
	}
	event.SetChannels(effective)

	val := NewValue()
	event.SetValue(val)

	root.enqueue(event, effective)
	return val, nil
}
