package circuit

import "sort"

// resolve returns the ordered handler list for (name, channels), memoised
// on the root under the (name, channels) key until any structural or
// registration change clears the entire cache (spec §4.4, invariant 4).
func (m *Manager) resolve(name string, channels []Channel) []*Handler {
	key := name + "\x01" + channelKeys(channels)

	m.cacheMu.RLock()
	if cached, ok := m.cache[key]; ok {
		m.cacheMu.RUnlock()
		m.metrics.RecordCacheHit()
		return cached
	}
	m.cacheMu.RUnlock()

	m.metrics.RecordCacheMiss()
	handlers := m.resolveUncached(name, channels)

	m.cacheMu.Lock()
	m.cache[key] = handlers
	m.cacheMu.Unlock()

	return handlers
}

// resolveUncached collects candidate handlers for name and sorts them by
// (priority, filter) descending; ties keep their collection order (tree
// walk, then registration order within a bucket), so the order is the same
// on every run (spec §5: "implementations must pick a total order... to
// make tests reproducible").
//
// A component-targeted requested channel redirects resolution entirely to
// that component's own handler buckets, the same way the source's
// getHandlers does: "if channel_is_instance and channel != self: return
// channel.getHandlers(event, channel)" skips the recursive
// "for c in self.components" walk once redirected, so only the target's own
// handlers (and its own globals) are ever consulted — never siblings,
// ancestors, or other branches of the tree.
//
// Otherwise it walks the whole tree, keeping handlers whose effective
// channel matches one of the requested channels (or which are global,
// unconditionally kept — spec §4.4 step 5).
func (m *Manager) resolveUncached(name string, channels []Channel) []*Handler {
	if target := targetedComponent(channels); target != nil {
		return sortHandlers(target.registry.collect(name, nil))
	}

	var candidates []*Handler

	var walk func(c *Component)
	walk = func(c *Component) {
		candidates = c.registry.collect(name, candidates)
		for _, child := range c.Children() {
			walk(child)
		}
	}
	walk(&m.Component)

	result := make([]*Handler, 0, len(candidates))
	for _, h := range candidates {
		if h.isGlobal() {
			result = append(result, h)
			continue
		}
		if matchesAnyChannel(h.effectiveChannel(), channels) {
			result = append(result, h)
		}
	}

	return sortHandlers(result)
}

// targetedComponent returns the first component-targeted channel's target,
// or nil if every requested channel is a plain string token.
func targetedComponent(channels []Channel) *Component {
	for _, c := range channels {
		if c.IsComponentTargeted() {
			return c.Target()
		}
	}
	return nil
}

func sortHandlers(handlers []*Handler) []*Handler {
	sort.SliceStable(handlers, func(i, j int) bool {
		if handlers[i].Priority != handlers[j].Priority {
			return handlers[i].Priority > handlers[j].Priority
		}
		if handlers[i].Filter != handlers[j].Filter {
			return handlers[i].Filter
		}
		return false
	})
	return handlers
}

// matchesAnyChannel implements spec §4.4 step 4 for the non-redirected
// (plain string channel) path: keep the handler if the requested channel is
// wildcard, the effective channel equals the requested channel, or the
// effective channel is wildcard.
func matchesAnyChannel(effective Channel, requested []Channel) bool {
	for _, r := range requested {
		if r.IsWildcard() {
			return true
		}
		if effective.equal(r) {
			return true
		}
		if effective.IsWildcard() {
			return true
		}
	}
	return false
}

func (m *Manager) invalidateCache() {
	m.cacheMu.Lock()
	m.cache = make(map[string][]*Handler)
	m.cacheMu.Unlock()
}
