package circuit

// queuedEvent is one FIFO entry: an event paired with the channel tuple it
// was fired on (spec data model: "FIFO of (event, channels) pairs").
type queuedEvent struct {
	event    Event
	channels []Channel
}

func (m *Manager) enqueue(event Event, channels []Channel) {
	m.queueMu.Lock()
	m.queue = append(m.queue, queuedEvent{event: event, channels: channels})
	m.queueMu.Unlock()
}

// drain swaps the queue for a fresh empty slice and returns the previous
// contents, the "root swaps its queue for a fresh empty deque" step of
// spec §4.5.
func (m *Manager) drain() []queuedEvent {
	m.queueMu.Lock()
	batch := m.queue
	m.queue = nil
	m.queueMu.Unlock()
	return batch
}

func (m *Manager) queueLen() int {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	return len(m.queue)
}

// migrateQueueFrom appends other's queued events onto m's queue, preserving
// order, then empties other's queue (spec §4.2: "any events already queued
// on the child are migrated to the root queue preserving order").
func (m *Manager) migrateQueueFrom(other *Manager) {
	other.queueMu.Lock()
	migrated := other.queue
	other.queue = nil
	other.queueMu.Unlock()

	if len(migrated) == 0 {
		return
	}

	m.queueMu.Lock()
	m.queue = append(m.queue, migrated...)
	m.queueMu.Unlock()
}
