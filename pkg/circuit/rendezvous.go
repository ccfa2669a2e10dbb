package circuit

// This file implements the wait/call rendezvous primitives (spec §4.7) on
// top of the task scheduler: both are ordinary Continuation values that a
// handler returns like any other suspending handler, so they compose with
// everything else in §4.6 (nesting, depth-first priming, parent/child
// causality) for free.
//
// Both need a Component to act through — to install ephemeral handlers or
// to Fire — which a bare Continuation has no way to obtain on its own, so
// owner is supplied at construction instead of at Advance time.

// waitContinuation suspends the calling task until name fires on channel
// and that instance's completion gate has run (spec §4.5's <Name>Done
// alert), then resumes with the observed instance's Value.
type waitContinuation struct {
	owner   *Component
	name    string
	channel Channel

	installed bool
	ready     bool
	delivered bool
	observed  Event

	watchID string
	doneID  string
}

// Wait returns a Continuation that blocks the calling task until name fires
// on channel. A handler resumes it by returning the Continuation as its
// result; the dispatcher installs it as a task and advances it once per
// tick until it resolves (spec §4.6, §4.7).
func Wait(owner *Component, name string, channel Channel) Continuation {
	return &waitContinuation{owner: owner, name: name, channel: channel}
}

// install subscribes two ephemeral handlers: one on name itself, which
// records which Event instance fired and opts it into AlertDone so its
// <name>Done is actually synthesized; one on "<name>Done", which only runs
// once that instance's own handlers (and any tasks they spawned) have
// settled, and is what actually unblocks the wait.
func (w *waitContinuation) install() {
	filter := wildcardToken
	if !w.channel.IsComponentTargeted() && !w.channel.IsWildcard() {
		filter = w.channel.Key()
	}

	w.watchID = w.owner.AddHandler(HandlerDescriptor{
		Names:   []string{w.name},
		Channel: filter,
		Func: func(event Event) (interface{}, error) {
			event.SetAlertDone(true)
			w.observed = event
			return nil, nil
		},
	})

	w.doneID = w.owner.AddHandler(HandlerDescriptor{
		Names:   []string{w.name + "Done"},
		Channel: wildcardToken,
		Func: func(event Event) (interface{}, error) {
			args := event.Args()
			if len(args) == 0 {
				return nil, nil
			}
			src, ok := args[0].(Event)
			if !ok || src != w.observed {
				return nil, nil
			}
			w.ready = true
			return nil, nil
		},
	})

	w.installed = true
}

func (w *waitContinuation) uninstall() {
	w.owner.RemoveHandler(w.watchID)
	w.owner.RemoveHandler(w.doneID)
}

func (w *waitContinuation) Advance() Step {
	if !w.installed {
		w.install()
		return Pause()
	}
	if !w.ready {
		return Pause()
	}
	if !w.delivered {
		w.delivered = true
		w.uninstall()
		var result interface{}
		if w.observed != nil {
			result = w.observed.Value().Get()
		}
		return Yield(result)
	}
	return Finished()
}

// callContinuation fires event and suspends until its Value is finalized,
// then resumes with that Value's contents — Fire plus Wait collapsed into
// one step since the caller already holds the exact Event instance and so
// needs no name-based matching (spec §4.7: "call(event, *channels)").
type callContinuation struct {
	owner    *Component
	event    Event
	channels []Channel

	started   bool
	ready     bool
	delivered bool
	value     *Value
}

// Call fires event on channels (or event's own channel-resolution order if
// channels is empty, per Fire's rules) and suspends the calling task until
// every handler and task it spawned has finished, then resumes with the
// event's Value.
func Call(owner *Component, event Event, channels ...Channel) Continuation {
	return &callContinuation{owner: owner, event: event, channels: channels}
}

func (c *callContinuation) Advance() Step {
	if !c.started {
		c.started = true
		c.event.SetAlertDone(true)

		val, err := c.owner.Fire(c.event, c.channels...)
		if err != nil {
			return Failed(err)
		}
		c.value = val
		c.value.Observe(func(final bool) { c.ready = true })
		return Pause()
	}

	if !c.ready {
		return Pause()
	}

	if !c.delivered {
		c.delivered = true
		return Yield(c.value.Get())
	}

	return Finished()
}
