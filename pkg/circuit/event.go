package circuit

import (
	"sync/atomic"
	"time"
)

// Event is the message carried through the manager's queue. Implementations
// embed *BaseEvent and add their own typed payload fields, mirroring the
// way bubblyui's standard events (KeyEvent, MouseEvent, ...) embed
// *bubble.BaseEvent.
type Event interface {
	// Name identifies the event for handler-name matching and for deriving
	// the synthetic <Name>Done/<Name>Success/<Name>Failure names. Matching
	// is an exact string comparison; callers choose the casing (see
	// DESIGN.md for why this sidesteps the source's class-name derivation).
	Name() string

	// Channels returns the channel tuple this event was fired on. Empty
	// until Fire assigns it.
	Channels() []Channel
	SetChannels(channels []Channel)

	// Args and Kwargs carry the event's payload.
	Args() []interface{}
	Kwargs() map[string]interface{}

	// Value is the future result cell allocated by Fire.
	Value() *Value
	SetValue(v *Value)

	// Handler is the handler currently executing against this event,
	// transient state used only while the dispatcher is invoking handlers.
	Handler() *Handler
	SetHandler(h *Handler)

	// WaitingHandlers is the count of outstanding task continuations for
	// this event (invariant: equals the number of live tasks referencing
	// it in the root's task set).
	WaitingHandlers() int32
	incWaiting() int32
	decWaiting() int32

	// Success, Failure and AlertDone are the opt-in lifecycle flags.
	Success() bool
	SetSuccess(v bool)
	Failure() bool
	SetFailure(v bool)
	AlertDone() bool
	SetAlertDone(v bool)

	// FiredAt is when the event was constructed.
	FiredAt() time.Time
}

// BaseEvent is the default Event implementation. Concrete event types embed
// it the way bubblyui's standard_events.go embeds *bubble.BaseEvent.
type BaseEvent struct {
	name            string
	channels        []Channel
	args            []interface{}
	kwargs          map[string]interface{}
	value           *Value
	handler         *Handler
	waitingHandlers int32
	success         bool
	failure         bool
	alertDone       bool
	firedAt         time.Time
}

// NewEvent constructs a BaseEvent with the given name and positional args.
// WithLifecycle may then opt the event into Success/Failure/Done lifecycle
// emission.
func NewEvent(name string, args ...interface{}) *BaseEvent {
	return &BaseEvent{
		name:    name,
		args:    args,
		kwargs:  nil,
		firedAt: time.Now(),
	}
}

// NewEventWithKwargs is NewEvent plus a keyword-argument payload.
func NewEventWithKwargs(name string, kwargs map[string]interface{}, args ...interface{}) *BaseEvent {
	e := NewEvent(name, args...)
	e.kwargs = kwargs
	return e
}

// Create mints a synthetic event, the Go analogue of the source's
// "create(cls_name, *args)" factory used for <Name>Done/Success/Failure.
func Create(name string, args ...interface{}) *BaseEvent {
	return NewEvent(name, args...)
}

// WithLifecycle opts an event into Done/Success/Failure emission and
// returns it, for compact construction at a fire site.
func (e *BaseEvent) WithLifecycle(success, failure, alertDone bool) *BaseEvent {
	e.success = success
	e.failure = failure
	e.alertDone = alertDone
	return e
}

func (e *BaseEvent) Name() string { return e.name }

func (e *BaseEvent) Channels() []Channel { return e.channels }

func (e *BaseEvent) SetChannels(channels []Channel) { e.channels = channels }

func (e *BaseEvent) Args() []interface{} { return e.args }

func (e *BaseEvent) Kwargs() map[string]interface{} { return e.kwargs }

func (e *BaseEvent) Value() *Value { return e.value }

func (e *BaseEvent) SetValue(v *Value) { e.value = v }

func (e *BaseEvent) Handler() *Handler { return e.handler }

func (e *BaseEvent) SetHandler(h *Handler) { e.handler = h }

func (e *BaseEvent) WaitingHandlers() int32 {
	return atomic.LoadInt32(&e.waitingHandlers)
}

func (e *BaseEvent) incWaiting() int32 {
	return atomic.AddInt32(&e.waitingHandlers, 1)
}

func (e *BaseEvent) decWaiting() int32 {
	return atomic.AddInt32(&e.waitingHandlers, -1)
}

func (e *BaseEvent) Success() bool { return e.success }

func (e *BaseEvent) SetSuccess(v bool) { e.success = v }

func (e *BaseEvent) Failure() bool { return e.failure }

func (e *BaseEvent) SetFailure(v bool) { e.failure = v }

func (e *BaseEvent) AlertDone() bool { return e.alertDone }

func (e *BaseEvent) SetAlertDone(v bool) { e.alertDone = v }

func (e *BaseEvent) FiredAt() time.Time { return e.firedAt }
