package circuit

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Xtinci0n/circuits/pkg/monitoring"
	"github.com/Xtinci0n/circuits/pkg/observability"
)

// defaultIdleQuantum is the idle tick sleep when both the queue and the
// tick set are empty (spec §4.8).
const defaultIdleQuantum = 10 * time.Millisecond

// Manager is the root of a component tree: it embeds Component so it is
// itself a valid tree node, and additionally owns the queue, the
// handler-resolution cache, the live task set, and the tick set shared by
// every descendant (spec §2, §3).
type Manager struct {
	Component

	queue   []queuedEvent
	queueMu sync.Mutex

	cache   map[string][]*Handler
	cacheMu sync.RWMutex

	tasks   []*task
	tasksMu sync.Mutex

	allTicks []TickFunc

	running atomic.Bool
	stopCh  chan struct{}

	idleQuantum time.Duration
	errors      observability.ErrorReporter
	metrics     monitoring.DispatchMetrics

	maxTaskStepsPerTick int
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*Manager)

// WithIdleQuantum overrides the default 10ms idle sleep.
func WithIdleQuantum(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleQuantum = d }
}

// WithErrorReporter wires an observability.ErrorReporter; every Error event
// the dispatcher synthesizes is also handed to it.
func WithErrorReporter(r observability.ErrorReporter) ManagerOption {
	return func(m *Manager) { m.errors = r }
}

// WithMetrics wires a monitoring.DispatchMetrics sink.
func WithMetrics(metrics monitoring.DispatchMetrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithMaxTaskStepsPerTick bounds how many tasks the scheduler advances in
// one Tick; 0 (the default) is unbounded. This is a safety valve absent
// from the original implementation — see SPEC_FULL.md's "SUPPLEMENTED
// FEATURES" — so it defaults off and changes no documented behavior.
func WithMaxTaskStepsPerTick(n int) ManagerOption {
	return func(m *Manager) { m.maxTaskStepsPerTick = n }
}

// NewManager creates a new root Manager. It is its own root: Root() on the
// returned Manager (or on any descendant registered under it) returns m.
func NewManager(id string, opts ...ManagerOption) *Manager {
	m := &Manager{
		cache:       make(map[string][]*Handler),
		idleQuantum: defaultIdleQuantum,
		errors:      observability.Default,
		metrics:     monitoring.Default,
	}
	m.Component = Component{
		id:          id,
		channel:     wildcardToken,
		registry:    newHandlerRegistry(),
		managerSelf: m,
	}
	m.Component.root = m

	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) recomputeTicks() {
	var all []TickFunc
	var walk func(c *Component)
	walk = func(c *Component) {
		all = append(all, c.ownTicks()...)
		for _, child := range c.Children() {
			walk(child)
		}
	}
	walk(&m.Component)

	m.tasksMu.Lock()
	m.allTicks = all
	m.tasksMu.Unlock()
}

func (m *Manager) snapshotTicks() []TickFunc {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()
	out := make([]TickFunc, len(m.allTicks))
	copy(out, m.allTicks)
	return out
}

// ---- dispatch ----------------------------------------------------------

// flush drains the queue and dispatches every entry, the per-cycle body of
// Tick (spec §4.5).
func (m *Manager) flush() error {
	batch := m.drain()
	m.metrics.RecordQueueDepth(len(batch))
	for _, qe := range batch {
		if err := m.dispatch(qe.event, qe.channels); err != nil {
			return err
		}
	}
	return nil
}

// dispatch resolves and invokes the ordered handler list for one event,
// then runs the completion gate (spec §4.5).
func (m *Manager) dispatch(event Event, channels []Channel) error {
	handlers := m.resolve(event.Name(), channels)

	stopped := false
	for _, h := range handlers {
		event.SetHandler(h)

		start := time.Now()
		result, err := m.invokeHandler(h, event)
		m.metrics.RecordHandlerInvocation(event.Name(), time.Since(start))

		if err != nil {
			if isFatal(err) {
				return err
			}
			m.handleHandlerError(event, h, err)
			continue
		}

		if cont, ok := result.(Continuation); ok && cont != nil {
			event.incWaiting()
			event.Value().MarkPromise()
			m.registerTask(event, cont, nil)
		} else if result != nil {
			event.Value().Set(result)
		}

		if h.Filter && truthy(result) {
			stopped = true
			break
		}
	}
	event.SetHandler(nil)
	_ = stopped

	m.eventDone(event, nil)
	return nil
}

// invokeHandler calls h.Fn, recovering a panic into an error unless the
// panic (or returned error) is ErrInterrupt/ErrExit, which is returned
// unchanged so dispatch passes it out of Tick (spec §7, item 1).
func (m *Manager) invokeHandler(h *Handler, event Event) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if fp, ok := r.(fatalPanic); ok {
				err = fp.err
				return
			}
			if e, ok := r.(error); ok && isFatal(e) {
				err = e
				return
			}
			err = fmt.Errorf("circuit: handler %s panicked: %v", h.ID, r)
		}
	}()
	result, err = h.Fn(event)
	if err != nil && isFatal(err) {
		panic(fatalPanic{err: err})
	}
	return result, err
}

// handleHandlerError implements spec §4.5/§7 item 2: mark the value
// errored, synthesize an Error event on the default channel, and — if the
// originating event opted in — synthesize <Name>Failure on its channels.
func (m *Manager) handleHandlerError(event Event, h *Handler, err error) {
	event.Value().MarkErrored()
	m.errors.ReportError(err, event.Name(), h.ID)
	m.metrics.RecordError(event.Name())

	errEvt := newErrorEvent(h, err)
	if _, fireErr := m.Fire(errEvt, WildcardChannel); fireErr != nil {
		m.errors.ReportError(fireErr, "Error", "")
	}

	if event.Failure() {
		failEvt := Create(event.Name()+"Failure", event, err)
		if _, fireErr := m.Fire(failEvt, event.Channels()...); fireErr != nil {
			m.errors.ReportError(fireErr, failEvt.Name(), "")
		}
	}
}

// eventDone is the single completion gate (spec §4.5): a no-op while
// WaitingHandlers() > 0; otherwise fires <Name>Done when AlertDone is set,
// and <Name>Success when there was no error and Success is set.
func (m *Manager) eventDone(event Event, err error) {
	if event.WaitingHandlers() > 0 {
		return
	}
	event.Value().Inform(true)

	if event.AlertDone() {
		doneEvt := Create(event.Name()+"Done", event, event.Value())
		_, _ = m.Fire(doneEvt, event.Channels()...)
	}

	if err == nil && !event.Value().Errored() && event.Success() {
		successEvt := Create(event.Name()+"Success", event, event.Value())
		_, _ = m.Fire(successEvt, event.Channels()...)
	}
}

// ---- task scheduler -----------------------------------------------------

func (m *Manager) registerTask(event Event, cont Continuation, parent *task) *task {
	t := &task{id: newTaskID(), event: event, cont: cont, parent: parent}
	m.tasksMu.Lock()
	m.tasks = append(m.tasks, t)
	m.tasksMu.Unlock()
	return t
}

func (m *Manager) removeTask(t *task) {
	m.tasksMu.Lock()
	for i, cur := range m.tasks {
		if cur == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	m.tasksMu.Unlock()
}

func (m *Manager) reregisterTask(t *task) {
	m.tasksMu.Lock()
	m.tasks = append(m.tasks, t)
	m.tasksMu.Unlock()
}

func (m *Manager) taskCount() int {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()
	return len(m.tasks)
}

// advanceTasks steps every currently-live task once (spec §4.6), or at most
// maxTaskStepsPerTick of them when that bound is set; the rest wait for the
// next Tick. Task
// ordering across ticks is not guaranteed FIFO, only causality between
// parent and child is preserved.
func (m *Manager) advanceTasks() error {
	m.tasksMu.Lock()
	snapshot := make([]*task, len(m.tasks))
	copy(snapshot, m.tasks)
	m.tasks = m.tasks[:0]
	m.tasksMu.Unlock()

	if m.maxTaskStepsPerTick > 0 && len(snapshot) > m.maxTaskStepsPerTick {
		overflow := snapshot[m.maxTaskStepsPerTick:]
		snapshot = snapshot[:m.maxTaskStepsPerTick]
		m.tasksMu.Lock()
		m.tasks = append(m.tasks, overflow...)
		m.tasksMu.Unlock()
	}

	for _, t := range snapshot {
		if err := m.advanceOne(t); err != nil {
			return err
		}
	}

	m.metrics.RecordTaskCount(m.taskCount())
	return nil
}

// advanceOne advances task t one step and, when it spawns a child, primes
// that child depth-first exactly once before returning (spec §4.6: "the
// child is immediately advanced once").
//
// A panic out of Advance (as opposed to a StepError return) is routed
// through the same finishTask path as StepError — the event's value is
// marked errored and informed, WaitingHandlers is decremented, and
// Error/<Name>Failure are fired — so a panicking task never leaks a
// dangling waiter (spec §7 item 4). A StepError carrying ErrInterrupt/
// ErrExit is the one exception: it is returned out of advanceTasks and
// Tick, the same as every other fatal site, instead of being absorbed into
// a task failure.
func (m *Manager) advanceOne(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if fp, ok := r.(fatalPanic); ok {
				err = fp.err
				return
			}
			taskErr := fmt.Errorf("circuit: task %s panicked: %v", t.id, r)
			m.finishTask(t, taskErr)
		}
	}()

	step := t.cont.Advance()

	switch step.Kind {
	case StepPause:
		m.reregisterTask(t)

	case StepSpawn:
		child := &task{id: newTaskID(), event: t.event, cont: step.Child, parent: t}
		t.event.incWaiting()
		return m.advanceOne(child)

	case StepValue:
		t.event.Value().Set(step.Value)
		m.reregisterTask(t)

	case StepDone:
		m.finishTask(t, nil)

	case StepError:
		if isFatal(step.Err) {
			return step.Err
		}
		m.finishTask(t, step.Err)
	}

	return nil
}

func (m *Manager) finishTask(t *task, taskErr error) {
	if t.parent != nil {
		m.reregisterTask(t.parent)
	}

	remaining := t.event.decWaiting()

	if taskErr != nil {
		t.event.Value().MarkErrored()
		m.errors.ReportError(taskErr, t.event.Name(), "")
		m.metrics.RecordError(t.event.Name())

		errEvt := newErrorEvent(t.event.Handler(), taskErr)
		_, _ = m.Fire(errEvt, WildcardChannel)

		if t.event.Failure() {
			failEvt := Create(t.event.Name()+"Failure", t.event, taskErr)
			_, _ = m.Fire(failEvt, t.event.Channels()...)
		}
	}

	if remaining <= 0 {
		m.eventDone(t.event, boolToErr(t.event.Value().Errored()))
	}
}

func boolToErr(errored bool) error {
	if errored {
		return fmt.Errorf("circuit: event value errored")
	}
	return nil
}

// ---- lifecycle & run loop ------------------------------------------------

// Tick runs one pass: invoke every tick callable, advance every task once,
// then flush the queue; sleep the idle quantum if nothing was pending
// (spec §4.8).
func (m *Manager) Tick() error {
	start := time.Now()
	defer func() { m.metrics.RecordTickDuration(time.Since(start)) }()

	ticks := m.snapshotTicks()
	queueWasEmpty := m.queueLen() == 0

	for _, fn := range ticks {
		if err := m.invokeTick(fn); err != nil {
			if isFatal(err) {
				return err
			}
		}
	}

	if err := m.advanceTasks(); err != nil {
		if isFatal(err) {
			return err
		}
	}

	if err := m.flush(); err != nil {
		return err
	}

	if queueWasEmpty && len(ticks) == 0 && m.taskCount() == 0 {
		time.Sleep(m.idleQuantum)
	}
	return nil
}

func (m *Manager) invokeTick(fn TickFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if fp, ok := r.(fatalPanic); ok {
				err = fp.err
				return
			}
			panicErr := fmt.Errorf("circuit: tick callable panicked: %v", r)
			m.errors.ReportError(panicErr, "tick", "")
			m.metrics.RecordError("tick")
			_, _ = m.Fire(newErrorEvent(nil, panicErr), WildcardChannel)
		}
	}()

	err = fn()
	if err != nil {
		if isFatal(err) {
			panic(fatalPanic{err: err})
		}
		m.errors.ReportError(err, "tick", "")
		m.metrics.RecordError("tick")
		errEvt := newErrorEvent(nil, err)
		_, _ = m.Fire(errEvt, WildcardChannel)
		return nil
	}
	return nil
}

// Start launches the run loop on a new goroutine, the Go analogue of the
// source's thread-based start. Unlike Run, Start does not install OS signal
// handlers, mirroring the source's convention that only a main-thread Run
// installs them.
func (m *Manager) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.stopCh = make(chan struct{})
	go m.loop(false)
}

// Run executes the run loop on the calling goroutine and installs SIGINT/
// SIGTERM handlers that fire a Signal event and then call Stop (spec §4.9).
// It blocks until the manager stops.
func (m *Manager) Run() error {
	if !m.running.CompareAndSwap(false, true) {
		return nil
	}
	m.stopCh = make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			_, _ = m.Fire(NewSignalEvent(sig))
			m.Stop()
		case <-m.stopCh:
		}
	}()

	return m.loop(true)
}

func (m *Manager) loop(blocking bool) error {
	_, _ = m.Fire(NewStartedEvent(m))

	for m.running.Load() || m.queueLen() > 0 {
		if err := m.Tick(); err != nil {
			m.running.Store(false)
			return err
		}
	}
	return nil
}

// Stop is idempotent: calling it on an already-stopped manager is a no-op.
// On a running manager it flips running to false, fires Stopped, then
// calls Tick three times to drain in-flight work (spec §4.9).
func (m *Manager) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}

	_, _ = m.Fire(NewStoppedEvent(m))

	for i := 0; i < 3; i++ {
		_ = m.Tick()
	}

	if m.stopCh != nil {
		close(m.stopCh)
	}
}

// Running reports whether the manager's run loop is active.
func (m *Manager) Running() bool {
	return m.running.Load()
}

var taskIDCounter uint64

func newTaskID() string {
	n := atomic.AddUint64(&taskIDCounter, 1)
	return fmt.Sprintf("task-%d", n)
}
