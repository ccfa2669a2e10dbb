package circuit

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickUntil drives m.Tick() up to n times, stopping early once done() is true.
func tickUntil(t *testing.T, m *Manager, n int, done func() bool) {
	t.Helper()
	for i := 0; i < n && !done(); i++ {
		require.NoError(t, m.Tick())
	}
}

func TestEchoHandlerReceivesFiredValue(t *testing.T) {
	m := NewManager("root")
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Echo"},
		Func: func(event Event) (interface{}, error) {
			return event.Args()[0], nil
		},
	})

	ev := NewEvent("Echo", "hello")
	val, err := m.Fire(ev)
	require.NoError(t, err)

	tickUntil(t, m, 5, func() bool { return val.Get() != nil })
	assert.Equal(t, "hello", val.Get())
}

func TestHandlersRunInPriorityOrder(t *testing.T) {
	m := NewManager("root")
	var mu sync.Mutex
	var order []string

	record := func(name string) HandlerFunc {
		return func(event Event) (interface{}, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		}
	}

	m.AddHandler(HandlerDescriptor{Names: []string{"Go"}, Priority: 1, Func: record("low")})
	m.AddHandler(HandlerDescriptor{Names: []string{"Go"}, Priority: 10, Func: record("high")})
	m.AddHandler(HandlerDescriptor{Names: []string{"Go"}, Priority: 5, Func: record("mid")})

	_, err := m.Fire(NewEvent("Go"))
	require.NoError(t, err)
	require.NoError(t, m.Tick())

	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestFilterHandlerShortCircuitsLowerPriority(t *testing.T) {
	m := NewManager("root")
	ranLower := false

	m.AddHandler(HandlerDescriptor{
		Names: []string{"Go"}, Priority: 10, Filter: true,
		Func: func(event Event) (interface{}, error) { return true, nil },
	})
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Go"}, Priority: 1,
		Func: func(event Event) (interface{}, error) { ranLower = true; return nil, nil },
	})

	_, err := m.Fire(NewEvent("Go"))
	require.NoError(t, err)
	require.NoError(t, m.Tick())

	assert.False(t, ranLower)
}

func TestSuspendedHandlerCompletesAcrossTicks(t *testing.T) {
	m := NewManager("root")
	steps := 0
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Slow"},
		Func: func(event Event) (interface{}, error) {
			return ContinuationFunc(func() Step {
				steps++
				switch steps {
				case 1:
					return Pause()
				case 2:
					return Yield("partial")
				default:
					return Finished()
				}
			}), nil
		},
	})

	val, err := m.Fire(NewEvent("Slow"))
	require.NoError(t, err)

	tickUntil(t, m, 6, func() bool { return val.Done() })
	assert.Equal(t, "partial", val.Get())
	assert.True(t, val.Done())
}

func TestWaitResumesAfterTargetEventCompletes(t *testing.T) {
	m := NewManager("root")
	waiter := NewComponent("waiter", "widget")
	require.NoError(t, m.Register(waiter))

	const fooResult = "foo-result"
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Foo"},
		Func:  func(event Event) (interface{}, error) { return fooResult, nil },
	})
	waiter.AddHandler(HandlerDescriptor{
		Names: []string{"Bar"},
		Func: func(event Event) (interface{}, error) {
			return Wait(waiter, "Foo", WildcardChannel), nil
		},
	})

	barVal, err := waiter.Fire(NewEvent("Bar"))
	require.NoError(t, err)
	tickUntil(t, m, 3, func() bool { return false })

	_, err = m.Fire(NewEvent("Foo"))
	require.NoError(t, err)
	tickUntil(t, m, 8, func() bool { return barVal.Done() })

	assert.Equal(t, fooResult, barVal.Get())
}

func TestCallFiresAndResumesWithResult(t *testing.T) {
	m := NewManager("root")
	caller := NewComponent("caller", "widget")
	require.NoError(t, m.Register(caller))

	m.AddHandler(HandlerDescriptor{
		Names: []string{"Add"},
		Func: func(event Event) (interface{}, error) {
			a, b := event.Args()[0].(int), event.Args()[1].(int)
			return a + b, nil
		},
	})

	outer := NewEvent("Sum")
	outerVal := NewValue()
	outer.SetValue(outerVal)

	task := &task{id: "t", event: outer, cont: Call(caller, NewEvent("Add", 2, 3))}
	m.tasks = append(m.tasks, task)
	outer.incWaiting()

	tickUntil(t, m, 8, func() bool { return outer.WaitingHandlers() == 0 })
	assert.Equal(t, 5, outerVal.Get())
}

func TestHandlerErrorFiresErrorAndFailureEvents(t *testing.T) {
	m := NewManager("root")
	boom := errors.New("boom")

	var errSeen, failSeen bool
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Risky"},
		Func:  func(event Event) (interface{}, error) { return nil, boom },
	})
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Error"},
		Func: func(event Event) (interface{}, error) {
			errSeen = true
			return nil, nil
		},
	})
	m.AddHandler(HandlerDescriptor{
		Names: []string{"RiskyFailure"},
		Func: func(event Event) (interface{}, error) {
			failSeen = true
			return nil, nil
		},
	})

	ev := NewEvent("Risky").WithLifecycle(false, true, false)
	_, err := m.Fire(ev)
	require.NoError(t, err)

	tickUntil(t, m, 4, func() bool { return errSeen && failSeen })
	assert.True(t, errSeen)
	assert.True(t, failSeen)
}

func TestPanickingTaskFinishesInsteadOfLeaking(t *testing.T) {
	m := NewManager("root")
	var errSeen bool
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Error"},
		Func: func(event Event) (interface{}, error) {
			errSeen = true
			return nil, nil
		},
	})
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Boom"},
		Func: func(event Event) (interface{}, error) {
			return ContinuationFunc(func() Step { panic("kaboom") }), nil
		},
	})

	ev := NewEvent("Boom")
	val, err := m.Fire(ev)
	require.NoError(t, err)

	tickUntil(t, m, 6, func() bool { return val.Done() })

	assert.True(t, val.Done())
	assert.True(t, val.Errored())
	assert.Equal(t, int32(0), ev.WaitingHandlers())
	assert.True(t, errSeen)
}

func TestPanickingTaskDoesNotStopSiblingTasks(t *testing.T) {
	m := NewManager("root")
	otherDone := false

	m.AddHandler(HandlerDescriptor{
		Names: []string{"Boom"},
		Func: func(event Event) (interface{}, error) {
			return ContinuationFunc(func() Step { panic("kaboom") }), nil
		},
	})
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Fine"},
		Func: func(event Event) (interface{}, error) {
			return ContinuationFunc(func() Step {
				otherDone = true
				return Finished()
			}), nil
		},
	})

	boomVal, err := m.Fire(NewEvent("Boom"))
	require.NoError(t, err)
	fineVal, err := m.Fire(NewEvent("Fine"))
	require.NoError(t, err)

	tickUntil(t, m, 6, func() bool { return boomVal.Done() && fineVal.Done() })

	assert.True(t, otherDone)
	assert.True(t, boomVal.Done())
	assert.True(t, fineVal.Done())
}

func TestFatalErrorPropagatesOutOfTick(t *testing.T) {
	m := NewManager("root")
	m.AddHandler(HandlerDescriptor{
		Names: []string{"Kill"},
		Func:  func(event Event) (interface{}, error) { return nil, ErrExit },
	})

	_, err := m.Fire(NewEvent("Kill"))
	require.NoError(t, err)

	err = m.Tick()
	assert.ErrorIs(t, err, ErrExit)
}

func TestStopIsIdempotent(t *testing.T) {
	m := NewManager("root")
	m.running.Store(true)
	m.stopCh = make(chan struct{})

	m.Stop()
	assert.False(t, m.Running())

	assert.NotPanics(t, func() { m.Stop() })
}
