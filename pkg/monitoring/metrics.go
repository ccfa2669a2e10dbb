// Package monitoring mirrors bubblyui's pkg/bubbly/monitoring: a pluggable
// metrics interface with a zero-overhead no-op default, so a circuit.Manager
// can expose dispatch metrics without the core package depending on a
// metrics backend.
package monitoring

import "time"

// DispatchMetrics receives measurements from a circuit.Manager's dispatch
// cycle. Implementations must be safe for concurrent use and must not
// block: recording happens inline on the manager's tick goroutine.
type DispatchMetrics interface {
	// RecordQueueDepth records how many (event, channels) pairs were
	// drained in one dispatch cycle.
	RecordQueueDepth(depth int)
	// RecordCacheHit/RecordCacheMiss count resolution-cache lookups.
	RecordCacheHit()
	RecordCacheMiss()
	// RecordHandlerInvocation records one handler call and its duration.
	RecordHandlerInvocation(eventName string, duration time.Duration)
	// RecordTaskCount records the number of live suspended tasks after a
	// scheduler pass.
	RecordTaskCount(count int)
	// RecordError records one synthesized Error event.
	RecordError(eventName string)
	// RecordTickDuration records how long one full Tick took.
	RecordTickDuration(duration time.Duration)
}

// NoOp is the default DispatchMetrics: every method is a no-op.
type NoOp struct{}

func (NoOp) RecordQueueDepth(int)                             {}
func (NoOp) RecordCacheHit()                                   {}
func (NoOp) RecordCacheMiss()                                  {}
func (NoOp) RecordHandlerInvocation(string, time.Duration)     {}
func (NoOp) RecordTaskCount(int)                               {}
func (NoOp) RecordError(string)                                {}
func (NoOp) RecordTickDuration(time.Duration)                  {}

// Default is the shared NoOp instance.
var Default DispatchMetrics = NoOp{}
