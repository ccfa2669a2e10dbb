// Package observability mirrors bubblyui's pkg/bubbly/observability: a
// pluggable error reporter with a zero-overhead no-op default, so that a
// circuit.Manager can ship its synthesized Error events to an external
// tracker without the core package depending on one.
package observability

// ErrorReporter receives errors the circuit dispatcher turns into Error
// events. Implementations must be safe for concurrent use; a reporter is
// invoked from whatever goroutine is running the manager's tick loop.
type ErrorReporter interface {
	// ReportError is called once per handler, tick, or task failure.
	// handlerID is empty when the failure did not originate from a
	// specific registered handler (e.g. a tick callable).
	ReportError(err error, eventName, handlerID string)
}

// NoOpReporter discards every error. It is the default used when a Manager
// is constructed without an observability.ErrorReporter option.
type NoOpReporter struct{}

func (NoOpReporter) ReportError(err error, eventName, handlerID string) {}

// Default is the shared NoOpReporter instance.
var Default ErrorReporter = NoOpReporter{}
