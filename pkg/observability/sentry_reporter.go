package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryReporter ships circuit.Manager error events to Sentry, mirroring
// bubblyui's pkg/bubbly/observability.SentryReporter: a thin wrapper over a
// dedicated Hub so it is safe to share across the manager's tick goroutine
// and any caller goroutines.
type SentryReporter struct {
	hub *sentry.Hub
}

// SentryOption configures a SentryReporter at construction.
type SentryOption func(*sentry.ClientOptions)

// WithDebug toggles Sentry's own debug logging.
func WithDebug(debug bool) SentryOption {
	return func(o *sentry.ClientOptions) { o.Debug = debug }
}

// WithEnvironment tags every reported event with an environment name.
func WithEnvironment(env string) SentryOption {
	return func(o *sentry.ClientOptions) { o.Environment = env }
}

// WithBeforeSend installs a Sentry BeforeSend hook, e.g. to scrub payloads.
func WithBeforeSend(fn func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event) SentryOption {
	return func(o *sentry.ClientOptions) { o.BeforeSend = fn }
}

// NewSentryReporter initializes a dedicated Sentry client bound to dsn and
// returns a reporter wrapping it.
func NewSentryReporter(dsn string, opts ...SentryOption) (*SentryReporter, error) {
	options := sentry.ClientOptions{Dsn: dsn}
	for _, opt := range opts {
		opt(&options)
	}

	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, fmt.Errorf("observability: initializing sentry client: %w", err)
	}

	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (r *SentryReporter) ReportError(err error, eventName, handlerID string) {
	if err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("circuit.event", eventName)
		if handlerID != "" {
			scope.SetTag("circuit.handler", handlerID)
		}
		r.hub.CaptureException(err)
	})
}

// Flush blocks until pending events are sent or timeout elapses, mirroring
// the teacher's documented shutdown pattern: `defer reporter.Flush(5 *
// time.Second)`.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}
