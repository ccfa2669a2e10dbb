package circuit

import "errors"

// ErrInterrupt and ErrExit are the two exception kinds spec §7 requires to
// be re-raised unconditionally out of the dispatcher and the tick loop,
// never captured as an Error event. A handler, tick callable, or
// Continuation step returns one of these (or an error wrapping one via
// fmt.Errorf("...: %w", ErrInterrupt)) to request the run loop stop
// immediately.
var (
	ErrInterrupt = errors.New("circuit: interrupt")
	ErrExit      = errors.New("circuit: exit")
)

func isFatal(err error) bool {
	return errors.Is(err, ErrInterrupt) || errors.Is(err, ErrExit)
}

// fatalPanic wraps a fatal error so the recover in invokeHandler/invokeTick
// can distinguish "return it unchanged out of Tick" from an ordinary
// recovered panic that should become an Error event.
type fatalPanic struct {
	err error
}
