// Package circuit implements the core of a component-oriented event
// framework: a hierarchical event bus in which composable components
// register typed handlers on named channels, fire events dispatched
// asynchronously through a shared queue, and cooperate through suspendable
// handler tasks.
//
// A tree of Components shares one root Manager. The root owns the event
// queue, the handler-resolution cache, the set of suspended tasks, and the
// union of periodic tick callables across the tree. Firing an event never
// blocks and never invokes a handler synchronously; dispatch happens on the
// next call to Tick, normally driven by Run or Start.
package circuit
