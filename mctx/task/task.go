// Package task defines the out-of-scope collaborator contract that
// mctx.Context.OnDestroy delivers notifications through — an event
// loop or task manager, referenced by contract and never implemented
// here (see spec.md §1, "the event-loop / task manager... referenced
// by contract, never specified"). It exists as its own package, not
// inline in mctx, so a production Task implementation (e.g. an
// eventloop.Loop adapter) never needs to import the rest of mctx's
// allocator internals just to satisfy this one interface.
package task

// Task receives a single event, exactly once, as part of a context's
// final teardown.
type Task interface {
	Send(event any) error
}

// FuncTask adapts a plain function to Task, for tests and simple
// callers that don't have a real task manager handy.
type FuncTask func(event any) error

func (f FuncTask) Send(event any) error { return f(event) }
