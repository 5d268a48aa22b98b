package mctx

import "github.com/dnscore/memcore/mctx/task"

// destroyEntry is one registered (task, event) pair.
type destroyEntry struct {
	task  task.Task
	event any
}

// OnDestroy registers event to be delivered to t, exactly once, as
// part of this context's final teardown (see Detach/Destroy). Entries
// are delivered in FIFO registration order. Returns ErrShuttingDown,
// without registering the event, if the context's terminal flag is
// already set.
func (c *Context) OnDestroy(t task.Task, event any) error {
	if t == nil {
		precondition(`OnDestroy: nil task`)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminal {
		return ErrShuttingDown
	}
	c.destroyQueue = append(c.destroyQueue, destroyEntry{task: t, event: event})
	return nil
}

// drainDestroyQueue dispatches every registered entry, in FIFO order.
// Errors from Task.Send are swallowed (there is no caller left to
// return them to — teardown is a one-way operation) but logged at
// warning level so they aren't silently lost.
func drainDestroyQueue(name string, queue []destroyEntry) {
	for _, e := range queue {
		if err := e.task.Send(e.event); err != nil {
			if l := getLogger(); l != nil {
				l.Warning().Str(`ctx`, name).Err(err).Log(`mctx destroy-notification delivery failed`)
			}
		}
	}
}
