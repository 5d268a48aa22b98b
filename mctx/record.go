package mctx

import (
	"strconv"
	"unsafe"
)

// Loc is an optional caller location, recorded in the debug-record
// table when FlagRecord is set and reported verbatim in Stats. The
// zero value is a valid sentinel ("unknown location"), per this
// package's caller-location design note: ergonomic wrappers fill it
// in via runtime.Caller when diagnostics are wanted, callers that
// don't care pass the zero value.
type Loc struct {
	File string
	Line int
}

func (l Loc) String() string {
	if l.File == "" {
		return `<unknown>`
	}
	return l.File + `:` + strconv.Itoa(l.Line)
}

// record is one live-allocation entry in a context's debug-record
// table: the allocation's size and the location that requested it.
type record struct {
	size int
	loc  Loc
}

// ptrKey computes the stable identity of a byte slice's backing array,
// used as the debug-record table key. It relies on the Go runtime
// never relocating heap objects, and on the caller keeping the slice
// (and therefore its backing array) reachable for as long as the key
// is in use — which the record table itself guarantees, since it only
// ever looks up a key between a matching Get/Allocate and Put/Free.
func ptrKey(buf []byte) uintptr {
	if len(buf) == 0 && cap(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

// recordInsertLocked adds a live-allocation entry. Must be called with
// Context.mu held, and only when FlagRecord is set.
func (c *Context) recordInsertLocked(buf []byte, size int, loc Loc) {
	if c.records == nil {
		c.records = make(map[uintptr]record)
	}
	key := ptrKey(buf)
	if _, exists := c.records[key]; exists {
		precondition(`debug-record table already has an entry for this pointer (double Get/Allocate without matching free, or corrupted table)`)
	}
	c.records[key] = record{size: size, loc: loc}
}

// recordRemoveLocked looks up and deletes the debug-record entry for
// buf, validating its size. A missing entry, or a size mismatch, is
// always fatal — per spec.md §4.3 it indicates a double-free,
// cross-context free, or corruption.
func (c *Context) recordRemoveLocked(buf []byte, size int) {
	key := ptrKey(buf)
	rec, ok := c.records[key]
	if !ok {
		precondition(`free of untracked pointer (double-free, cross-context free, or corruption)`)
	}
	if rec.size != size {
		precondition(`free size mismatch: freed with size %d, allocated with size %d`, size, rec.size)
	}
	delete(c.records, key)
}
