package mctx

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// traceLogger is the package-level structured logger used for
// FlagTrace output and non-fatal diagnostics (e.g. a leak dump that
// isn't fatal because FlagDestroyCheck is off). It follows the same
// package-level, RWMutex-guarded-swap pattern as eventloop's
// SetStructuredLogger/getGlobalLogger.
var traceLogger struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

func init() {
	traceLogger.logger = stumpy.L.New(stumpy.L.WithStumpy())
}

// SetLogger replaces the package-level logger used for trace records
// and non-fatal diagnostics. A nil logger disables output entirely.
func SetLogger(logger *logiface.Logger[*stumpy.Event]) {
	traceLogger.Lock()
	defer traceLogger.Unlock()
	traceLogger.logger = logger
}

func getLogger() *logiface.Logger[*stumpy.Event] {
	traceLogger.RLock()
	defer traceLogger.RUnlock()
	return traceLogger.logger
}

// logTrace emits one FlagTrace record for an allocator operation.
func logTrace(c *Context, op string, size int, loc Loc) {
	l := getLogger()
	if l == nil {
		return
	}
	b := l.Trace().Str(`ctx`, c.name).Str(`op`, op).Int(`size`, size)
	if loc.File != "" {
		b = b.Str(`loc`, loc.String())
	}
	b.Log(`mctx allocation event`)
}

// logLeaks reports a non-fatal leak dump (FlagRecord on, FlagDestroyCheck off).
func logLeaks(c *Context, dump string) {
	l := getLogger()
	if l == nil {
		return
	}
	l.Warning().Str(`ctx`, c.name).Str(`dump`, dump).Log(`mctx context destroyed with leaked allocations`)
}
