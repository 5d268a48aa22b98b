package mctx

// WaterMark identifies which threshold a call to a WaterMarkFunc
// crossed. This supplements spec.md's lo_water/hi_water counters with
// the notification mechanism the original isc_mem exposed
// (isc_mem_setwater): a caller can be told when a context has grown
// memory-hungry (High) and when it has drained back down (Low),
// without polling InUse.
type WaterMark int

const (
	// WaterMarkHigh fires the first time InUse rises to or above the
	// configured high water mark.
	WaterMarkHigh WaterMark = iota
	// WaterMarkLow fires the first time InUse falls to or below the
	// configured low water mark, after having crossed High.
	WaterMarkLow
)

// WaterMarkFunc is invoked synchronously from within Get/Allocate/Put/
// Free when a configured water mark is crossed. It must not call back
// into the same Context (the context's lock is held).
type WaterMarkFunc func(c *Context, mark WaterMark)

// quotaState holds everything quota-related so Context itself stays
// readable; guarded by Context.mu exactly like every other mutable
// field.
type quotaState struct {
	quota int // 0 == unlimited

	inUse    int
	maxInUse int

	loWater, hiWater int
	aboveHigh        bool
	waterFunc        WaterMarkFunc
}

func newQuotaState(quota int) quotaState {
	return quotaState{quota: quota}
}

// setQuotaLocked changes the quota. Per spec.md §4.1, lowering it
// below the current in-use total is allowed; subsequent allocations
// simply fail until usage drains below the new cap (tryReserveLocked's
// comparison against the new, lower q.quota handles this without any
// extra bookkeeping). Must be called with Context.mu held.
func (c *Context) setQuotaLocked(quota int) {
	c.quota.quota = quota
}

// tryReserveLocked checks whether an allocation whose guard-inclusive
// footprint is eff bytes would exceed the quota, given the context's
// current logical in-use total, and — if not — immediately commits
// size bytes (the caller-visible footprint spec.md §4.1 tracks as
// in_use; guard padding is a backend-only cost, never counted against
// the quota once granted) to in_use in the same critical section.
// Committing here, rather than after the caller releases c.mu to
// perform the actual backend call, is what keeps this atomic: two
// concurrent callers checking against a stale in_use could otherwise
// both pass and jointly exceed the quota. Returns false (ErrQuota, via
// the caller) without committing anything if the request would exceed
// the quota; never blocks, per spec.md §5. Must be called with
// Context.mu held.
func (c *Context) tryReserveLocked(eff, size int) bool {
	q := &c.quota
	if q.quota > 0 && q.inUse+eff > q.quota {
		return false
	}
	c.recordUseLocked(size)
	return true
}

// recordUseLocked updates in_use/max_in_use and fires water mark
// callbacks; delta may be negative (on free).
func (c *Context) recordUseLocked(delta int) {
	q := &c.quota
	q.inUse += delta
	if q.inUse > q.maxInUse {
		q.maxInUse = q.inUse
	}

	if q.waterFunc == nil || (q.loWater == 0 && q.hiWater == 0) {
		return
	}
	switch {
	case !q.aboveHigh && q.hiWater > 0 && q.inUse >= q.hiWater:
		q.aboveHigh = true
		q.waterFunc(c, WaterMarkHigh)
	case q.aboveHigh && q.inUse <= q.loWater:
		q.aboveHigh = false
		q.waterFunc(c, WaterMarkLow)
	}
}

// SetQuota sets the maximum number of bytes this context will allow
// outstanding (0 disables the quota). Safe for concurrent use.
func (c *Context) SetQuota(quota int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setQuotaLocked(quota)
}

// GetQuota returns the current quota (0 == unlimited).
func (c *Context) GetQuota() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota.quota
}

// InUse returns the current sum of live allocation sizes.
func (c *Context) InUse() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota.inUse
}

// MaxInUse returns the high-water mark ever observed for InUse.
func (c *Context) MaxInUse() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota.maxInUse
}

// SetWaterMarks configures the low/high water mark notification
// described by WaterMark. Passing a nil fn, or lo == hi == 0, disables
// the mechanism. hi must be 0 or >= lo.
func (c *Context) SetWaterMarks(lo, hi int, fn WaterMarkFunc) {
	if hi != 0 && hi < lo {
		precondition(`SetWaterMarks: hi (%d) < lo (%d)`, hi, lo)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quota.loWater = lo
	c.quota.hiWater = hi
	c.quota.waterFunc = fn
	c.quota.aboveHigh = false
}
