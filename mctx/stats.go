package mctx

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ContextStats is a snapshot of one context's counters and (if
// FlagRecord is set) its live allocations, as rendered by Stats/
// StatsJSON. spec.md §6 only promises the text format rendered by
// Stats is "human-oriented... not promised stable across versions";
// StatsJSON is this package's supplemental structured form of the
// same data, for shipping to a log aggregator instead of a terminal.
type ContextStats struct {
	Name     string             `json:"name"`
	InUse    int                `json:"in_use"`
	MaxInUse int                `json:"max_in_use"`
	Quota    int                `json:"quota"`
	Live     []LiveAllocation   `json:"live,omitempty"`
	Pools    []PoolStats        `json:"pools,omitempty"`
}

// LiveAllocation is one line of a debug-record leak dump.
type LiveAllocation struct {
	Addr uintptr `json:"addr"`
	Size int     `json:"size"`
	File string  `json:"file"`
	Line int     `json:"line"`
}

// snapshotLocked builds a ContextStats from the context's current
// state. Must be called with c.mu held.
func (c *Context) snapshotLocked() ContextStats {
	s := ContextStats{
		Name:     c.name,
		InUse:    c.quota.inUse,
		MaxInUse: c.quota.maxInUse,
		Quota:    c.quota.quota,
	}
	if c.flags.Has(FlagRecord) && len(c.records) > 0 {
		s.Live = make([]LiveAllocation, 0, len(c.records))
		for addr, rec := range c.records {
			s.Live = append(s.Live, LiveAllocation{Addr: addr, Size: rec.size, File: rec.loc.File, Line: rec.loc.Line})
		}
		sort.Slice(s.Live, func(i, j int) bool { return s.Live[i].Addr < s.Live[j].Addr })
	}
	s.Pools = c.pools.snapshotStats()
	return s
}

// statsLocked renders the human-oriented text block. Must be called
// with c.mu held.
func (c *Context) statsLocked(_ bool) string {
	s := c.snapshotLocked()
	return renderStats(s)
}

func renderStats(s ContextStats) string {
	var b strings.Builder
	name := s.Name
	if name == "" {
		name = `<unnamed>`
	}
	fmt.Fprintf(&b, "mctx %s: in_use=%d max_in_use=%d quota=%d\n", name, s.InUse, s.MaxInUse, s.Quota)
	for _, live := range s.Live {
		file := live.File
		if file == "" {
			file = `<unknown>`
		}
		fmt.Fprintf(&b, "0x%x size=%d %s:%d\n", live.Addr, live.Size, file, live.Line)
	}
	for _, p := range s.Pools {
		fmt.Fprintf(&b, "pool: element_size=%d allocated=%d free=%d/%d max_alloc=%d fill_count=%d\n",
			p.ElementSize, p.Allocated, p.FreeCount, p.FreeMax, p.MaxAlloc, p.FillCount)
	}
	return b.String()
}

// Stats writes the human-oriented diagnostic dump described in
// spec.md §6 to w: name, in_use, max_in_use, quota, and (when
// FlagRecord is set) one line per live allocation.
func (c *Context) Stats(w io.Writer) error {
	c.mu.Lock()
	text := c.statsLocked(true)
	c.mu.Unlock()
	_, err := io.WriteString(w, text)
	return err
}

// StatsJSON writes the same data as Stats, as a single JSON object.
func (c *Context) StatsJSON(w io.Writer) error {
	c.mu.Lock()
	s := c.snapshotLocked()
	c.mu.Unlock()
	return json.NewEncoder(w).Encode(s)
}
