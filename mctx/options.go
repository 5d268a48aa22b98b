package mctx

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
)

// Flags controls the optional diagnostic behaviors of a Context:
// tracing, leak/double-free tracking, fill-on-alloc/free scribbling,
// overrun guards, and the destroy-time leak assertion. The source this
// package is modeled on gated these at compile time; here they are
// runtime flags on Context, per this package's design note that a
// single build should serve both a hot production path and a
// diagnostic one.
type Flags uint32

const (
	// FlagTrace emits a logiface trace record on every Get/Put/Allocate/Free.
	FlagTrace Flags = 1 << iota
	// FlagRecord maintains the debug-record table, enabling leak
	// detection and a stats dump of live allocations.
	FlagRecord
	// FlagFillOnAlloc scribbles 0xBE over newly returned blocks.
	FlagFillOnAlloc
	// FlagFillOnFree scribbles 0xDE over blocks just before they are
	// returned to the backend.
	FlagFillOnFree
	// FlagCheckOverrun appends a guard pattern to every allocation and
	// verifies it on free.
	FlagCheckOverrun
	// FlagDestroyCheck asserts, at teardown, that no debug-record
	// entries remain; without it leaks are merely reported (if
	// FlagRecord is set) rather than a precondition violation.
	FlagDestroyCheck
)

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Config is the process-wide default configuration consulted by
// Create and CreateExtended to seed a new Context's flags and quota
// hint. It mirrors eventloop's package-level structured-logger
// pattern: a single RWMutex-guarded global, overridable per instance
// after construction.
type Config struct {
	Flags Flags
	Quota int
}

var defaultConfig struct {
	sync.RWMutex
	cfg Config
}

// SetDefaultConfig replaces the process-wide default Config consulted
// by contexts created thereafter. Existing contexts are unaffected.
func SetDefaultConfig(cfg Config) {
	defaultConfig.Lock()
	defer defaultConfig.Unlock()
	defaultConfig.cfg = cfg
}

// DefaultConfig returns the current process-wide default Config.
func DefaultConfig() Config {
	defaultConfig.RLock()
	defer defaultConfig.RUnlock()
	return defaultConfig.cfg
}

// fileConfig is the shape loaded from a TOML config file by
// LoadConfigFile; it is kept distinct from Config so the on-disk
// format can evolve (field renames, new knobs) without changing
// Config's Go-facing shape.
type fileConfig struct {
	Trace        bool `toml:"trace"`
	Record       bool `toml:"record"`
	FillOnAlloc  bool `toml:"fill_on_alloc"`
	FillOnFree   bool `toml:"fill_on_free"`
	CheckOverrun bool `toml:"check_overrun"`
	DestroyCheck bool `toml:"destroy_check"`
	QuotaBytes   int  `toml:"quota_bytes"`
}

// LoadConfigFile reads a TOML file (see fileConfig for the schema) and
// installs it as the process-wide DefaultConfig. It is intended to be
// called once, near process startup, e.g. from a host application's
// own configuration loader.
func LoadConfigFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf(`mctx: loading config file %q: %w`, path, err)
	}

	var flags Flags
	if fc.Trace {
		flags |= FlagTrace
	}
	if fc.Record {
		flags |= FlagRecord
	}
	if fc.FillOnAlloc {
		flags |= FlagFillOnAlloc
	}
	if fc.FillOnFree {
		flags |= FlagFillOnFree
	}
	if fc.CheckOverrun {
		flags |= FlagCheckOverrun
	}
	if fc.DestroyCheck {
		flags |= FlagDestroyCheck
	}

	SetDefaultConfig(Config{Flags: flags, Quota: fc.QuotaBytes})
	return nil
}

// Option configures a Context at construction time, via Create or
// CreateExtended.
type Option func(*Context)

// WithFlags overrides the flags a Context starts with (otherwise
// seeded from DefaultConfig).
func WithFlags(flags Flags) Option {
	return func(c *Context) { c.flags = flags }
}

// WithQuota sets the context's initial byte quota (0 means
// unlimited). Without it the quota is DefaultConfig's Quota, or, when
// that is 0, targetSize or the system-memory hint (see Create).
func WithQuota(quota int) Option {
	return func(c *Context) { c.setQuotaLocked(quota) }
}

// WithName sets the context's diagnostic name, truncated to 15 bytes
// like the original isc_mem fixed-size name buffer (see
// DESIGN.md/SPEC_FULL.md for the rationale preserving this limit).
func WithName(name string) Option {
	return func(c *Context) { c.name = truncateName(name) }
}

const maxNameLen = 15

func truncateName(name string) string {
	if len(name) <= maxNameLen {
		return name
	}
	return name[:maxNameLen]
}
