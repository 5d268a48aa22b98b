package mctx

import (
	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/pbnjay/memory"
)

// SystemMemory returns the total physical memory of the host, in
// bytes, as reported by the OS (0 if it could not be determined). It
// is used by Create/CreateExtended to pick a default quota hint when
// a caller passes target_size == 0 and no process-wide Config.Quota
// is set: a context with no explicit ceiling still gets one derived
// from the machine it's running on, rather than being silently
// unlimited by accident.
func SystemMemory() int {
	return int(memory.TotalMemory())
}

// AutoGOMEMLIMIT sets the Go runtime's soft memory limit (GOMEMLIMIT)
// from the host/cgroup limit, reserving headroom by ratio (e.g. 0.9
// keeps 10% of the detected limit as headroom for non-Go memory and
// GC overshoot). It is a process-wide, one-time action — call it once
// near process startup, before creating any contexts that rely on
// SystemMemory-derived defaults being meaningful inside a container.
//
// This has nothing to do with any individual Context's quota; it
// exists because a library that manages its own memory budget is
// more useful when the runtime it's embedded in has an accurate
// memory ceiling in the first place.
func AutoGOMEMLIMIT(ratio float64) (limit int64, err error) {
	return memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(ratio),
		memlimit.WithProvider(memlimit.FromCgroup),
	)
}

// defaultQuotaHint picks a default quota for Create/CreateExtended
// when the caller didn't specify one via WithQuota and the
// process-wide Config.Quota is 0: a fixed fraction of total system
// memory, so a forgotten quota doesn't silently mean "unlimited" on a
// tiny host.
func defaultQuotaHint() int {
	total := SystemMemory()
	if total <= 0 {
		return 0
	}
	const fraction = 8 // 1/8th of total system memory
	return total / fraction
}
