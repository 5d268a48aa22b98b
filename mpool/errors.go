package mpool

import "fmt"

// precondition panics with a diagnostic message. Pool-level
// programming errors (destroy with outstanding allocations, a second
// AssociateLock, a Put size mismatch) are always fatal, mirroring
// package mctx's error-handling design — see mctx/errors.go.
func precondition(format string, args ...any) {
	panic(fmt.Sprintf(`mpool: precondition violated: `+format, args...))
}

const maxNameLen = 15

func truncateName(name string) string {
	if len(name) <= maxNameLen {
		return name
	}
	return name[:maxNameLen]
}
