package mctx

import "runtime"

// CallerLoc captures the file/line at which it is called, for use
// with the *Loc variants of Get/Allocate/Strdup (e.g.
// c.GetLoc(n, mctx.CallerLoc())). Kept as an explicit call, rather
// than automatic, so release builds can skip it entirely — mirroring
// this package's "macro-captured caller location" design note.
func CallerLoc() Loc {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return Loc{}
	}
	return Loc{File: file, Line: line}
}
