// Package mpool implements the fixed-element-size memory pool
// (MPOOL) layered on top of an mctx.Context: a capped freelist that
// amortizes lock acquisition by refilling several elements from its
// parent context at once, instead of taking the parent's lock on
// every single Get. See spec.md §4.2.
package mpool
