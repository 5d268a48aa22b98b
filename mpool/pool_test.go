package mpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnscore/memcore/mctx"
)

func newTestContext(t *testing.T) *mctx.Context {
	t.Helper()
	c, err := mctx.Create(0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { mctx.Detach(&c) })
	return c
}

func TestPoolGetPutDefaults(t *testing.T) {
	ctx := newTestContext(t)

	p, err := Create(ctx, 32)
	require.NoError(t, err)

	buf, err := p.Get()
	require.NoError(t, err)
	assert.Len(t, buf, 32)
	assert.Equal(t, 1, p.Stats().Allocated)

	p.Put(&buf)
	assert.Nil(t, buf)
	assert.Equal(t, 0, p.Stats().Allocated)
	assert.Equal(t, 1, p.Stats().FreeCount) // default FreeMax is 1

	Destroy(&p)
	assert.Nil(t, p)
}

func TestPoolPutValue(t *testing.T) {
	ctx := newTestContext(t)
	p, err := Create(ctx, 32)
	require.NoError(t, err)
	defer Destroy(&p)

	buf, err := p.Get()
	require.NoError(t, err)
	p.PutValue(buf)
	assert.Equal(t, 0, p.Stats().Allocated)
}

func TestPoolBatchRefill(t *testing.T) {
	ctx := newTestContext(t)

	p, err := Create(ctx, 64)
	require.NoError(t, err)
	p.SetFillCount(8)
	p.SetFreeMax(4)

	before := ctx.InUse()

	var slots [][]byte
	for i := 0; i < 8; i++ {
		buf, err := p.Get()
		require.NoError(t, err)
		slots = append(slots, buf)
	}

	// One refill of 8 elements at 64 bytes each; no further refills
	// were needed to satisfy all 8 Gets.
	assert.Equal(t, before+8*64, ctx.InUse())
	assert.Equal(t, 8, p.Stats().Allocated)
	assert.Equal(t, 0, p.Stats().FreeCount)

	for i := range slots {
		p.Put(&slots[i])
	}

	assert.Equal(t, 0, p.Stats().Allocated)
	assert.Equal(t, 4, p.Stats().FreeCount)
	// 4 were retained on the freelist, 4 were returned to the context.
	assert.Equal(t, before+4*64, ctx.InUse())

	Destroy(&p)
}

func TestPoolMaxAllocQuota(t *testing.T) {
	ctx := newTestContext(t)

	p, err := Create(ctx, 16)
	require.NoError(t, err)
	p.SetMaxAlloc(1)

	a, err := p.Get()
	require.NoError(t, err)

	_, err = p.Get()
	assert.ErrorIs(t, err, mctx.ErrQuota)

	p.Put(&a)

	b, err := p.Get()
	require.NoError(t, err)
	p.Put(&b)

	Destroy(&p)
}

func TestPoolDestroyWithOutstandingAllocationsAborts(t *testing.T) {
	ctx := newTestContext(t)

	p, err := Create(ctx, 16)
	require.NoError(t, err)

	buf, err := p.Get()
	require.NoError(t, err)

	// Destroy clears the caller's handle unconditionally (matching
	// Detach's convention), so recover using a separate reference — a
	// real caller wouldn't retry Destroy after this panic either.
	live := p
	assert.Panics(t, func() {
		Destroy(&p)
	})
	assert.Nil(t, p)

	live.Put(&buf)
	Destroy(&live)
}

func TestPoolPutSizeMismatchPanics(t *testing.T) {
	ctx := newTestContext(t)
	p, err := Create(ctx, 16)
	require.NoError(t, err)
	defer func() { Destroy(&p) }()

	wrong := make([]byte, 8)
	assert.Panics(t, func() {
		p.Put(&wrong)
	})
}

func TestAssociateLockOnce(t *testing.T) {
	ctx := newTestContext(t)
	p, err := Create(ctx, 16)
	require.NoError(t, err)
	defer func() { Destroy(&p) }()

	var l fakeLocker
	assert.NotPanics(t, func() { p.AssociateLock(&l) })
	assert.Panics(t, func() { p.AssociateLock(&l) })
}

func TestAssociateLockAfterGetPanics(t *testing.T) {
	ctx := newTestContext(t)
	p, err := Create(ctx, 16)
	require.NoError(t, err)
	defer func() { Destroy(&p) }()

	buf, err := p.Get()
	require.NoError(t, err)
	defer p.Put(&buf)

	var l fakeLocker
	assert.Panics(t, func() { p.AssociateLock(&l) })
}

func TestPoolNameTruncation(t *testing.T) {
	ctx := newTestContext(t)
	p, err := Create(ctx, 16)
	require.NoError(t, err)
	defer func() { Destroy(&p) }()

	p.SetName(`this-name-is-definitely-longer-than-fifteen-bytes`)
	assert.LessOrEqual(t, len(p.Name()), maxNameLen)
}

// fakeLocker is a no-op sync.Locker for AssociateLock tests that don't
// need real mutual exclusion.
type fakeLocker struct{}

func (*fakeLocker) Lock()   {}
func (*fakeLocker) Unlock() {}
