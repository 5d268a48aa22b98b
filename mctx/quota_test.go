package mctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaterMarkNotifications(t *testing.T) {
	c, err := Create(0, 0, WithQuota(1000))
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	var marks []WaterMark
	c.SetWaterMarks(20, 80, func(_ *Context, mark WaterMark) {
		marks = append(marks, mark)
	})

	a, err := c.Get(90)
	require.NoError(t, err)
	require.Equal(t, []WaterMark{WaterMarkHigh}, marks)

	b, err := c.Get(10)
	require.NoError(t, err)

	c.Put(&b, 10)
	assert.Equal(t, []WaterMark{WaterMarkHigh}, marks, "still above low water")

	c.Put(&a, 90)
	assert.Equal(t, []WaterMark{WaterMarkHigh, WaterMarkLow}, marks)
}

func TestSetWaterMarksRejectsInvertedRange(t *testing.T) {
	c, err := Create(0, 0)
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	assert.Panics(t, func() {
		c.SetWaterMarks(80, 20, func(*Context, WaterMark) {})
	})
}

func TestQuotaAccountingIgnoresGuardPaddingOfLiveAllocations(t *testing.T) {
	// Regression test: the quota trip condition is in_use + effective_size
	// > quota, checked against the caller-visible (logical) in_use total —
	// not a running sum of every live allocation's guard overhead. With
	// FlagCheckOverrun on, effective_size > size, so if guard padding from
	// prior allocations were permanently counted against remaining
	// capacity, this second Get would spuriously fail.
	c, err := Create(0, 0, WithQuota(100), WithFlags(FlagCheckOverrun))
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	a, err := c.Get(46)
	require.NoError(t, err)
	assert.Equal(t, 46, c.InUse())

	b, err := c.Get(46)
	require.NoError(t, err, "46+46=92 logical bytes must fit in a 100-byte quota regardless of guard padding")
	assert.Equal(t, 92, c.InUse())

	c.Put(&a, 46)
	c.Put(&b, 46)
}

func TestMaxInUse(t *testing.T) {
	c, err := Create(0, 0)
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	a, err := c.Get(50)
	require.NoError(t, err)
	b, err := c.Get(50)
	require.NoError(t, err)

	assert.Equal(t, 100, c.MaxInUse())

	c.Put(&a, 50)
	c.Put(&b, 50)

	assert.Equal(t, 100, c.MaxInUse(), "high-water mark persists after drain")
	assert.Equal(t, 0, c.InUse())
}
