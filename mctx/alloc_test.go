package mctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPutRoundTrip(t *testing.T) {
	c, err := Create(0, 0)
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.Get(100)
	require.NoError(t, err)
	assert.Len(t, buf, 100)

	for i := range buf {
		buf[i] = byte(i)
	}

	c.Put(&buf, 100)
	assert.Nil(t, buf)
}

func TestPutValueAndFreeValue(t *testing.T) {
	c, err := Create(0, 0)
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.Get(32)
	require.NoError(t, err)
	c.PutValue(buf, 32)
	assert.Equal(t, 0, c.InUse())

	s, err := c.Strdup(`value-free`)
	require.NoError(t, err)
	c.FreeValue(s)
	assert.Equal(t, 0, c.InUse())
}

func TestFillOnAllocAndFree(t *testing.T) {
	c, err := Create(0, 0, WithFlags(FlagFillOnAlloc|FlagFillOnFree))
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.Get(8)
	require.NoError(t, err)
	for _, b := range buf {
		assert.Equal(t, byte(fillAllocByte), b)
	}

	// Grab the backing array so we can inspect it after Put scribbles
	// the fill-on-free pattern over it.
	retained := buf
	c.Put(&buf, 8)
	for _, b := range retained {
		assert.Equal(t, byte(fillFreeByte), b)
	}
}

func TestCheckOverrunDetectsCorruption(t *testing.T) {
	c, err := Create(0, 0, WithFlags(FlagCheckOverrun))
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.Get(8)
	require.NoError(t, err)

	raw := buf[:cap(buf)]
	raw[8] = 0xFF // stomp the guard region

	assert.Panics(t, func() {
		c.Put(&buf, 8)
	})
}

func TestCheckOverrunPassesUncorrupted(t *testing.T) {
	c, err := Create(0, 0, WithFlags(FlagCheckOverrun))
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.Get(8)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		c.Put(&buf, 8)
	})
}

func TestAllocateFree(t *testing.T) {
	c, err := Create(0, 0)
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.Allocate(24)
	require.NoError(t, err)
	assert.Len(t, buf, 24)
	assert.Equal(t, 24, c.InUse())

	c.Free(&buf)
	assert.Nil(t, buf)
	assert.Equal(t, 0, c.InUse())
}

func TestFreeUntrackedPointerPanics(t *testing.T) {
	c, err := Create(0, 0)
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	stray := make([]byte, 8)
	assert.Panics(t, func() {
		c.Free(&stray)
	})
}

func TestStrdup(t *testing.T) {
	c, err := Create(0, 0)
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.Strdup(`hello`)
	require.NoError(t, err)
	assert.Len(t, buf, 6)
	assert.Equal(t, "hello\x00", string(buf))

	c.Free(&buf)
}

func TestRecordFlagTracksLeaks(t *testing.T) {
	c, err := Create(0, 0, WithFlags(FlagRecord))
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.GetLoc(8, Loc{File: `example.go`, Line: 42})
	require.NoError(t, err)

	c.mu.Lock()
	assert.Len(t, c.records, 1)
	c.mu.Unlock()

	c.Put(&buf, 8)

	c.mu.Lock()
	assert.Empty(t, c.records)
	c.mu.Unlock()
}
