package mctx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsHumanText(t *testing.T) {
	c, err := Create(0, 0, WithName(`diag`), WithFlags(FlagRecord))
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.GetLoc(16, Loc{File: `app.go`, Line: 10})
	require.NoError(t, err)
	defer c.Put(&buf, 16)

	var out bytes.Buffer
	require.NoError(t, c.Stats(&out))

	text := out.String()
	assert.Contains(t, text, `diag`)
	assert.Contains(t, text, `in_use=16`)
	assert.Contains(t, text, `app.go:10`)
}

func TestStatsJSON(t *testing.T) {
	c, err := Create(0, 0, WithName(`diag`))
	require.NoError(t, err)
	defer func() { Detach(&c) }()

	buf, err := c.Get(32)
	require.NoError(t, err)
	defer c.Put(&buf, 32)

	var out bytes.Buffer
	require.NoError(t, c.StatsJSON(&out))

	var s ContextStats
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.Equal(t, `diag`, s.Name)
	assert.Equal(t, 32, s.InUse)
}
