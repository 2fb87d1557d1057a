package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	l := NewMemoryLimiter(0, 2)
	ctx := context.Background()

	ok, err := l.Allow(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLimiterTracksUsersIndependently(t *testing.T) {
	l := NewMemoryLimiter(0, 1)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, 1)
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, 2)
	assert.True(t, ok, "a different user must have its own bucket")
}
