//go:build integration

package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/pkg/testutil/containers"
)

func TestRedisGuard(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	g := NewRedisGuard(rc.Client)

	ok, err := g.Claim(ctx, "1234567893|/|ai_disclosure|h2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "1234567893|/|ai_disclosure|h2", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := rc.Client.TTL(ctx, keyPrefix+"1234567893|/|ai_disclosure|h2").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, g.Release(ctx, "1234567893|/|ai_disclosure|h2"))
	ok, err = g.Claim(ctx, "1234567893|/|ai_disclosure|h2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}
