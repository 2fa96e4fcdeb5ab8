package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_AcquireAndRelease(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()
	ctx := context.Background()

	l := New(client, "runlock:test", time.Minute)

	ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// a second holder is refused while the lock is held
	other := New(client, "runlock:test", time.Minute)
	ok, err = other.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Unlock(ctx))

	ok, err = other.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, other.Unlock(ctx))
}

func TestLock_UnlockWithoutHold(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	l := New(client, "runlock:test2", time.Minute)
	require.ErrorIs(t, l.Unlock(context.Background()), ErrNotHeld)
}

func TestLock_StaleTokenCannotRelease(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()
	ctx := context.Background()

	stale := New(client, "runlock:test3", time.Minute)
	ok, err := stale.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// simulate TTL expiry followed by another run taking the lock
	require.NoError(t, client.Del(ctx, "runlock:test3").Err())
	fresh := New(client, "runlock:test3", time.Minute)
	ok, err = fresh.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, stale.Unlock(ctx), ErrNotHeld)

	// the fresh holder still owns the lock
	require.NoError(t, fresh.Unlock(ctx))
}
