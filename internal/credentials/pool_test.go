package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"commwatch/internal/domain"
	"commwatch/pkg/platform/sentinel"
)

func TestStaticPoolAcquireAndRotate(t *testing.T) {
	pool := NewStaticPool([]domain.Credential{
		{ID: "a", Token: "tok-a"},
		{ID: "b", Token: "tok-b"},
		{ID: "c", Token: "tok-c"},
	})

	cred, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a", cred.ID)

	// Repeated acquires without rotation hand out the same credential.
	again, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, cred.ID, again.ID)

	next, err := pool.Rotate(context.Background(), cred)
	require.NoError(t, err)
	require.Equal(t, "b", next.ID)

	next, err = pool.Rotate(context.Background(), next)
	require.NoError(t, err)
	require.Equal(t, "c", next.ID)

	// Rotation wraps around.
	next, err = pool.Rotate(context.Background(), next)
	require.NoError(t, err)
	require.Equal(t, "a", next.ID)
}

func TestStaticPoolExhausted(t *testing.T) {
	pool := NewStaticPool(nil)

	_, err := pool.Acquire(context.Background())
	require.ErrorIs(t, err, sentinel.ErrExhausted)

	_, err = pool.Rotate(context.Background(), domain.Credential{ID: "gone"})
	require.ErrorIs(t, err, sentinel.ErrExhausted)
}

func TestStaticPoolFailureCounts(t *testing.T) {
	pool := NewStaticPool([]domain.Credential{{ID: "a", Token: "tok-a"}})

	pool.ReportFailure(domain.Credential{ID: "a"})
	pool.ReportFailure(domain.Credential{ID: "a"})
	require.Equal(t, 2, pool.Failures("a"))
	require.Equal(t, 0, pool.Failures("b"))
}

func TestMemoryLockSerialisesHolder(t *testing.T) {
	lock := NewMemoryLock()

	release, err := lock.AcquireLock(context.Background(), "cred-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = lock.AcquireLock(ctx, "cred-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// A different credential is unaffected.
	other, err := lock.AcquireLock(context.Background(), "cred-2")
	require.NoError(t, err)
	other()

	release()
	release2, err := lock.AcquireLock(context.Background(), "cred-1")
	require.NoError(t, err)
	release2()
}

func TestRedisLockLease(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	lock := NewRedisLock(client, time.Minute)

	release, err := lock.AcquireLock(context.Background(), "cred-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = lock.AcquireLock(ctx, "cred-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	release2, err := lock.AcquireLock(context.Background(), "cred-1")
	require.NoError(t, err)
	release2()
}
