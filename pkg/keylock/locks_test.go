package keylock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocks_Lifecycle(t *testing.T) {
	locks := New()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("project-%d", i)
		_ = locks.WithLock(ctx, key, func(context.Context) error { return nil })
	}

	assert.Zero(t, locks.Len(), "locks leaked after release")
}

func TestLocks_SerializesSameKey(t *testing.T) {
	locks := New()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locks.WithLock(ctx, "same", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, locks.Len())
}

func TestLocks_DifferentKeysRunConcurrently(t *testing.T) {
	locks := New()
	ctx := context.Background()

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = locks.WithLock(ctx, "a", func(context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	err := locks.WithLock(ctx, "b", func(context.Context) error { return nil })
	close(done)
	require.NoError(t, err)
}

func TestLocks_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := New().WithLock(context.Background(), "k", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
	ttl      time.Duration
	err      error
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.locked = append(f.locked, key)
	f.ttl = ttl
	f.mu.Unlock()
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unlocked = append(f.unlocked, key)
		return nil
	}, nil
}

func TestLocks_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	locks := New(WithLocker(locker), WithTTL(5*time.Second))

	ran := false
	err := locks.WithLock(context.Background(), "p1", func(context.Context) error {
		ran = true
		assert.Equal(t, []string{"p1"}, locker.locked)
		assert.Empty(t, locker.unlocked)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"p1"}, locker.unlocked)
	assert.Equal(t, 5*time.Second, locker.ttl)
}

func TestLocks_DistributedLockFailure(t *testing.T) {
	locks := New(WithLocker(&fakeLocker{err: errors.New("redis down")}))

	ran := false
	err := locks.WithLock(context.Background(), "p1", func(context.Context) error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, ran)
	assert.Zero(t, locks.Len())
}
