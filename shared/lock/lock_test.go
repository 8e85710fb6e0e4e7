package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roombook/config"
	"roombook/infras/otel/mocks"
	"roombook/shared/lock"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "lock:room:42", lock.Key("room", "42"))
}

func TestNew_DefaultsToLocal(t *testing.T) {
	cfg := &config.Config{}

	locker := lock.New(cfg, nil, mocks.NewOtel())

	unlock, err := locker.Lock(context.Background(), lock.Key("room", "1"))
	assert.NoError(t, err)
	unlock()
}

func TestLocal_SerializesSameKey(t *testing.T) {
	locker := lock.NewLocal(mocks.NewOtel())

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock, err := locker.Lock(context.Background(), "room:a")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			current := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if current <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, current) {
					break
				}
			}

			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	locker := lock.NewLocal(mocks.NewOtel())

	unlockA, err := locker.Lock(context.Background(), "room:a")
	assert.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	unlockB, err := locker.Lock(ctx, "room:b")
	assert.NoError(t, err)
	unlockB()
}

func TestLocal_ContextCancelledWhileWaiting(t *testing.T) {
	locker := lock.NewLocal(mocks.NewOtel())

	unlock, err := locker.Lock(context.Background(), "room:a")
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "room:a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "room:a")
	assert.NoError(t, err)
	again()
}
