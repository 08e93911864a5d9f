package dedup

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMemorySeen(t *testing.T) {
	ctx := context.Background()
	d := NewMemory(10)

	assert.False(t, d.Seen(ctx, "a"))
	assert.True(t, d.Seen(ctx, "a"))
	assert.False(t, d.Seen(ctx, ""))
	assert.False(t, d.Seen(ctx, ""))
}

func TestMemoryCapacity(t *testing.T) {
	ctx := context.Background()
	d := NewMemory(DefaultCapacity)

	for i := 0; i < DefaultCapacity+1; i++ {
		assert.False(t, d.Seen(ctx, strconv.Itoa(i)))
	}
	assert.Equal(t, DefaultCapacity, d.Len())
	assert.True(t, d.Seen(ctx, strconv.Itoa(DefaultCapacity)))
}

func TestMemoryConcurrentDuplicatesHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	d := NewMemory(10)

	var mu sync.Mutex
	fresh := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.Seen(ctx, "evt") {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fresh)
}

type fakeRedis struct {
	keys map[string]bool
	err  error
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if f.keys[key] {
		cmd.SetVal(false)
		return cmd
	}
	f.keys[key] = true
	cmd.SetVal(true)
	return cmd
}

func TestRedisSeen(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{keys: map[string]bool{}}
	d := NewRedis(fake, time.Minute, 10, zap.NewNop())

	assert.False(t, d.Seen(ctx, "evt-1"))
	assert.True(t, d.Seen(ctx, "evt-1"))
	assert.True(t, fake.keys[redisKeyPrefix+"evt-1"])
}

func TestRedisFallsBackWhenUnavailable(t *testing.T) {
	ctx := context.Background()
	d := NewRedis(&fakeRedis{err: errors.New("connection refused")}, time.Minute, 10, zap.NewNop())

	assert.False(t, d.Seen(ctx, "evt-1"))
	assert.True(t, d.Seen(ctx, "evt-1"))
}
