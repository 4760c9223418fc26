package workpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultSize(t *testing.T) {
	assert.Greater(t, New(0).Size(), 0)
	assert.Equal(t, New(-3).Size(), New(0).Size())
	assert.Equal(t, 3, New(3).Size())
}

func TestPool_Bound(t *testing.T) {
	p := New(2)

	var (
		running atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Go(context.Background(), func(context.Context) {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, 0, p.Active())
}

func TestPool_GoContextDone(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	require.NoError(t, p.Go(context.Background(), func(context.Context) { <-release }))
	assert.Equal(t, 1, p.Active())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Go(ctx, func(context.Context) { t.Error("should not run") }), context.DeadlineExceeded)

	close(release)
	require.NoError(t, p.Close(context.Background()))
}

func TestPool_Close(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, p.Go(context.Background(), func(context.Context) {
		<-release
		finished.Store(true)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)

	assert.ErrorIs(t, p.Go(context.Background(), func(context.Context) {}), ErrPoolClosed)

	close(release)
	require.NoError(t, p.Close(context.Background()))
	assert.True(t, finished.Load())
}

func TestPool_RecoversPanic(t *testing.T) {
	p := New(1)
	require.NoError(t, p.Go(context.Background(), func(context.Context) { panic(`boom`) }))
	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, 0, p.Active())
}
