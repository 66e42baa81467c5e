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

func TestNewRejectsNonPositiveSize(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)

	p, err := New(3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())
}

// TestPoolBoundsConcurrency verifies no more than Size tasks run at once.
func TestPoolBoundsConcurrency(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	var running, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, int64(0), running.Load())
}

func TestSubmitHonorsContext(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)

	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))
	assert.Equal(t, 1, p.Active())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = p.Submit(ctx, func() { t.Error("task should not run") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, 0, p.Active())
}

func TestCloseWaitsAndRejects(t *testing.T) {
	p, err := New(4)
	require.NoError(t, err)

	var finished atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func() {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	}))

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, finished.Load())

	err = p.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseTimesOut(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
}
