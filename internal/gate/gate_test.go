package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireNeverExceedsLimit(t *testing.T) {
	m := NewManager()
	m.SetLimit("test", 2)

	var active int32
	var peak int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(context.Background(), "test")
			require.NoError(t, err)
			defer release()

			cur := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(peak), 2)
}

func TestDefaultLimitsMatchProviders(t *testing.T) {
	m := NewManager()
	assert.Equal(t, 3, m.GetLimit("fmp"))
	assert.Equal(t, 10, m.GetLimit("polygon"))
	assert.Equal(t, 1, m.GetLimit("fred"))
	assert.Equal(t, defaultLimit, m.GetLimit("unknown-provider"))
}

func TestSetLimitDoesNotAffectExistingWaiters(t *testing.T) {
	m := NewManager()
	m.SetLimit("fred", 1)

	release, err := m.Acquire(context.Background(), "fred")
	require.NoError(t, err)

	// A waiter blocked on the old semaphore before SetLimit changes the
	// provider's capacity.
	done := make(chan struct{})
	go func() {
		release2, err := m.Acquire(context.Background(), "fred")
		require.NoError(t, err)
		release2()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	m.SetLimit("fred", 5)

	select {
	case <-done:
		t.Fatal("waiter on the old semaphore should still be blocked")
	default:
	}
	release()
	<-done
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	m := NewManager()
	m.SetLimit("fred", 1)

	release, err := m.Acquire(context.Background(), "fred")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, "fred")
	assert.Error(t, err)
}

func TestStatsReportsActiveAndTotal(t *testing.T) {
	m := NewManager()
	m.SetLimit("test", 2)

	release, err := m.Acquire(context.Background(), "test")
	require.NoError(t, err)

	stats := m.GetStats("test")
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, int64(1), stats.TotalRequests)

	release()
	stats = m.GetStats("test")
	assert.Equal(t, 0, stats.Active)
}
