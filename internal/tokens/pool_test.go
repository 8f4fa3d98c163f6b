package tokens

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func acquireValue(t *testing.T, p *Pool) string {
	t.Helper()
	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	return lease.Value
}

func TestPoolRoundRobin(t *testing.T) {
	p := New([]string{"t1", "t2", "t3"}, WithClock(NewManualClock(epoch)))

	var got []string
	for i := 0; i < 6; i++ {
		got = append(got, acquireValue(t, p))
	}
	assert.Equal(t, []string{"t1", "t2", "t3", "t1", "t2", "t3"}, got)
	assert.Equal(t, 3, p.Size())
	assert.False(t, p.Anonymous())
}

func TestPoolSkipsExhaustedUntilReset(t *testing.T) {
	clock := NewManualClock(epoch)
	p := New([]string{"t1", "t2"}, WithClock(clock))

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t1", lease.Value)
	p.Report(lease, 0, 5000, epoch.Add(time.Hour))

	for i := 0; i < 3; i++ {
		assert.Equal(t, "t2", acquireValue(t, p))
	}
	assert.Equal(t, 1, p.Live())

	clock.Advance(time.Hour)
	assert.Equal(t, 2, p.Live())
	values := []string{acquireValue(t, p), acquireValue(t, p)}
	assert.ElementsMatch(t, []string{"t1", "t2"}, values)
}

func TestPoolBlocksUntilEarliestReset(t *testing.T) {
	clock := NewManualClock(epoch)
	p := New([]string{"t1", "t2"}, WithClock(clock))

	first, err := p.Acquire(context.Background())
	require.NoError(t, err)
	second, err := p.Acquire(context.Background())
	require.NoError(t, err)

	p.Exhaust(first, epoch.Add(30*time.Minute))
	p.Exhaust(second, epoch.Add(10*time.Minute))

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t2", lease.Value)
	assert.Equal(t, []time.Duration{10 * time.Minute}, clock.Sleeps())
	assert.Equal(t, epoch.Add(10*time.Minute), clock.Now())
}

func TestPoolPastResetDoesNotSleep(t *testing.T) {
	clock := NewManualClock(epoch)
	p := New([]string{"t1"}, WithClock(clock))

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Exhaust(lease, epoch.Add(-time.Minute))

	assert.Equal(t, "t1", acquireValue(t, p))
	assert.Empty(t, clock.Sleeps())
}

func TestPoolDisable(t *testing.T) {
	p := New([]string{"t1", "t2"}, WithClock(NewManualClock(epoch)))

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Disable(lease)

	for i := 0; i < 3; i++ {
		assert.Equal(t, "t2", acquireValue(t, p))
	}

	lease, err = p.Acquire(context.Background())
	require.NoError(t, err)
	p.Disable(lease)

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrAllTokensDisabled)
	assert.Equal(t, 0, p.Live())
}

func TestPoolWaitsWhenOnlyDisabledAndExhaustedRemain(t *testing.T) {
	clock := NewManualClock(epoch)
	p := New([]string{"t1", "t2"}, WithClock(clock))

	first, _ := p.Acquire(context.Background())
	second, _ := p.Acquire(context.Background())
	p.Disable(first)
	p.Exhaust(second, epoch.Add(time.Minute))

	assert.Equal(t, "t2", acquireValue(t, p))
	assert.Equal(t, []time.Duration{time.Minute}, clock.Sleeps())
}

func TestPoolWithoutWait(t *testing.T) {
	clock := NewManualClock(epoch)
	p := New([]string{"t1"}, WithClock(clock), WithoutWait())

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	reset := epoch.Add(5 * time.Minute)
	p.Report(lease, 0, 5000, reset)

	_, err = p.Acquire(context.Background())
	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, reset, rateErr.ResetAt)
	assert.Empty(t, clock.Sleeps())
}

func TestPoolAcquireCanceled(t *testing.T) {
	p := New([]string{"t1"}, WithClock(NewManualClock(epoch)))
	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Exhaust(lease, epoch.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolAnonymous(t *testing.T) {
	p := New(nil, WithClock(NewManualClock(epoch)))

	assert.True(t, p.Anonymous())
	assert.Equal(t, 1, p.Size())

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, lease.Anonymous)
	assert.Empty(t, lease.Value)
	assert.Equal(t, "anonymous", lease.Name())

	snapshot := p.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "anonymous", snapshot[0].Name)
}

func TestPoolSnapshotMasksTokens(t *testing.T) {
	p := New([]string{"ghp_secretvalue", "abc"}, WithClock(NewManualClock(epoch)))

	snapshot := p.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "ghp_****", snapshot[0].Name)
	assert.Equal(t, "****", snapshot[1].Name)
	assert.Equal(t, StateActive, snapshot[0].State)
}

func TestPoolConcurrentAcquireReport(t *testing.T) {
	p := New([]string{"t1", "t2", "t3", "t4"}, WithClock(NewManualClock(epoch)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				lease, err := p.Acquire(context.Background())
				if err != nil {
					t.Error(err)
					return
				}
				p.Report(lease, 100, 5000, epoch.Add(time.Hour))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, p.Live())
	for _, s := range p.Snapshot() {
		assert.Equal(t, 100, s.Remaining)
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":                 "****",
		"abcd":             "****",
		"abcde":            "abcd****",
		"ghp_0123456789ab": "ghp_****",
	}
	for in, want := range cases {
		assert.Equal(t, want, Mask(in), in)
	}
}
