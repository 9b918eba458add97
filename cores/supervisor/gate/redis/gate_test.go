package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	mu       sync.Mutex
	tries    []bool
	renew    bool
	attempts int
	unlocked chan struct{}
}

func newFakeLocker(renew bool, tries ...bool) *fakeLocker {
	return &fakeLocker{tries: tries, renew: renew, unlocked: make(chan struct{}, 1)}
}

func (f *fakeLocker) Name() string { return "balancer:watch" }

func (f *fakeLocker) Expiry() time.Duration { return 9 * time.Second }

func (f *fakeLocker) TryLock(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if len(f.tries) == 0 {
		return false, errors.New("connection refused")
	}
	ok := f.tries[0]
	f.tries = f.tries[1:]
	return ok, nil
}

func (f *fakeLocker) Renew(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renew, nil
}

func (f *fakeLocker) UnLock(context.Context) (bool, error) {
	f.unlocked <- struct{}{}
	return true, nil
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGateRetriesUntilAcquired(t *testing.T) {
	t.Parallel()
	deadline := testContext(t)
	clock := clockwork.NewFakeClock()
	locker := newFakeLocker(true, false, false, true)
	g := New(locker, Clock(clock), RetryDelay(time.Second))

	ctx, cancel := context.WithCancel(deadline)
	defer cancel()
	type lead struct {
		ctx context.Context
		err error
	}
	done := make(chan lead, 1)
	go func() {
		c, err := g.Lead(ctx)
		done <- lead{c, err}
	}()

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(deadline, 1))
		clock.Advance(time.Second)
	}
	select {
	case l := <-done:
		require.NoError(t, l.err)
		assert.NoError(t, l.ctx.Err())
	case <-deadline.Done():
		t.Fatal("lead not acquired")
	}
	locker.mu.Lock()
	assert.Equal(t, 3, locker.attempts)
	locker.mu.Unlock()
}

func TestGateLosesLeadershipWhenRenewFails(t *testing.T) {
	t.Parallel()
	deadline := testContext(t)
	clock := clockwork.NewFakeClock()
	g := New(newFakeLocker(false, true), Clock(clock))

	leadCtx, err := g.Lead(deadline)
	require.NoError(t, err)
	require.NoError(t, clock.BlockUntilContext(deadline, 1))
	clock.Advance(3 * time.Second)

	select {
	case <-leadCtx.Done():
	case <-deadline.Done():
		t.Fatal("leadership not revoked")
	}
}

func TestGateUnlocksOnShutdown(t *testing.T) {
	t.Parallel()
	deadline := testContext(t)
	clock := clockwork.NewFakeClock()
	locker := newFakeLocker(true, true)
	g := New(locker, Clock(clock))

	ctx, cancel := context.WithCancel(deadline)
	leadCtx, err := g.Lead(ctx)
	require.NoError(t, err)

	// 续期成功时保持执行权
	require.NoError(t, clock.BlockUntilContext(deadline, 1))
	clock.Advance(3 * time.Second)
	assert.NoError(t, leadCtx.Err())

	cancel()
	select {
	case <-locker.unlocked:
	case <-deadline.Done():
		t.Fatal("lock not released")
	}
}

func TestGateCancelledWhileWaiting(t *testing.T) {
	t.Parallel()
	deadline := testContext(t)
	clock := clockwork.NewFakeClock()
	g := New(newFakeLocker(true), Clock(clock))

	ctx, cancel := context.WithCancel(deadline)
	done := make(chan error, 1)
	go func() {
		_, err := g.Lead(ctx)
		done <- err
	}()
	require.NoError(t, clock.BlockUntilContext(deadline, 1))
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-deadline.Done():
		t.Fatal("lead did not return")
	}
}
