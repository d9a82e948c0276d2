package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betty-gen/betty/internal/jobctx"
)

func newTestJobCtx(t *testing.T) *jobctx.Context {
	t.Helper()
	jc, err := jobctx.New()
	require.NoError(t, err)
	t.Cleanup(jc.Close)
	return jc
}

func TestPool_EmptyRunCompletesAt100Percent(t *testing.T) {
	jc := newTestJobCtx(t)
	p := New(1, 1, jc)
	p.Start(context.Background())
	p.Finish()
	require.NoError(t, p.Join())
	done, total := p.Progress()
	assert.Equal(t, int64(0), done)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, 100, percent(done, total))
}

func TestPool_RunsAllDelegatedTasks(t *testing.T) {
	jc := newTestJobCtx(t)
	p := New(2, 2, jc)
	p.Start(context.Background())

	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, p.Delegate(Task{
			Label: "noop",
			Run:   func(context.Context, *jobctx.Context) error { return nil },
		}))
	}
	p.Finish()
	require.NoError(t, p.Join())
	done, total := p.Progress()
	assert.Equal(t, int64(n), done)
	assert.Equal(t, int64(n), total)
}

func TestPool_FirstErrorIsReturnedAndCancelsRemainingWork(t *testing.T) {
	jc := newTestJobCtx(t)
	p := New(1, 1, jc)
	p.Start(context.Background())

	boom := errors.New("boom")
	require.NoError(t, p.Delegate(Task{
		Label: "fails",
		Run:   func(context.Context, *jobctx.Context) error { return boom },
	}))
	p.Finish()
	err := p.Join()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fails")
}

func TestPool_DelegateAfterFinishIsRejected(t *testing.T) {
	jc := newTestJobCtx(t)
	p := New(1, 1, jc)
	p.Start(context.Background())
	p.Finish()
	err := p.Delegate(Task{Label: "late", Run: func(context.Context, *jobctx.Context) error { return nil }})
	assert.Error(t, err)
	require.NoError(t, p.Join())
}

func TestPool_DelegateDoesNotDeadlockWhenQueueFillsAfterEarlyFailure(t *testing.T) {
	jc := newTestJobCtx(t)
	p := New(1, 1, jc)
	p.Start(context.Background())

	boom := errors.New("boom")
	require.NoError(t, p.Delegate(Task{
		Label: "fails-first",
		Run:   func(context.Context, *jobctx.Context) error { return boom },
	}))

	// Delegate far more tasks than the queue's buffer holds, mirroring a
	// real fan-out (one task per entity x locale) racing the single
	// worker that will fail and cancel the pool. Before the fix, once the
	// buffer filled and the lone worker had already exited, this blocking
	// send never returned.
	const n = 5000
	delegateErr := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			if err := p.Delegate(Task{
				Label: "noop",
				Run:   func(context.Context, *jobctx.Context) error { return nil },
			}); err != nil {
				delegateErr <- err
				return
			}
		}
		delegateErr <- nil
	}()

	select {
	case err := <-delegateErr:
		assert.Error(t, err, "delegation must fail once the pool cancels instead of accepting every task")
	case <-time.After(5 * time.Second):
		t.Fatal("Delegate blocked forever once the queue filled after an early failure")
	}

	p.Finish()
	err := p.Join()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fails-first")
}

func TestPool_CancelObservedWithinBoundedInterval(t *testing.T) {
	jc := newTestJobCtx(t)
	p := New(1, 1, jc)
	p.Start(context.Background())
	p.Cancel()

	deadline := time.After(time.Second)
	err := p.Delegate(Task{Label: "should-be-rejected", Run: func(context.Context, *jobctx.Context) error { return nil }})
	assert.Error(t, err)
	select {
	case <-deadline:
		t.Fatal("cancel not observed within bounded interval")
	default:
	}
}
