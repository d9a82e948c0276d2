// Package worker implements the generation Worker Pool: a two-level
// supervisor/worker goroutine pool draining a shared task queue, with
// cooperative cancellation, progress reporting, and first-error capture
// (spec.md §4.7).
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/betty-gen/betty/internal/bettyerr"
	"github.com/betty-gen/betty/internal/jobctx"
	"github.com/betty-gen/betty/internal/logger"
)

// Task is one unit of generation work.
type Task struct {
	Label string
	Run   func(ctx context.Context, jc *jobctx.Context) error
}

// Pool is the two-level (supervisors x per-supervisor workers) task-queue
// pool described in spec.md §4.7. The spec's CPython "N processes x K
// async tasks" design exists to route around the GIL and to survive a
// pickling boundary; in Go the same two-level fan-out is just goroutines,
// per the Design Notes' "Cross-process object graphs" guidance (§9).
type Pool struct {
	supervisors int
	perSupervisor int
	jc          *jobctx.Context

	tasks    chan Task
	total    atomic.Int64
	done     atomic.Int64
	cancel   atomic.Bool
	finish   atomic.Bool
	firstErr atomic.Value // error

	wg       sync.WaitGroup
	started  bool
	progress chan struct{}
}

// New builds a Pool with `supervisors` outer groups of `perSupervisor`
// cooperative workers each, sharing jc as their job context.
func New(supervisors, perSupervisor int, jc *jobctx.Context) *Pool {
	if supervisors < 1 {
		supervisors = 1
	}
	if perSupervisor < 1 {
		perSupervisor = 1
	}
	return &Pool{
		supervisors:   supervisors,
		perSupervisor: perSupervisor,
		jc:            jc,
		tasks:         make(chan Task, 4096),
		progress:      make(chan struct{}),
	}
}

// Start launches every worker goroutine and the progress-logging ticker.
// It is the analogue of the Python pool's `__aenter__`.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true
	for s := 0; s < p.supervisors; s++ {
		for k := 0; k < p.perSupervisor; k++ {
			p.wg.Add(1)
			go p.workerLoop(ctx)
		}
	}
	go p.progressLoop(ctx)
}

// Delegate enqueues a task. It is only legal while the pool is active
// (neither cancelled nor finished), matching spec.md's delegation
// protocol.
//
// The queue is a bounded channel, so a plain blocking send would hang
// forever once the buffer fills after every worker has already exited on
// a cancelled pool (the producer is a single goroutine with nothing left
// to drain the channel). Delegate instead polls a non-blocking send
// against Cancel, the same way workerLoop polls the queue.
func (p *Pool) Delegate(t Task) error {
	if p.cancel.Load() || p.finish.Load() {
		return fmt.Errorf("cannot delegate task %q: pool is no longer accepting work", t.Label)
	}
	for {
		select {
		case p.tasks <- t:
			p.total.Add(1)
			return nil
		default:
		}
		if p.cancel.Load() {
			return fmt.Errorf("cannot delegate task %q: pool was cancelled while the queue was full", t.Label)
		}
		time.Sleep(time.Millisecond)
	}
}

// DelegateAll enqueues every task in ts, stopping at the first error.
func (p *Pool) DelegateAll(ts ...Task) error {
	for _, t := range ts {
		if err := p.Delegate(t); err != nil {
			return err
		}
	}
	return nil
}

// Finish signals that no more tasks will be delegated: workers drain the
// remaining queue and then return. It is the analogue of `__aexit__(None)`.
func (p *Pool) Finish() {
	p.finish.Store(true)
}

// Cancel signals every worker to stop pulling new tasks. In-flight tasks
// are allowed to finish their current step; a second Cancel is a no-op.
func (p *Pool) Cancel() {
	p.cancel.Store(true)
}

// Join waits for every worker to exit and returns the first recorded
// error, if any — the analogue of `__aexit__`'s re-raise.
func (p *Pool) Join() error {
	p.wg.Wait()
	close(p.progress)
	if v := p.firstErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Progress returns (completed, total) delegated tasks so far.
func (p *Pool) Progress() (int64, int64) {
	return p.done.Load(), p.total.Load()
}

func (p *Pool) workerLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		if p.cancel.Load() {
			return
		}
		select {
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			if err := t.Run(ctx, p.jc); err != nil {
				p.recordError(bettyerr.NewPipelineError(t.Label, err))
				p.cancel.Store(true)
				return
			}
			p.done.Add(1)
		default:
			if p.finish.Load() && len(p.tasks) == 0 {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func (p *Pool) recordError(err error) {
	p.firstErr.CompareAndSwap(nil, err)
}

func (p *Pool) progressLoop(ctx context.Context) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.progress:
			done, total := p.Progress()
			log.Info("generation complete", "done", done, "total", total, "percent", percent(done, total))
			return
		case <-ticker.C:
			done, total := p.Progress()
			log.Info("generation progress", "done", done, "total", total, "percent", percent(done, total))
		}
	}
}

func percent(done, total int64) int {
	if total == 0 {
		return 100
	}
	return int(done * 100 / total)
}
