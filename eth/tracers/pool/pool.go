// Package pool runs replays outside of the cache actor, bounded by a
// fixed number of permits.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/semaphore"

	"github.com/zircuit-labs/l2-tracecache/eth/tracers/metrics"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
	"github.com/zircuit-labs/l2-tracecache/internal/tracelog"
)

// ErrStopped is returned for tasks submitted after Stop.
var ErrStopped = errors.New("replay pool stopped")

// Task is a unit of replay work.
type Task func(ctx context.Context) error

type Pool struct {
	permits *semaphore.Weighted // bounds replays across every caller
	workers pond.Pool
	metrics *metrics.Collector
	logger  log.Logger
	wg      sync.WaitGroup
}

// New creates a pool allowing maxPermits concurrent replays. maxConcurrency
// caps the worker goroutines and defaults to maxPermits when not positive.
func New(maxPermits, maxConcurrency int, m *metrics.Collector) *Pool {
	if maxPermits < 1 {
		maxPermits = 1
	}
	if maxConcurrency < 1 {
		maxConcurrency = maxPermits
	}
	return &Pool{
		permits: semaphore.NewWeighted(int64(maxPermits)),
		workers: pond.NewPool(maxConcurrency),
		metrics: m,
		logger:  tracelog.NewWith("component", "replay_pool"),
	}
}

// Run waits for a permit and runs task on the worker pool. Waiting for the
// permit honours ctx; once started, the task runs until it returns.
func (p *Pool) Run(ctx context.Context, task Task) error {
	if err := p.permits.Acquire(ctx, 1); err != nil {
		return err
	}
	p.metrics.AddPermitsInUse(1)
	defer func() {
		p.permits.Release(1)
		p.metrics.AddPermitsInUse(-1)
	}()

	err := p.workers.SubmitErr(func() error {
		return p.safe(ctx, task)
	}).Wait()
	if errors.Is(err, pond.ErrPoolStopped) {
		return ErrStopped
	}
	return err
}

// Go runs task in the background and hands its result to onDone.
func (p *Pool) Go(ctx context.Context, task Task, onDone func(error)) {
	p.wg.Go(func() {
		onDone(p.Run(ctx, task))
	})
}

// Stop waits for running tasks and rejects new ones.
func (p *Pool) Stop() {
	p.workers.StopAndWait()
	p.wg.Wait()
}

func (p *Pool) safe(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Replay task panicked", "panic", r)
			err = ethapi.NewInternalError("internal error on spawned task", fmt.Errorf("%v", r))
		}
	}()
	return task(ctx)
}
