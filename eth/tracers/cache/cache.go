// Package cache deduplicates block replays and keeps their traces for a
// short time. A single goroutine owns every entry; callers talk to it
// through a mailbox.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/zircuit-labs/l2-tracecache/eth/tracers/formatter"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/metrics"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/pool"
	"github.com/zircuit-labs/l2-tracecache/internal/tracelog"
)

// ErrStopped is returned to callers once the cache has been stopped.
var ErrStopped = errors.New("trace cache stopped")

// Replayer produces the traces of a block.
type Replayer interface {
	ReplayBlock(ctx context.Context, hash common.Hash) ([]*formatter.Trace, error)
}

// Stats is a snapshot of the cache content.
type Stats struct {
	Entries int
	Pending int
	Batches int
}

type result struct {
	traces []*formatter.Trace
	err    error
}

type entry struct {
	pending bool
	waiters []chan result // buffered, never block the loop
	traces  []*formatter.Trace
	err     error
	refs    mapset.Set[uint64]
	evict   *time.Timer
	gen     uint64 // bumped whenever the eviction timer changes
}

type (
	startBatchMsg struct {
		hashes []common.Hash
		reply  chan uint64
	}
	getTracesMsg struct {
		hash  common.Hash
		reply chan result
	}
	stopBatchMsg struct {
		id uint64
	}
	replayDoneMsg struct {
		hash   common.Hash
		traces []*formatter.Trace
		err    error
	}
	expireMsg struct {
		hash common.Hash
		gen  uint64
	}
	statsMsg struct {
		reply chan Stats
	}
)

type Cache struct {
	replayer Replayer
	pool     *pool.Pool
	ttl      time.Duration
	metrics  *metrics.Collector
	logger   log.Logger

	mailbox  chan any
	stopChan chan struct{}  // closed by Stop
	once     sync.Once      // guards stopChan
	wg       sync.WaitGroup // loop goroutine
	baseCtx  context.Context
	cancel   context.CancelFunc

	// Only accessed by the loop goroutine.
	entries   map[common.Hash]*entry
	batches   map[uint64][]common.Hash
	nextBatch uint64
}

// New creates a cache keeping unreferenced traces for ttl. Start must be
// called before use.
func New(replayer Replayer, p *pool.Pool, ttl time.Duration, m *metrics.Collector) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		replayer: replayer,
		pool:     p,
		ttl:      ttl,
		metrics:  m,
		logger:   tracelog.NewWith("component", "trace_cache"),
		mailbox:  make(chan any),
		stopChan: make(chan struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
		entries:  make(map[common.Hash]*entry),
		batches:  make(map[uint64][]common.Hash),
	}
}

// Start launches the loop goroutine.
func (c *Cache) Start() {
	c.wg.Add(1)
	go c.loop()
}

// Stop signals the loop to stop and waits for it to terminate. Pending
// callers receive ErrStopped.
func (c *Cache) Stop() {
	c.once.Do(func() {
		close(c.stopChan)
		c.cancel()
	})
	c.wg.Wait()
}

// StartBatch references every hash for the lifetime of the returned batch
// and starts replaying the blocks not known yet. ctx only bounds the
// delivery of the request: once the loop has it, the batch id is always
// returned so that the caller can release it.
func (c *Cache) StartBatch(ctx context.Context, hashes []common.Hash) (uint64, error) {
	reply := make(chan uint64, 1)
	if err := c.send(ctx, startBatchMsg{hashes: hashes, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case id := <-reply:
		return id, nil
	case <-c.stopChan:
		return 0, ErrStopped
	}
}

// GetTraces returns the traces of a block, waiting for its replay when
// needed. Cancelling ctx abandons the wait, not the replay.
func (c *Cache) GetTraces(ctx context.Context, hash common.Hash) ([]*formatter.Trace, error) {
	reply := make(chan result, 1)
	if err := c.send(ctx, getTracesMsg{hash: hash, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.traces, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.stopChan:
		return nil, ErrStopped
	}
}

// StopBatch releases the references of a batch. It does not wait for the
// loop to process the release.
func (c *Cache) StopBatch(id uint64) {
	_ = c.send(context.Background(), stopBatchMsg{id: id})
}

// Stats returns the current entry and batch counts.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := c.send(ctx, statsMsg{reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case stats := <-reply:
		return stats, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-c.stopChan:
		return Stats{}, ErrStopped
	}
}

func (c *Cache) send(ctx context.Context, msg any) error {
	select {
	case c.mailbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopChan:
		return ErrStopped
	}
}

func (c *Cache) loop() {
	defer c.wg.Done()

	c.logger.Info("Trace cache started", "ttl", c.ttl)
	for {
		select {
		case msg := <-c.mailbox:
			c.handle(msg)
			c.metrics.SetCacheEntries(len(c.entries))
		case <-c.stopChan:
			c.shutdown()
			c.logger.Info("Trace cache stopped")
			return
		}
	}
}

func (c *Cache) handle(msg any) {
	switch msg := msg.(type) {
	case startBatchMsg:
		c.startBatch(msg)
	case getTracesMsg:
		c.getTraces(msg)
	case stopBatchMsg:
		c.stopBatch(msg.id)
	case replayDoneMsg:
		c.replayDone(msg)
	case expireMsg:
		c.expire(msg)
	case statsMsg:
		msg.reply <- c.stats()
	default:
		c.logger.Error("Unexpected cache message", "type", msg)
	}
}

func (c *Cache) startBatch(msg startBatchMsg) {
	id := c.nextBatch
	c.nextBatch++
	c.batches[id] = msg.hashes

	for _, hash := range msg.hashes {
		e, ok := c.entries[hash]
		if !ok {
			e = c.newPending(hash)
		}
		e.refs.Add(id)
		c.cancelEviction(e)
	}
	msg.reply <- id
}

func (c *Cache) getTraces(msg getTracesMsg) {
	e, ok := c.entries[msg.hash]
	switch {
	case !ok:
		c.metrics.IncCacheLookup(metrics.LookupMiss)
		e = c.newPending(msg.hash)
		e.waiters = append(e.waiters, msg.reply)
	case e.pending:
		c.metrics.IncCacheLookup(metrics.LookupPending)
		e.waiters = append(e.waiters, msg.reply)
	default:
		c.metrics.IncCacheLookup(metrics.LookupHit)
		msg.reply <- result{traces: e.traces, err: e.err}
	}
}

func (c *Cache) stopBatch(id uint64) {
	hashes, ok := c.batches[id]
	if !ok {
		return
	}
	delete(c.batches, id)

	for _, hash := range hashes {
		e, ok := c.entries[hash]
		if !ok {
			continue
		}
		e.refs.Remove(id)
		// Pending entries are scheduled once their replay completes.
		if e.refs.Cardinality() == 0 && !e.pending && e.evict == nil {
			c.scheduleEviction(hash, e)
		}
	}
}

func (c *Cache) replayDone(msg replayDoneMsg) {
	e, ok := c.entries[msg.hash]
	if !ok || !e.pending {
		return
	}
	e.pending = false
	e.traces, e.err = msg.traces, msg.err
	if msg.err != nil {
		c.logger.Warn("Block replay failed", "hash", msg.hash, "err", msg.err)
	}

	for _, waiter := range e.waiters {
		waiter <- result{traces: e.traces, err: e.err}
	}
	e.waiters = nil

	if e.refs.Cardinality() == 0 {
		c.scheduleEviction(msg.hash, e)
	}
}

func (c *Cache) expire(msg expireMsg) {
	e, ok := c.entries[msg.hash]
	if !ok || e.gen != msg.gen || e.pending || e.refs.Cardinality() != 0 {
		return
	}
	delete(c.entries, msg.hash)
	c.metrics.IncEvictions()
	c.logger.Debug("Evicted block traces", "hash", msg.hash)
}

func (c *Cache) stats() Stats {
	stats := Stats{Entries: len(c.entries), Batches: len(c.batches)}
	for _, e := range c.entries {
		if e.pending {
			stats.Pending++
		}
	}
	return stats
}

func (c *Cache) newPending(hash common.Hash) *entry {
	e := &entry{pending: true, refs: mapset.NewThreadUnsafeSet[uint64]()}
	c.entries[hash] = e

	var traces []*formatter.Trace
	c.pool.Go(c.baseCtx, func(ctx context.Context) error {
		var err error
		traces, err = c.replayer.ReplayBlock(ctx, hash)
		return err
	}, func(err error) {
		_ = c.send(context.Background(), replayDoneMsg{hash: hash, traces: traces, err: err})
	})
	return e
}

func (c *Cache) scheduleEviction(hash common.Hash, e *entry) {
	c.cancelEviction(e)
	gen := e.gen
	e.evict = time.AfterFunc(c.ttl, func() {
		_ = c.send(context.Background(), expireMsg{hash: hash, gen: gen})
	})
}

func (c *Cache) cancelEviction(e *entry) {
	if e.evict != nil {
		e.evict.Stop()
		e.evict = nil
	}
	e.gen++
}

func (c *Cache) shutdown() {
	for _, e := range c.entries {
		if e.evict != nil {
			e.evict.Stop()
		}
		for _, waiter := range e.waiters {
			waiter <- result{err: ErrStopped}
		}
		e.waiters = nil
	}
}
