/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package workerpool provides a small sharded worker pool used as the
// default backing for the submitter's IOExecutor: every RPC dispatch and
// timer callback runs on a pool goroutine instead of spawning one per
// call.
package workerpool

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

const (
	maxShards = 128

	workerStateIdle    int32 = 0
	workerStateWorking int32 = 1
	workerStateClosed  int32 = 2
)

// Option applies a setting to a WorkerPool at construction time.
type Option interface {
	Apply(pool *WorkerPool)
}

// OptionFunc implements Option.
type OptionFunc func(pool *WorkerPool)

// Apply calls f.
func (f OptionFunc) Apply(pool *WorkerPool) {
	f(pool)
}

// WithPassivateAfter sets the idle-worker cleanup interval.
func WithPassivateAfter(d time.Duration) Option {
	return OptionFunc(func(pool *WorkerPool) {
		pool.passivateAfter = d
	})
}

// WithNumShards sets the number of shards work is distributed across.
func WithNumShards(numShards int) Option {
	return OptionFunc(func(pool *WorkerPool) {
		if numShards > maxShards {
			numShards = maxShards
		}
		pool.numShards = numShards
	})
}

// WorkerPool manages a pool of workers across multiple shards for
// concurrent task execution, reducing per-task goroutine-spawn overhead
// on the submitter's dispatch and timer paths.
type WorkerPool struct {
	passivateAfter time.Duration
	numShards      int
	shards         []*poolShard
	mutex          sync.RWMutex
	started        atomic.Bool
	stopped        atomic.Bool
	spawnedWorkers atomic.Uint64
	cleanupDone    chan struct{}
}

// Worker executes submitted work items on its own goroutine, parked
// between tasks on workChan.
type Worker struct {
	workChan  chan func()
	shard     *poolShard
	lastUsed  atomic.Int64
	isDeleted atomic.Bool
	state     atomic.Int32
}

type poolShard struct {
	wp          *WorkerPool
	workers     sync.Pool
	idleWorkers []*Worker
	mu          sync.Mutex
	stopped     atomic.Bool
}

func (worker *Worker) doWork() {
	shard := worker.shard
	wp := shard.wp
	wp.spawnedWorkers.Add(1)

	for work := range worker.workChan {
		work()
		worker.state.Store(workerStateIdle)
		if !shard.setWorkerIdle(worker) {
			break
		}
	}

	wp.spawnedWorkers.Add(^uint64(0))
	shard.workers.Put(worker)
}

// New creates a worker pool with the given options. Call Start before
// submitting work.
func New(opts ...Option) *WorkerPool {
	wp := &WorkerPool{
		passivateAfter: time.Second,
		numShards:      1,
	}
	for _, opt := range opts {
		opt.Apply(wp)
	}
	if wp.numShards < 1 {
		wp.numShards = 1
	} else if wp.numShards > maxShards {
		wp.numShards = maxShards
	}
	return wp
}

// GetSpawnedWorkers returns the number of live worker goroutines.
func (wp *WorkerPool) GetSpawnedWorkers() int {
	return int(wp.spawnedWorkers.Load())
}

// Start initializes the shards and begins the idle-worker cleanup loop.
// Safe to call more than once.
func (wp *WorkerPool) Start() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if wp.started.Load() {
		return
	}
	wp.shards = make([]*poolShard, wp.numShards)
	for i := 0; i < wp.numShards; i++ {
		wp.shards[i] = &poolShard{
			wp: wp,
			workers: sync.Pool{
				New: func() any {
					return &Worker{workChan: make(chan func())}
				},
			},
			idleWorkers: make([]*Worker, 0, 64),
		}
	}
	wp.cleanupDone = make(chan struct{})
	wp.started.Store(true)
	go wp.cleanup()
}

// Stop shuts down every shard, closing idle worker channels so their
// goroutines exit. In-flight work items still run to completion.
func (wp *WorkerPool) Stop() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if !wp.started.Load() {
		return
	}
	if wp.stopped.Swap(true) {
		return
	}
	close(wp.cleanupDone)
	for _, shard := range wp.shards {
		shard.mu.Lock()
		shard.stopped.Store(true)
		for j := range shard.idleWorkers {
			w := shard.idleWorkers[j]
			if !w.isDeleted.Swap(true) {
				w.state.Store(workerStateClosed)
				close(w.workChan)
			}
			shard.idleWorkers[j] = nil
		}
		shard.idleWorkers = shard.idleWorkers[:0]
		shard.mu.Unlock()
	}
}

// SubmitWork hands task to an available worker, spawning one if the
// chosen shard has none idle. If the pool hasn't been started or has
// been stopped, the task is silently dropped, mirroring a channel send
// to a closed pipeline.
func (wp *WorkerPool) SubmitWork(task func()) {
	wp.mutex.RLock()
	if !wp.started.Load() || wp.stopped.Load() {
		wp.mutex.RUnlock()
		return
	}
	shard := wp.shards[rand.IntN(wp.numShards)]
	wp.mutex.RUnlock()
	shard.acquireWorker(task)
}

func (shard *poolShard) acquireWorker(task func()) *Worker {
	shard.mu.Lock()
	if shard.stopped.Load() {
		shard.mu.Unlock()
		return nil
	}
	length := len(shard.idleWorkers)
	if length > 0 {
		worker := shard.idleWorkers[length-1]
		shard.idleWorkers[length-1] = nil
		shard.idleWorkers = shard.idleWorkers[:length-1]
		shard.mu.Unlock()
		if worker.state.CompareAndSwap(workerStateIdle, workerStateWorking) {
			worker.workChan <- task
			return worker
		}
		return nil
	}
	shard.mu.Unlock()

	worker := shard.workers.Get().(*Worker)
	worker.shard = shard
	if worker.workChan == nil {
		worker.workChan = make(chan func())
	}
	worker.state.Store(workerStateWorking)
	worker.isDeleted.Store(false)
	go worker.doWork()
	worker.workChan <- task
	return worker
}

func (shard *poolShard) setWorkerIdle(worker *Worker) bool {
	worker.lastUsed.Store(time.Now().UnixNano())
	if shard.stopped.Load() {
		return false
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if shard.stopped.Load() {
		return false
	}
	shard.idleWorkers = append(shard.idleWorkers, worker)
	return true
}

// cleanup periodically evicts idle workers that have gone unused for
// longer than passivateAfter, so a burst of dispatch traffic doesn't
// leave goroutines parked forever.
func (wp *WorkerPool) cleanup() {
	ticker := time.NewTicker(wp.passivateAfter)
	defer ticker.Stop()

	for {
		select {
		case <-wp.cleanupDone:
			return
		case now := <-ticker.C:
			cutoff := now.UnixNano() - wp.passivateAfter.Nanoseconds()
			for _, shard := range wp.shards {
				shard.evictOlderThan(cutoff)
			}
		}
	}
}

func (shard *poolShard) evictOlderThan(cutoff int64) {
	shard.mu.Lock()
	if shard.stopped.Load() {
		shard.mu.Unlock()
		return
	}
	keep := shard.idleWorkers[:0]
	var evicted []*Worker
	for _, w := range shard.idleWorkers {
		if w.lastUsed.Load() < cutoff {
			evicted = append(evicted, w)
		} else {
			keep = append(keep, w)
		}
	}
	shard.idleWorkers = keep
	shard.mu.Unlock()

	for _, w := range evicted {
		if !w.isDeleted.Swap(true) {
			w.state.Store(workerStateClosed)
			close(w.workChan)
		}
	}
}
