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

package submitter

import (
	"time"

	"github.com/tochemey/actorsubmit/internal/workerpool"
)

// poolExecutor is the default IOExecutor, backing Execute with
// internal/workerpool and ExecuteAfter with time.AfterFunc timers that
// hand off onto the same pool once they fire, so a burst of expiring
// timers doesn't spawn a burst of bare goroutines.
type poolExecutor struct {
	pool *workerpool.WorkerPool
}

// NewPoolExecutor builds an IOExecutor backed by a fresh, started
// worker pool with the given shard count.
func NewPoolExecutor(numShards int) IOExecutor {
	pool := workerpool.New(workerpool.WithNumShards(numShards))
	pool.Start()
	return &poolExecutor{pool: pool}
}

func (e *poolExecutor) Execute(fn func()) {
	e.pool.SubmitWork(fn)
}

func (e *poolExecutor) ExecuteAfter(d time.Duration, fn func()) (cancel func()) {
	timer := time.AfterFunc(d, func() {
		e.pool.SubmitWork(fn)
	})
	return func() { timer.Stop() }
}

// Stop shuts down the underlying worker pool. Not part of the IOExecutor
// interface since most implementations (e.g. an inline test executor)
// have nothing to stop; callers holding a *poolExecutor directly (as
// New does) can shut it down via Submitter.Close.
func (e *poolExecutor) Stop() {
	e.pool.Stop()
}
