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

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/actorsubmit/log"
	"github.com/tochemey/actorsubmit/submitqueue"
)

// Option configures a Submitter at construction time.
type Option interface {
	Apply(s *Submitter)
}

var _ Option = OptionFunc(nil)

// OptionFunc adapts a plain function to the Option interface.
type OptionFunc func(s *Submitter)

// Apply calls f.
func (f OptionFunc) Apply(s *Submitter) {
	f(s)
}

// WithLogger sets the Logger the submitter writes lifecycle and warning
// lines to. Defaults to log.DiscardLogger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *Submitter) {
		s.logger = logger
	})
}

// WithIOExecutor overrides the default pool-backed IOExecutor. Tests
// typically pass a synchronous inline executor here.
func WithIOExecutor(executor IOExecutor) Option {
	return OptionFunc(func(s *Submitter) {
		s.executor = executor
		s.ownsExecutor = false
	})
}

// WithWaitForDeathInfo sets timeout_ms_task_wait_for_death_info: how long
// a task that failed with a network error waits in the grace queue
// before being failed with ACTOR_DIED. Zero disables the grace queue
// entirely, so HandlePushTaskReply fails such tasks immediately.
func WithWaitForDeathInfo(d time.Duration) Option {
	return OptionFunc(func(s *Submitter) {
		s.waitForDeathInfo = d
	})
}

// WithMetrics attaches otel instrumentation for submit-queue depth and
// excess-queueing warnings. Defaults to nil, which disables metrics
// recording entirely (submitqueue.Metrics methods are nil-safe).
func WithMetrics(meter metric.Meter) Option {
	return OptionFunc(func(s *Submitter) {
		m, err := submitqueue.NewMetrics(meter)
		if err == nil {
			s.metrics = m
		}
	})
}

// WithExecutorShards sets the shard count for the default pool-backed
// IOExecutor. Ignored if WithIOExecutor is also supplied.
func WithExecutorShards(n int) Option {
	return OptionFunc(func(s *Submitter) {
		s.executorShards = n
	})
}

// WithWarnExcessQueueingThreshold overrides the initial per-actor submit
// queue depth (default 100) at which a ClientQueue logs a warning and
// invokes WarnExcessQueueing, if one is set. The threshold doubles each
// time it's crossed, so later warnings fire at 2n, 4n, and so on.
func WithWarnExcessQueueingThreshold(n int64) Option {
	return OptionFunc(func(s *Submitter) {
		s.initialWarnThreshold = n
	})
}

// WithWarnExcessQueueing sets the hook invoked alongside the submitter's
// own log line whenever an actor's queue crosses its warning threshold.
func WithWarnExcessQueueing(hook WarnExcessQueueing) Option {
	return OptionFunc(func(s *Submitter) {
		s.warnExcessQueueing = hook
	})
}
