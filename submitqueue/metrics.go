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

package submitqueue

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tochemey/actorsubmit/submitqueue"

// Metrics wraps the otel instruments the dispatch path updates as tasks
// move through a submit queue: a gauge of pending tasks summed over all
// actors (no per-actor attribute is recorded) and a counter of "queue
// depth crossed a warning threshold" events, mirroring
// warn_excess_queueing from section 6.
type Metrics struct {
	depth        metric.Int64UpDownCounter
	excessQueued metric.Int64Counter
}

// NewMetrics builds a Metrics instance from the given meter. Pass
// otel.GetMeterProvider().Meter(...) or noop.NewMeterProvider().Meter(...)
// in tests.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	depth, err := meter.Int64UpDownCounter(
		"actorsubmit.submitqueue.depth",
		metric.WithDescription("Number of tasks currently pending in an actor's submit queue"),
	)
	if err != nil {
		return nil, err
	}
	excess, err := meter.Int64Counter(
		"actorsubmit.submitqueue.excess_queueing",
		metric.WithDescription("Count of times a submit queue crossed a doubling of its warning threshold"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{depth: depth, excessQueued: excess}, nil
}

// RecordEmplace bumps the depth gauge by one.
func (m *Metrics) RecordEmplace(ctx context.Context) {
	if m == nil {
		return
	}
	m.depth.Add(ctx, 1)
}

// RecordDrain reduces the depth gauge by n, used when a task stops being
// pending: its push reply is handled, its dependency resolution fails, or
// it is cancelled while still queued.
func (m *Metrics) RecordDrain(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.depth.Add(ctx, -int64(n))
}

// RecordExcessQueueing records a single crossing of a warning threshold.
func (m *Metrics) RecordExcessQueueing(ctx context.Context) {
	if m == nil {
		return
	}
	m.excessQueued.Add(ctx, 1)
}
