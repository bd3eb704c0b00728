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

import "github.com/tochemey/actorsubmit/task"

type sequentialEntry struct {
	spec     *task.Spec
	resolved bool
	canceled bool
}

// sequentialQueue is the strict-FIFO ActorSubmitQueue variant: a task at
// seq is eligible only once seq equals the next expected sequence
// number, so the receiver always observes strictly increasing sequence
// numbers.
type sequentialQueue struct {
	entries      map[task.SequenceNumber]*sequentialEntry
	nextExpected task.SequenceNumber
}

// NewSequential builds the strict-FIFO submit queue variant.
func NewSequential() Queue {
	return &sequentialQueue{
		entries: make(map[task.SequenceNumber]*sequentialEntry),
	}
}

func (q *sequentialQueue) Emplace(seq task.SequenceNumber, spec *task.Spec) bool {
	if _, exists := q.entries[seq]; exists {
		return false
	}
	q.entries[seq] = &sequentialEntry{spec: spec}
	return true
}

func (q *sequentialQueue) Contains(seq task.SequenceNumber) bool {
	_, ok := q.entries[seq]
	return ok
}

func (q *sequentialQueue) Get(seq task.SequenceNumber) (*task.Spec, bool, bool) {
	e, ok := q.entries[seq]
	if !ok {
		return nil, false, false
	}
	return e.spec, e.resolved, true
}

func (q *sequentialQueue) MarkDependencyResolved(seq task.SequenceNumber) {
	if e, ok := q.entries[seq]; ok {
		e.resolved = true
	}
}

func (q *sequentialQueue) MarkDependencyFailed(seq task.SequenceNumber) {
	delete(q.entries, seq)
}

func (q *sequentialQueue) MarkTaskCanceled(seq task.SequenceNumber) {
	if e, ok := q.entries[seq]; ok {
		e.canceled = true
	}
}

// PopNextTaskToSend skips over any canceled entries sitting at the front
// of the queue rather than blocking behind them: a canceled task still
// occupies its sequence slot (the caller assigned it, and no other task
// will ever reuse it), so nextExpected must advance past it for later
// tasks to become eligible at all.
func (q *sequentialQueue) PopNextTaskToSend() (*task.Spec, bool, bool) {
	for {
		e, ok := q.entries[q.nextExpected]
		if !ok || (!e.resolved && !e.canceled) {
			return nil, false, false
		}
		delete(q.entries, q.nextExpected)
		q.nextExpected++
		if e.canceled {
			continue
		}
		return e.spec, false, true
	}
}

func (q *sequentialQueue) MarkTaskCompleted(task.SequenceNumber, *task.Spec) {
	// The sequential variant needs no bookkeeping beyond advancing
	// nextExpected, which already happened in PopNextTaskToSend.
}

func (q *sequentialQueue) GetSequenceNumber(spec *task.Spec) uint64 {
	return uint64(spec.ActorCounter)
}

func (q *sequentialQueue) PopAllOutOfOrderCompletedTasks() []CompletedEntry {
	return nil
}

func (q *sequentialQueue) ClearAllTasks() []task.TaskID {
	ids := make([]task.TaskID, 0, len(q.entries))
	for _, e := range q.entries {
		ids = append(ids, e.spec.TaskID)
	}
	q.entries = make(map[task.SequenceNumber]*sequentialEntry)
	return ids
}

func (q *sequentialQueue) OnClientConnected() {
	// Sequential ordering is anchored on nextExpected, which survives a
	// reconnect unchanged: whatever sequence the receiver was waiting on
	// before disconnect is still what it expects after.
}

func (q *sequentialQueue) Len() int {
	return len(q.entries)
}
