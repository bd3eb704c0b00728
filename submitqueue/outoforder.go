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
	"sort"

	"github.com/tochemey/actorsubmit/task"
)

type outOfOrderEntry struct {
	spec     *task.Spec
	resolved bool
	canceled bool
}

// outOfOrderQueue lets the receiver execute tasks in any order once
// resolved. Across a restart, tasks that already completed on the prior
// incarnation are tracked separately and replayed with skip_execution so
// the new incarnation's sequence counter catches up without re-running
// side effects.
type outOfOrderQueue struct {
	entries           map[task.SequenceNumber]*outOfOrderEntry
	completedNotAcked map[task.SequenceNumber]*task.Spec
}

// NewOutOfOrder builds the out-of-order submit queue variant.
func NewOutOfOrder() Queue {
	return &outOfOrderQueue{
		entries:           make(map[task.SequenceNumber]*outOfOrderEntry),
		completedNotAcked: make(map[task.SequenceNumber]*task.Spec),
	}
}

func (q *outOfOrderQueue) Emplace(seq task.SequenceNumber, spec *task.Spec) bool {
	if _, exists := q.entries[seq]; exists {
		return false
	}
	q.entries[seq] = &outOfOrderEntry{spec: spec}
	return true
}

func (q *outOfOrderQueue) Contains(seq task.SequenceNumber) bool {
	_, ok := q.entries[seq]
	return ok
}

func (q *outOfOrderQueue) Get(seq task.SequenceNumber) (*task.Spec, bool, bool) {
	e, ok := q.entries[seq]
	if !ok {
		return nil, false, false
	}
	return e.spec, e.resolved, true
}

func (q *outOfOrderQueue) MarkDependencyResolved(seq task.SequenceNumber) {
	if e, ok := q.entries[seq]; ok {
		e.resolved = true
	}
}

func (q *outOfOrderQueue) MarkDependencyFailed(seq task.SequenceNumber) {
	delete(q.entries, seq)
}

func (q *outOfOrderQueue) MarkTaskCanceled(seq task.SequenceNumber) {
	if e, ok := q.entries[seq]; ok {
		e.canceled = true
	}
}

// PopNextTaskToSend picks the lowest-sequence eligible task rather than
// an arbitrary one: order across eligible tasks is unconstrained by the
// contract, but a deterministic pick keeps dispatch order reproducible
// in tests.
func (q *outOfOrderQueue) PopNextTaskToSend() (*task.Spec, bool, bool) {
	var best task.SequenceNumber
	found := false
	for seq, e := range q.entries {
		if !e.resolved || e.canceled {
			continue
		}
		if !found || seq < best {
			best = seq
			found = true
		}
	}
	if !found {
		return nil, false, false
	}
	e := q.entries[best]
	delete(q.entries, best)
	return e.spec, false, true
}

func (q *outOfOrderQueue) MarkTaskCompleted(seq task.SequenceNumber, spec *task.Spec) {
	q.completedNotAcked[seq] = spec
}

func (q *outOfOrderQueue) GetSequenceNumber(spec *task.Spec) uint64 {
	return uint64(spec.ActorCounter)
}

// PopAllOutOfOrderCompletedTasks drains every completed-but-unacked
// sequence, ordered ascending so replay pushes reach the receiver in the
// order it can make sense of them.
func (q *outOfOrderQueue) PopAllOutOfOrderCompletedTasks() []CompletedEntry {
	if len(q.completedNotAcked) == 0 {
		return nil
	}
	seqs := make([]task.SequenceNumber, 0, len(q.completedNotAcked))
	for seq := range q.completedNotAcked {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	out := make([]CompletedEntry, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, CompletedEntry{Sequence: seq, Spec: q.completedNotAcked[seq]})
		delete(q.completedNotAcked, seq)
	}
	return out
}

func (q *outOfOrderQueue) ClearAllTasks() []task.TaskID {
	ids := make([]task.TaskID, 0, len(q.entries))
	for _, e := range q.entries {
		ids = append(ids, e.spec.TaskID)
	}
	q.entries = make(map[task.SequenceNumber]*outOfOrderEntry)
	q.completedNotAcked = make(map[task.SequenceNumber]*task.Spec)
	return ids
}

func (q *outOfOrderQueue) OnClientConnected() {
	// Nothing to reset: completedNotAcked already tracks exactly what a
	// new incarnation hasn't seen yet, independent of connect/disconnect
	// cycles.
}

func (q *outOfOrderQueue) Len() int {
	return len(q.entries)
}
