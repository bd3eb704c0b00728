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

// Package submitqueue holds the per-actor ordered store of pending tasks
// that the submitter dispatches from. Two implementations exist: a
// strict-FIFO sequential queue and an out-of-order queue that replays
// completed-but-unacknowledged tasks across a restart. Callers select one
// per actor at AddActorQueueIfNotExists time; neither implementation is
// safe for concurrent use on its own; the submitter's single mutex, which
// guards every ClientQueue, serializes every call.
package submitqueue

import "github.com/tochemey/actorsubmit/task"

// CompletedEntry pairs a sequence number with the spec that occupied it,
// returned by PopAllOutOfOrderCompletedTasks so the caller can replay it.
type CompletedEntry struct {
	Sequence task.SequenceNumber
	Spec     *task.Spec
}

// Queue is the ActorSubmitQueue contract every variant implements.
type Queue interface {
	// Emplace inserts spec at seq. It returns false if seq already holds
	// an entry; the caller must never retry with the same seq.
	Emplace(seq task.SequenceNumber, spec *task.Spec) bool
	// Contains reports whether seq currently holds a pending entry.
	Contains(seq task.SequenceNumber) bool
	// Get returns the spec stored at seq and whether its dependencies
	// have resolved. ok is false if seq holds no entry.
	Get(seq task.SequenceNumber) (spec *task.Spec, dependencyResolved bool, ok bool)
	// MarkDependencyResolved flips the resolved bit for seq. A no-op if
	// seq holds no entry (it may have been cancelled or drained already).
	MarkDependencyResolved(seq task.SequenceNumber)
	// MarkDependencyFailed removes the entry at seq. The caller is
	// responsible for failing the task externally.
	MarkDependencyFailed(seq task.SequenceNumber)
	// MarkTaskCanceled marks seq so PopNextTaskToSend will never return
	// it, even once resolved.
	MarkTaskCanceled(seq task.SequenceNumber)
	// PopNextTaskToSend returns and removes the next eligible task, if
	// any. skipQueue is true when the RPC layer must bypass its own
	// per-actor ordering for this send (replayed completions).
	PopNextTaskToSend() (spec *task.Spec, skipQueue bool, ok bool)
	// MarkTaskCompleted records that seq finished (successfully or not),
	// so ordering/replay bookkeeping can account for it.
	MarkTaskCompleted(seq task.SequenceNumber, spec *task.Spec)
	// GetSequenceNumber returns the wire-level ordering value the
	// receiver should use for spec.
	GetSequenceNumber(spec *task.Spec) uint64
	// PopAllOutOfOrderCompletedTasks drains and returns tasks that
	// completed on a prior incarnation but are blocked behind a
	// sequence-number hole. Always empty for the sequential variant.
	PopAllOutOfOrderCompletedTasks() []CompletedEntry
	// ClearAllTasks empties the queue, returning every task id it held.
	ClearAllTasks() []task.TaskID
	// OnClientConnected resets any per-incarnation cursor state ahead of
	// a fresh connection to the actor.
	OnClientConnected()
	// Len reports how many entries are currently pending (used for the
	// cur_pending_calls invariant and depth-based warnings).
	Len() int
}
