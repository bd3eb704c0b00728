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

	"github.com/tochemey/actorsubmit/errs"
	"github.com/tochemey/actorsubmit/submitqueue"
	"github.com/tochemey/actorsubmit/task"
)

// deathInfoEntry is one row of a clientQueue's wait-for-death-info grace
// list: a task that failed with a network error, held for confirmation
// that the actor is actually dead before it's failed for good.
type deathInfoEntry struct {
	deadline time.Time
	spec     *task.Spec
	status   errs.Status
}

// clientQueue is the per-actor aggregate the submitter's table maps
// every task.ActorID to. Every field is guarded by the owning
// Submitter's mu; nothing here does its own locking.
type clientQueue struct {
	actorID     task.ActorID
	state       task.ActorState
	numRestarts int64
	workerID    []byte
	address     task.Address
	rpcClient   RPCClient

	submitQueue submitqueue.Queue

	inflightCallbacks map[task.TaskID]func(PushTaskReply)

	waitForDeathInfoTasks []deathInfoEntry

	curPendingCalls int64
	maxPendingCalls int64

	failIfActorUnreachable bool
	executeOutOfOrder      bool

	pendingForceKill *KillActorRequest

	deathCause task.DeathCause
	preempted  bool

	// warnThreshold is the next queue depth at which PushActorTask will
	// emit a warning and double the threshold again.
	warnThreshold int64
}

// initialWarnThreshold is the package default used when the Submitter
// was built without WithWarnExcessQueueingThreshold.
const initialWarnThreshold = 100

func newClientQueue(actorID task.ActorID, maxPendingCalls int64, executeOutOfOrder, failIfActorUnreachable bool, warnThreshold int64) *clientQueue {
	var q submitqueue.Queue
	if executeOutOfOrder {
		q = submitqueue.NewOutOfOrder()
	} else {
		q = submitqueue.NewSequential()
	}
	if warnThreshold <= 0 {
		warnThreshold = initialWarnThreshold
	}
	return &clientQueue{
		actorID:                actorID,
		state:                  task.ActorPendingCreation,
		submitQueue:            q,
		inflightCallbacks:      make(map[task.TaskID]func(PushTaskReply)),
		maxPendingCalls:        maxPendingCalls,
		executeOutOfOrder:      executeOutOfOrder,
		failIfActorUnreachable: failIfActorUnreachable,
		warnThreshold:          warnThreshold,
	}
}

// pendingCallsFull reports whether the actor has hit its advisory
// backpressure limit. maxPendingCalls<=0 disables the check.
func (cq *clientQueue) pendingCallsFull() bool {
	return cq.maxPendingCalls > 0 && cq.curPendingCalls >= cq.maxPendingCalls
}

// moveOutInflightCallbacks detaches the entire inflight callback table so
// it can be drained outside the lock, satisfying the "never call external
// collaborators while holding mu" invariant.
func (cq *clientQueue) moveOutInflightCallbacks() map[task.TaskID]func(PushTaskReply) {
	moved := cq.inflightCallbacks
	cq.inflightCallbacks = make(map[task.TaskID]func(PushTaskReply))
	return moved
}

// moveOutDeathInfoTasks detaches the grace list for draining outside the
// lock, used on the DEAD transition.
func (cq *clientQueue) moveOutDeathInfoTasks() []deathInfoEntry {
	moved := cq.waitForDeathInfoTasks
	cq.waitForDeathInfoTasks = nil
	return moved
}
