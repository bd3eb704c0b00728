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
	"context"

	"github.com/tochemey/actorsubmit/errs"
	"github.com/tochemey/actorsubmit/task"
)

// ConnectActor records that actorID is now reachable at addr under
// restart epoch numRestarts. Stale or superseded messages (an epoch
// older than the last one seen, or any message once the actor is DEAD)
// are silently discarded, since the discovery channel does not guarantee
// ordering.
func (s *Submitter) ConnectActor(actorID task.ActorID, addr task.Address, numRestarts int64) {
	s.mu.Lock()
	cq := s.mustGet(actorID)

	if numRestarts < cq.numRestarts {
		s.mu.Unlock()
		return
	}
	if cq.state == task.ActorDead {
		s.mu.Unlock()
		return
	}
	if cq.rpcClient != nil && cq.address.SameEndpoint(addr) {
		s.mu.Unlock()
		return
	}

	oldClient := cq.rpcClient
	oldWorkerID := cq.workerID
	var movedCallbacks map[task.TaskID]func(PushTaskReply)
	if oldClient != nil {
		movedCallbacks = cq.moveOutInflightCallbacks()
	}

	client, err := s.pool.GetOrConnect(context.Background(), addr)
	if err != nil {
		s.logger.Warnf("actor %s: failed to connect to %s: %v", actorID, addr, err)
		cq.rpcClient = nil
		cq.workerID = nil
		cq.address = task.Address{}
		s.mu.Unlock()
		if oldClient != nil {
			s.disconnectFromPool(oldWorkerID)
			s.failMovedCallbacks(movedCallbacks)
		}
		return
	}

	cq.numRestarts = numRestarts
	cq.state = task.ActorAlive
	cq.workerID = addr.WorkerID
	cq.address = addr
	cq.rpcClient = client

	cq.submitQueue.OnClientConnected()
	jobs := append(s.resendOutOfOrderTasksLocked(cq), s.sendPendingTasksLocked(cq)...)
	s.mu.Unlock()

	if oldClient != nil {
		s.disconnectFromPool(oldWorkerID)
	}
	s.failMovedCallbacks(movedCallbacks)
	s.runJobs(jobs)
}

// DisconnectActor records that actorID's current worker is gone. If dead
// is true the actor is permanently terminated: its submit queue is
// drained and every held task fails with cause. Otherwise, provided
// numRestarts is newer than the last epoch seen, the actor moves to
// RESTARTING and its queued tasks are preserved for the next incarnation.
func (s *Submitter) DisconnectActor(actorID task.ActorID, numRestarts int64, dead bool, cause task.DeathCause) {
	s.mu.Lock()
	cq := s.mustGet(actorID)

	if !dead {
		if numRestarts <= 0 {
			panic("actorsubmit: DisconnectActor called with num_restarts<=0 and dead=false")
		}
		if numRestarts <= cq.numRestarts {
			s.mu.Unlock()
			return
		}
	}

	oldClient := cq.rpcClient
	oldWorkerID := cq.workerID
	movedCallbacks := cq.moveOutInflightCallbacks()
	cq.rpcClient = nil
	cq.workerID = nil

	var drainedIDs []task.TaskID
	var movedDeathInfo []deathInfoEntry

	if dead {
		cq.state = task.ActorDead
		cq.deathCause = cause
		drainedIDs = cq.submitQueue.ClearAllTasks()
		movedDeathInfo = cq.moveOutDeathInfoTasks()
	} else if cq.state != task.ActorDead {
		cq.state = task.ActorRestarting
		cq.numRestarts = numRestarts
	}
	s.mu.Unlock()

	if oldClient != nil {
		s.disconnectFromPool(oldWorkerID)
	}

	if dead {
		info := errs.InfoFromDeathCause(cause)
		status := errs.Status{Code: errs.CodeAborted, Err: errs.ErrActorDied}
		for _, id := range drainedIDs {
			s.finisher.MarkTaskCanceled(id)
			s.resolver.CancelDependencyResolution(id)
			s.finisher.CompletePendingTask(id, status, info)
		}
		for _, entry := range movedDeathInfo {
			s.finisher.MarkTaskCanceled(entry.spec.TaskID)
			s.resolver.CancelDependencyResolution(entry.spec.TaskID)
			// entry.status is the network-error status that put this task
			// in the grace queue in the first place; only info (the
			// now-confirmed death cause) is replaced, matching the
			// original's death-info completion, which keeps the stashed
			// status and swaps in the resolved error_info.
			s.finisher.CompletePendingTask(entry.spec.TaskID, entry.status, info)
		}
	}

	s.failMovedCallbacks(movedCallbacks)
}

// failMovedCallbacks invokes every moved-out inflight reply callback with
// a transient IOError status, run outside the submitter's lock. The RPC
// actually failed to deliver a reply (the connection that would have
// carried it is gone), so a synthetic network-error reply lets the task
// finisher apply its own retry policy exactly as if the RPC itself had
// failed.
func (s *Submitter) failMovedCallbacks(callbacks map[task.TaskID]func(PushTaskReply)) {
	for _, cb := range callbacks {
		cb(PushTaskReply{Status: errs.NewUnavailable("actor connection reset")})
	}
}
