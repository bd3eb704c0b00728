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
	"time"

	"github.com/tochemey/actorsubmit/errs"
	"github.com/tochemey/actorsubmit/task"
)

const (
	cancelFirstRetryAfter    = 1 * time.Second
	cancelSubsequentRetryAfter = 2 * time.Second
)

// CancelTask asks that spec never run, or stop running. A task still
// queued (dependencies unresolved or waiting for dispatch) is cancelled
// synchronously and finally. A task already sent to the actor gets a
// best-effort, retrying CancelTask RPC with no synchronous guarantee.
// Force-kill through this path is unsupported; use KillActor for
// unconditional actor termination.
func (s *Submitter) CancelTask(spec *task.Spec, recursive bool) errs.Status {
	if alreadyTerminal := s.finisher.MarkTaskCanceled(spec.TaskID); alreadyTerminal {
		return errs.OKStatus
	}

	s.mu.Lock()
	cq, ok := s.table[spec.ActorID]
	if !ok || cq.state == task.ActorDead {
		s.mu.Unlock()
		return errs.OKStatus
	}

	seq := task.SequenceNumber(spec.ActorCounter)
	_, resolved, found := cq.submitQueue.Get(seq)
	taskQueued := found
	if found {
		cq.submitQueue.MarkTaskCanceled(seq)
		// The task is terminal from the caller's perspective the moment
		// it's cancelled, even though its entry lingers in the queue
		// (marked canceled): the sequential variant drops it when dispatch
		// order reaches it, and the out-of-order variant keeps it until
		// ClearAllTasks.
		cq.curPendingCalls--
		s.recordDrain(1)
	}
	s.mu.Unlock()

	println("DEBUG taskQueued=", taskQueued, "found=", found)
	if taskQueued {
		if !resolved {
			s.resolver.CancelDependencyResolution(spec.TaskID)
		}
		s.finisher.CompletePendingTask(spec.TaskID, errs.NewSchedulingCancelled("task cancelled while queued"), errs.ErrorInfo{Code: errs.CodeCanceled})
		return errs.OKStatus
	}

	// The task has already been popped for dispatch: it is either
	// in-flight or the reply already arrived and released its entry. In
	// either case, chase it with a best-effort cancel.
	s.mu.Lock()
	cq, ok = s.table[spec.ActorID]
	var client RPCClient
	if ok {
		client = cq.rpcClient
	}
	s.mu.Unlock()

	if client == nil {
		println("DEBUG client nil, ok=", ok)
		s.scheduleCancelRetry(spec, recursive, cancelFirstRetryAfter)
		return errs.OKStatus
	}

	s.sendCancelRPC(spec, recursive, client)
	return errs.OKStatus
}

func (s *Submitter) sendCancelRPC(spec *task.Spec, recursive bool, client RPCClient) {
	req := CancelTaskRequest{
		TaskID:         spec.TaskID,
		CallerWorkerID: spec.CallerWorkerID,
		ForceKill:      false,
		Recursive:      recursive,
	}
	client.CancelTask(context.Background(), req, func(reply CancelTaskReply) {
		if s.finisher.IsTaskFinished(spec.TaskID) {
			return
		}
		if !reply.SchedulingCancelled {
			s.scheduleCancelRetry(spec, recursive, cancelSubsequentRetryAfter)
		}
	})
}

// scheduleCancelRetry arranges for the cancel RPC to be retried after d,
// deduplicating against a retry already pending for the same task so a
// racing second CancelTask call can't pile up parallel retry timers.
func (s *Submitter) scheduleCancelRetry(spec *task.Spec, recursive bool, d time.Duration) {
	if !s.cancelRetryScheduled.Add(spec.TaskID) {
		return
	}
	s.executor.ExecuteAfter(d, func() {
		s.cancelRetryScheduled.Remove(spec.TaskID)
		if s.finisher.IsTaskFinished(spec.TaskID) {
			return
		}

		s.mu.Lock()
		cq, ok := s.table[spec.ActorID]
		var client RPCClient
		if ok {
			client = cq.rpcClient
		}
		s.mu.Unlock()

		if client == nil {
			s.scheduleCancelRetry(spec, recursive, cancelSubsequentRetryAfter)
			return
		}
		s.sendCancelRPC(spec, recursive, client)
	})
}
