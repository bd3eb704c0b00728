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
	"errors"
	"time"

	"github.com/tochemey/actorsubmit/errs"
	"github.com/tochemey/actorsubmit/task"
)

// dispatchJob is a unit of work sendPendingTasksLocked and its helpers
// hand back to the caller instead of running themselves: the caller is
// responsible for calling s.executor.Execute(job) only after releasing
// s.mu. Building the jobs under the lock but running them after
// unlocking is what keeps the "no external calls under lock" invariant
// even when the IOExecutor is configured to run its work synchronously
// (as tests do): were Execute called while this call stack still held
// s.mu, a synchronous executor would deadlock the first time a job tried
// to reacquire the lock.
type dispatchJob func()

// sendPendingTasksLocked pops every task an actor's ClientQueue
// currently has eligible and returns the jobs needed to dispatch them.
// Called under s.mu after any event that could unblock the queue: a
// connect, a dependency resolution, or a kill request being queued.
func (s *Submitter) sendPendingTasksLocked(cq *clientQueue) []dispatchJob {
	if cq.rpcClient == nil {
		if cq.state == task.ActorRestarting && cq.failIfActorUnreachable {
			var jobs []dispatchJob
			for {
				spec, _, ok := cq.submitQueue.PopNextTaskToSend()
				if !ok {
					break
				}
				actorID := cq.actorID
				jobs = append(jobs, func() {
					s.handlePushTaskReply(actorID, spec, PushTaskReply{
						Status: errs.NewUnavailable("actor restarting and fail_if_actor_unreachable is set"),
					})
				})
			}
			return jobs
		}
		return nil
	}

	var jobs []dispatchJob

	if cq.pendingForceKill != nil {
		req := *cq.pendingForceKill
		client := cq.rpcClient
		cq.pendingForceKill = nil
		jobs = append(jobs, func() {
			_ = client.KillActor(context.Background(), req)
		})
	}

	for {
		spec, _, ok := cq.submitQueue.PopNextTaskToSend()
		if !ok {
			break
		}
		jobs = append(jobs, s.pushActorTaskLocked(cq, spec, false))
	}
	return jobs
}

// resendOutOfOrderTasksLocked replays, ahead of any normal dispatch,
// every task the out-of-order queue completed on a prior incarnation but
// which the new incarnation hasn't acknowledged yet. Each replay is sent
// with skip_execution=true so the receiver advances its bookkeeping
// without re-running the method body. Returns no jobs for the sequential
// variant, which never accumulates completed-but-unacked entries.
func (s *Submitter) resendOutOfOrderTasksLocked(cq *clientQueue) []dispatchJob {
	var jobs []dispatchJob
	for _, entry := range cq.submitQueue.PopAllOutOfOrderCompletedTasks() {
		jobs = append(jobs, s.pushActorTaskLocked(cq, entry.Spec, true))
	}
	return jobs
}

// pushActorTaskLocked builds the wire request for spec and the inflight
// callback bookkeeping, both under the lock, and returns the job that
// performs the actual RPC. replay is true only for out-of-order replays
// of an already-completed task; it becomes the request's skip_execution
// bit.
func (s *Submitter) pushActorTaskLocked(cq *clientQueue, spec *task.Spec, replay bool) dispatchJob {
	if len(cq.workerID) == 0 {
		panic("actorsubmit: push with empty worker_id")
	}

	reqSpec := spec.Clone()
	reqSpec.SetSkipExecution(replay)

	req := PushTaskRequest{
		Spec:             reqSpec,
		IntendedWorkerID: cq.workerID,
		SequenceNumber:   cq.submitQueue.GetSequenceNumber(spec),
		NumRestarts:      uint64(cq.numRestarts),
		SkipExecution:    replay,
	}

	client := cq.rpcClient
	addr := cq.address
	actorID := cq.actorID
	taskID := spec.TaskID

	cq.inflightCallbacks[taskID] = func(reply PushTaskReply) {
		s.handlePushTaskReply(actorID, reqSpec, reply)
	}

	depth := int64(cq.submitQueue.Len() + len(cq.inflightCallbacks))
	if depth >= cq.warnThreshold {
		s.logger.Warnf("actor %s: submit queue depth %d crossed warning threshold %d", actorID, depth, cq.warnThreshold)
		s.recordExcessQueueing()
		if s.warnExcessQueueing != nil {
			s.warnExcessQueueing(actorID, depth)
		}
		cq.warnThreshold *= 2
	}

	// The reply wrapper atomically detaches the real callback under the
	// lock before firing it, so a reply that arrives after the entry was
	// already removed by a disconnect is silently ignored.
	wrapper := func(reply PushTaskReply) {
		s.mu.Lock()
		var cb func(PushTaskReply)
		if cq2, ok := s.table[actorID]; ok {
			if found, ok := cq2.inflightCallbacks[taskID]; ok {
				cb = found
				delete(cq2.inflightCallbacks, taskID)
			}
		}
		s.mu.Unlock()
		if cb != nil {
			cb(reply)
		}
	}

	return func() {
		s.finisher.MarkTaskWaitingForExecution(taskID, addr)
		client.PushActorTask(context.Background(), req, wrapper)
	}
}

// runJobs hands every job to the IOExecutor. Callers must have already
// released s.mu.
func (s *Submitter) runJobs(jobs []dispatchJob) {
	for _, job := range jobs {
		s.executor.Execute(job)
	}
}

func (s *Submitter) recordExcessQueueing() {
	if s.metrics != nil {
		s.metrics.RecordExcessQueueing(context.Background())
	}
}

// handlePushTaskReply processes the outcome of one PushActorTask call.
// It runs off the submitter's lock (on an IOExecutor goroutine), taking
// the lock only for the short critical sections that read or update
// per-actor state.
func (s *Submitter) handlePushTaskReply(actorID task.ActorID, spec *task.Spec, reply PushTaskReply) {
	var willRetry bool

	if !spec.SkipExecution() {
		switch {
		case reply.Status.OK():
			s.finisher.CompletePendingTask(spec.TaskID, reply.Status, errs.ErrorInfo{})

		case errors.Is(reply.Status.Err, errs.ErrTaskCancelled):
			s.finisher.CompletePendingTask(spec.TaskID, reply.Status, errs.ErrorInfo{Code: errs.CodeCanceled, Message: "task cancelled by receiver"})

		default:
			s.mu.Lock()
			cq, ok := s.table[actorID]
			var info errs.ErrorInfo
			var isActorDead bool
			if ok {
				isActorDead = cq.state == task.ActorDead
				if isActorDead {
					info = errs.InfoFromDeathCause(cq.deathCause)
				} else {
					info = errs.ErrorInfo{Code: errs.CodeUnavailable, Message: reply.Status.Error()}
				}
			}
			s.mu.Unlock()

			s.resolver.CancelDependencyResolution(spec.TaskID)

			if isActorDead {
				// The cause is already known; there is nothing to wait
				// for and no retry decision worth asking about.
				s.finisher.CompletePendingTask(spec.TaskID, errs.Status{Code: errs.CodeAborted, Err: errs.ErrActorDied}, info)
			} else {
				willRetry = s.finisher.FailOrRetryPendingTask(spec.TaskID, reply.Status, info)

				if !willRetry {
					if s.waitForDeathInfo > 0 && !info.FailImmediately {
						s.mu.Lock()
						if cq, ok := s.table[actorID]; ok {
							cq.waitForDeathInfoTasks = append(cq.waitForDeathInfoTasks, deathInfoEntry{
								deadline: time.Now().Add(s.waitForDeathInfo),
								spec:     spec,
								status:   reply.Status,
							})
						}
						s.mu.Unlock()
					} else {
						s.finisher.CompletePendingTask(spec.TaskID, errs.Status{Code: errs.CodeAborted, Err: errs.ErrActorDied}, errs.ErrorInfo{Code: errs.CodeAborted, Message: "actor died"})
					}
				}
			}
		}
	}

	// A replay (skip_execution) never went through SubmitTask again, so it
	// never incremented curPendingCalls and must not decrement it here
	// either; its ack also must not repopulate completedNotAcked, since
	// that entry was already popped out by resendOutOfOrderTasksLocked and
	// re-inserting it would replay the same task forever on every future
	// reconnect. Only a first-run reply carries any of this bookkeeping.
	if !spec.SkipExecution() {
		s.mu.Lock()
		if cq, ok := s.table[actorID]; ok {
			if !willRetry {
				cq.submitQueue.MarkTaskCompleted(task.SequenceNumber(spec.ActorCounter), spec)
			}
			cq.curPendingCalls--
			s.recordDrain(1)
		}
		s.mu.Unlock()
	}
}
