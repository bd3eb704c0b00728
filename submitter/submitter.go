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

// Package submitter implements the client-side actor task submission
// pipeline: per-actor sequencing, async dependency resolution, RPC
// dispatch and retry, actor lifecycle tracking, backpressure, and
// cancellation/kill operations.
package submitter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/actorsubmit/errs"
	"github.com/tochemey/actorsubmit/log"
	"github.com/tochemey/actorsubmit/submitqueue"
	"github.com/tochemey/actorsubmit/task"
)

// Submitter is the client-side task submission pipeline for one worker
// process's actor references. All exported methods are safe for
// concurrent use.
type Submitter struct {
	mu    sync.Mutex
	table map[task.ActorID]*clientQueue

	resolver DependencyResolver
	finisher TaskFinisher
	pool     RPCClientPool

	executor       IOExecutor
	ownsExecutor   bool
	executorShards int

	logger  log.Logger
	metrics *submitqueue.Metrics

	waitForDeathInfo time.Duration

	// initialWarnThreshold seeds every ClientQueue's warnThreshold.
	// Overridden by WithWarnExcessQueueingThreshold.
	initialWarnThreshold int64
	// warnExcessQueueing is called alongside the logger warning whenever
	// a ClientQueue crosses its warning threshold. Nil disables it.
	warnExcessQueueing WarnExcessQueueing

	// cancelRetryScheduled tracks tasks with a pending cancel-RPC retry
	// timer, so a racing second CancelTask call can't schedule a
	// duplicate timer for the same task.
	cancelRetryScheduled mapset.Set[task.TaskID]
}

// New builds a Submitter around its three required external
// collaborators. Additional behavior is configured via Option.
func New(resolver DependencyResolver, finisher TaskFinisher, pool RPCClientPool, opts ...Option) *Submitter {
	s := &Submitter{
		table:                make(map[task.ActorID]*clientQueue),
		resolver:             resolver,
		finisher:             finisher,
		pool:                 pool,
		logger:               log.DiscardLogger,
		executorShards:       4,
		ownsExecutor:         true,
		initialWarnThreshold: initialWarnThreshold,
		cancelRetryScheduled: mapset.NewSet[task.TaskID](),
	}
	for _, opt := range opts {
		opt.Apply(s)
	}
	if s.executor == nil {
		s.executor = NewPoolExecutor(s.executorShards)
		s.ownsExecutor = true
	}
	return s
}

// Close releases resources owned by the submitter, including the default
// IOExecutor if one wasn't supplied via WithIOExecutor.
func (s *Submitter) Close() {
	if s.ownsExecutor {
		if pe, ok := s.executor.(*poolExecutor); ok {
			pe.Stop()
		}
	}
}

// AddActorQueueIfNotExists registers actorID with the submitter,
// creating its ClientQueue on first call. Repeated calls are idempotent
// and keep first-write-wins semantics: later calls with different
// parameters never silently reconfigure an existing queue.
func (s *Submitter) AddActorQueueIfNotExists(actorID task.ActorID, maxPendingCalls int64, executeOutOfOrder, failIfActorUnreachable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.table[actorID]; exists {
		return
	}
	s.table[actorID] = newClientQueue(actorID, maxPendingCalls, executeOutOfOrder, failIfActorUnreachable, s.initialWarnThreshold)
	s.logger.Debugf("actor %s registered: max_pending_calls=%d out_of_order=%v", actorID, maxPendingCalls, executeOutOfOrder)
}

// IsActorAlive reports whether actorID's ClientQueue currently holds a
// live rpc_client.
func (s *Submitter) IsActorAlive(actorID task.ActorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cq, ok := s.table[actorID]
	return ok && cq.rpcClient != nil
}

// PendingTasksFull reports whether actorID has reached its advisory
// max_pending_calls limit. Callers are expected to stop submitting when
// true; the submitter itself never enforces it.
func (s *Submitter) PendingTasksFull(actorID task.ActorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cq, ok := s.table[actorID]
	return ok && cq.pendingCallsFull()
}

// NumPendingTasks returns the number of tasks currently either queued or
// in flight for actorID.
func (s *Submitter) NumPendingTasks(actorID task.ActorID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	cq, ok := s.table[actorID]
	if !ok {
		return 0
	}
	return cq.curPendingCalls
}

// CheckActorExists reports whether AddActorQueueIfNotExists has ever been
// called for actorID.
func (s *Submitter) CheckActorExists(actorID task.ActorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.table[actorID]
	return ok
}

// DebugString renders a snapshot of every tracked actor's state, for
// diagnostics.
func (s *Submitter) DebugString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for id, cq := range s.table {
		fmt.Fprintf(&b, "actor=%s state=%s num_restarts=%d pending=%d/%d inflight=%d\n",
			id, cq.state, cq.numRestarts, cq.curPendingCalls, cq.maxPendingCalls, len(cq.inflightCallbacks))
	}
	return b.String()
}

// mustGet looks up actorID's ClientQueue, panicking if it was never
// registered. Looking up an actor id that was never added is one of the
// documented fatal conditions (section 7): it signals a caller bug, not
// a recoverable runtime condition.
func (s *Submitter) mustGet(actorID task.ActorID) *clientQueue {
	cq, ok := s.table[actorID]
	if !ok {
		panic(fmt.Sprintf("actorsubmit: actor %s was never registered via AddActorQueueIfNotExists", actorID))
	}
	return cq
}

// SubmitTask enqueues spec for dispatch and always returns OK
// synchronously; any eventual failure is delivered asynchronously
// through the task finisher.
func (s *Submitter) SubmitTask(spec *task.Spec) errs.Status {
	s.mu.Lock()
	cq := s.mustGet(spec.ActorID)

	if cq.state == task.ActorDead {
		cause := cq.deathCause
		s.mu.Unlock()
		s.finisher.MarkTaskCanceled(spec.TaskID)
		s.finisher.CompletePendingTask(spec.TaskID, errs.Status{Code: errs.CodeAborted, Err: errs.ErrActorDied}, errs.InfoFromDeathCause(cause))
		return errs.OKStatus
	}

	seq := task.SequenceNumber(spec.ActorCounter)
	if !cq.submitQueue.Emplace(seq, spec) {
		s.mu.Unlock()
		panic(fmt.Sprintf("actorsubmit: duplicate sequence number %d for actor %s", seq, spec.ActorID))
	}
	cq.curPendingCalls++
	s.recordEmplace()
	s.mu.Unlock()

	s.executor.Execute(func() {
		s.resolver.ResolveDependencies(context.Background(), spec, func(err error) {
			s.onDependencyResolved(spec, seq, err)
		})
	})

	return errs.OKStatus
}

func (s *Submitter) onDependencyResolved(spec *task.Spec, seq task.SequenceNumber, err error) {
	s.mu.Lock()
	cq, ok := s.table[spec.ActorID]
	if !ok || !cq.submitQueue.Contains(seq) {
		// Already drained by a disconnect/dead transition or cancelled.
		s.mu.Unlock()
		return
	}

	if err != nil {
		cq.submitQueue.MarkDependencyFailed(seq)
		cq.curPendingCalls--
		s.recordDrain(1)
		s.mu.Unlock()
		s.finisher.MarkDependencyFailed(spec.TaskID, err)
		s.finisher.CompletePendingTask(spec.TaskID, errs.Status{Code: errs.CodeFailedPrecondition, Err: fmt.Errorf("%w: %v", errs.ErrDependencyResolutionFailed, err)}, errs.ErrorInfo{Code: errs.CodeFailedPrecondition, Message: err.Error()})
		return
	}

	cq.submitQueue.MarkDependencyResolved(seq)
	jobs := s.sendPendingTasksLocked(cq)
	s.mu.Unlock()

	s.runJobs(jobs)
}

// KillActor records a pending kill request on actorID's ClientQueue and
// re-triggers dispatch so it goes out on the next SendPendingTasks pass.
// A later, more forceful request upgrades an existing pending one: the
// merge rule only ever escalates toward force_kill=true, never away from
// it, and noRestart is OR'd in on each such upgrade. A non-forceful
// request arriving while one is already pending is dropped.
func (s *Submitter) KillActor(actorID task.ActorID, forceKill, noRestart bool) {
	s.mu.Lock()
	cq := s.mustGet(actorID)

	if cq.pendingForceKill == nil {
		cq.pendingForceKill = &KillActorRequest{ActorID: actorID, ForceKill: forceKill, NoRestart: noRestart}
	} else if forceKill {
		cq.pendingForceKill.ForceKill = true
		cq.pendingForceKill.NoRestart = cq.pendingForceKill.NoRestart || noRestart
	}

	jobs := s.sendPendingTasksLocked(cq)
	s.mu.Unlock()

	s.runJobs(jobs)
}

// disconnectFromPool returns a worker's connection handle to the pool.
// Called outside s.mu, since Disconnect is an external collaborator call.
// A nil or empty workerID (never yet connected) is a no-op.
func (s *Submitter) disconnectFromPool(workerID []byte) {
	if len(workerID) == 0 {
		return
	}
	if err := s.pool.Disconnect(workerID); err != nil {
		s.logger.Warnf("disconnect worker %x: %v", workerID, err)
	}
}

func (s *Submitter) recordEmplace() {
	if s.metrics != nil {
		s.metrics.RecordEmplace(context.Background())
	}
}

func (s *Submitter) recordDrain(n int) {
	if s.metrics != nil {
		s.metrics.RecordDrain(context.Background(), n)
	}
}
