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

// DependencyResolver resolves whatever a task's arguments depend on
// (typically references to the outputs of earlier tasks) before the
// task is eligible for dispatch; its sequence slot is already reserved
// when resolution starts. Resolution happens off the
// submitter's lock: SubmitTask hands the spec to the resolver and
// returns immediately, and the resolver reports back through the
// callback exactly once, from any goroutine.
type DependencyResolver interface {
	// ResolveDependencies begins resolving spec's arguments. done is
	// called exactly once: with a nil error on success, or a non-nil
	// error if resolution failed permanently.
	ResolveDependencies(ctx context.Context, spec *task.Spec, done func(error))
	// CancelDependencyResolution cancels any outstanding resolution for
	// taskID. A no-op if resolution already completed or was never
	// started; safe to call defensively.
	CancelDependencyResolution(taskID task.TaskID)
}

// TaskFinisher receives the terminal outcome of every task the submitter
// accepted, plus a small number of non-terminal lifecycle notifications.
// CompletePendingTask is the terminal call.
type TaskFinisher interface {
	// CompletePendingTask reports that taskID finished, successfully or
	// not. status.OK() is true on success; otherwise status carries the
	// error kind and info the finisher should surface to the original
	// caller. It is the terminal call for every task the submitter
	// accepts, unless FailOrRetryPendingTask reports that the finisher
	// will retry the task itself. MarkDependencyFailed, and a
	// FailOrRetryPendingTask that declines to retry, are each followed by
	// a CompletePendingTask for the same task.
	CompletePendingTask(taskID task.TaskID, status errs.Status, info errs.ErrorInfo)
	// MarkTaskWaitingForExecution reports that taskID has been handed to
	// the network layer and is now waiting on the remote actor to run
	// it. Called with the submitter's lock released.
	MarkTaskWaitingForExecution(taskID task.TaskID, addr task.Address)
	// MarkDependencyFailed reports that taskID's arguments never
	// resolved, independent of CompletePendingTask (mirrors the original
	// submitter's split between dependency-resolution and RPC-path
	// failures).
	MarkDependencyFailed(taskID task.TaskID, err error)
	// FailOrRetryPendingTask reports a transport-level failure for
	// taskID and asks the finisher whether it will retry the task
	// itself. If it returns false, the submitter either holds the task
	// in its wait-for-death-info grace queue or fails it immediately.
	FailOrRetryPendingTask(taskID task.TaskID, status errs.Status, info errs.ErrorInfo) (willRetry bool)
	// MarkTaskCanceled asks the finisher to mark taskID canceled. It
	// returns true if the task was already terminal (finished or
	// previously cancelled), in which case CancelTask is a no-op.
	MarkTaskCanceled(taskID task.TaskID) (alreadyTerminal bool)
	// IsTaskFinished reports whether taskID has already reached a
	// terminal outcome, used by the cancellation retry loop to know when
	// to stop retrying a CancelTask RPC.
	IsTaskFinished(taskID task.TaskID) bool
}

// PushTaskRequest is the wire-shaped request built from a task.Spec plus
// the actor's current connectivity generation.
type PushTaskRequest struct {
	Spec            *task.Spec
	IntendedWorkerID []byte
	SequenceNumber  uint64
	NumRestarts     uint64
	SkipExecution   bool
}

// PushTaskReply is what an RPCClient reports back for a PushActorTask
// call: either success, or a Status carrying the failure kind.
type PushTaskReply struct {
	Status errs.Status
	// IsApplicationError is true when the RPC transport succeeded but
	// the actor's method body itself raised, as opposed to a transport
	// failure (connection reset, timeout).
	IsApplicationError bool
}

// KillActorRequest asks the actor's process to terminate.
type KillActorRequest struct {
	ActorID   task.ActorID
	ForceKill bool
	NoRestart bool
}

// CancelTaskRequest asks the actor's process to cancel a specific task
// that may already be running or queued there.
type CancelTaskRequest struct {
	TaskID         task.TaskID
	CallerWorkerID []byte
	ForceKill      bool
	Recursive      bool
}

// CancelTaskReply reports whether the remote side actually cancelled the
// task, independent of the RPC transport succeeding.
type CancelTaskReply struct {
	Status            errs.Status
	SchedulingCancelled bool
}

// RPCClient is a live connection to one actor's hosting worker process.
type RPCClient interface {
	// PushActorTask sends req and invokes done exactly once with the
	// reply, from any goroutine, once the RPC completes or fails.
	PushActorTask(ctx context.Context, req PushTaskRequest, done func(PushTaskReply))
	// CancelTask sends a best-effort cancellation for an already-sent
	// task.
	CancelTask(ctx context.Context, req CancelTaskRequest, done func(CancelTaskReply))
	// KillActor asks the remote actor process to terminate.
	KillActor(ctx context.Context, req KillActorRequest) error
	// Close releases any resources held by the client.
	Close() error
}

// RPCClientPool resolves an actor Address to a live RPCClient, dialing
// (or reusing a cached connection) as needed. The pool, not the
// submitter, owns the client's lifetime: GetOrConnect acquires a handle
// and Disconnect returns it, so a pool that multiplexes one connection
// across several actors hosted by the same worker process can refcount
// instead of tearing the connection down under one actor's feet.
type RPCClientPool interface {
	GetOrConnect(ctx context.Context, addr task.Address) (RPCClient, error)
	// Disconnect returns the handle for workerID that a prior
	// GetOrConnect acquired. Safe to call for a worker id the pool has
	// no handle for; that case is a no-op.
	Disconnect(workerID []byte) error
}

// WarnExcessQueueing is called when an actor's ClientQueue crosses its
// next queueing warning threshold, as an injectable alternative (or
// addition) to the submitter's own logger.Warnf line. numQueued is the
// queue depth that triggered the warning.
type WarnExcessQueueing func(actorID task.ActorID, numQueued int64)

// IOExecutor runs callbacks off whatever goroutine invoked the
// submitter's public API, and schedules delayed callbacks for the
// cancellation retry cadence. The default
// implementation (see executor.go) is backed by internal/workerpool.
type IOExecutor interface {
	// Execute runs fn asynchronously, as soon as a worker is available.
	Execute(fn func())
	// ExecuteAfter runs fn asynchronously no sooner than d from now. The
	// returned Cancel function prevents fn from running if it hasn't
	// already started; it is safe to call more than once.
	ExecuteAfter(d time.Duration, fn func()) (cancel func())
}
