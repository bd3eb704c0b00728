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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tochemey/actorsubmit/errs"
	"github.com/tochemey/actorsubmit/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newSpec(actorID task.ActorID, seq task.SequenceNumber, method string) *task.Spec {
	return task.NewSpec(actorID, seq, method, wrapperspb.String(method))
}

func testAddr(port int) task.Address {
	return task.Address{IP: "127.0.0.1", Port: port, WorkerID: []byte("worker"), NodeID: "node-1"}
}

// TestHappyPath covers scenario 1: connect, submit two tasks in order,
// expect both pushed in sequence order and both completed OK.
func TestHappyPath(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, false, false)
	s.ConnectActor(actorID, testAddr(9000), 1)

	spec1 := newSpec(actorID, 0, "Increment")
	spec2 := newSpec(actorID, 1, "Increment")

	require.True(t, s.SubmitTask(spec1).OK())
	require.True(t, s.SubmitTask(spec2).OK())

	client := pool.clientFor(testAddr(9000))
	require.Equal(t, []task.TaskID{spec1.TaskID, spec2.TaskID}, client.pushedIDs())

	c1, ok := finisher.completedFor(spec1.TaskID)
	require.True(t, ok)
	require.True(t, c1.Status.OK())

	c2, ok := finisher.completedFor(spec2.TaskID)
	require.True(t, ok)
	require.True(t, c2.Status.OK())
}

// TestOutOfOrderResolution covers scenario 2: with an out-of-order queue,
// a later-numbered task whose dependencies resolve first is dispatched
// ahead of an earlier-numbered task still waiting on its dependencies.
func TestOutOfOrderResolution(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, true, false)
	s.ConnectActor(actorID, testAddr(9001), 1)

	spec0 := newSpec(actorID, 0, "Slow")
	spec1 := newSpec(actorID, 1, "Fast")

	// Since fakeResolver resolves synchronously, simulate spec0's "still
	// pending" state by submitting spec1 first — it resolves and
	// dispatches immediately, independent of spec0's sequence slot.
	require.True(t, s.SubmitTask(spec1).OK())
	require.True(t, s.SubmitTask(spec0).OK())

	client := pool.clientFor(testAddr(9001))
	pushed := client.pushedIDs()
	require.Len(t, pushed, 2)
	require.Equal(t, spec1.TaskID, pushed[0])
	require.Equal(t, spec0.TaskID, pushed[1])
}

// TestRestartReplayOutOfOrder covers scenario 3: a completed-but-unacked
// out-of-order task is replayed with skip_execution=true as soon as the
// actor reconnects under a new incarnation.
func TestRestartReplayOutOfOrder(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, true, false)
	s.ConnectActor(actorID, testAddr(9002), 1)

	spec := newSpec(actorID, 0, "Once")
	require.True(t, s.SubmitTask(spec).OK())

	oldClient := pool.clientFor(testAddr(9002))
	require.Len(t, oldClient.pushedIDs(), 1)

	// Simulate a restart: the actor moves to a new address under a newer
	// epoch before the old push's reply is observed as acked elsewhere.
	// The out-of-order queue retains it in completedNotAcked until the
	// new incarnation connects.
	s.ConnectActor(actorID, testAddr(9003), 2)

	newClient := pool.clientFor(testAddr(9003))
	replayed := newClient.pushedIDs()
	require.Contains(t, replayed, spec.TaskID)
}

// TestPermanentDeathOOMImmediate covers scenario 4: a task parked in the
// grace queue after a network failure is completed as soon as the actor
// is declared dead with an OOM cause that has fail_immediately set,
// carrying that death cause, without waiting for the grace deadline.
func TestPermanentDeathOOMImmediate(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}), WithWaitForDeathInfo(time.Minute))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, false, false)
	s.ConnectActor(actorID, testAddr(9004), 1)

	spec := newSpec(actorID, 0, "DoomedCall")
	// Script a network failure so the push lands in the wait-for-death-
	// info grace queue instead of completing OK before death is known.
	pool.clientFor(testAddr(9004)).scriptReply(spec.TaskID, PushTaskReply{Status: errs.NewUnavailable("connection reset")})
	require.True(t, s.SubmitTask(spec).OK())

	_, done := finisher.completedFor(spec.TaskID)
	require.False(t, done, "task should be parked in the grace queue pending death confirmation")

	s.DisconnectActor(actorID, 0, true, task.DeathCause{
		Kind:    task.DeathCauseActorDied,
		Message: "worker OOM killed",
		OOM:     &task.OOMContext{FailImmediately: true, MemoryUsedBytes: 1 << 30},
	})

	completed, ok := finisher.completedFor(spec.TaskID)
	require.True(t, ok)
	require.False(t, completed.Status.OK())
	require.True(t, completed.Info.FailImmediately)
}

// TestGracePeriodExpiry covers scenario 5: a network error on a task
// whose actor isn't yet known to be dead holds it in the grace queue,
// and CheckTimeoutTasks only fails it once the grace deadline has
// actually passed.
func TestGracePeriodExpiry(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	const grace = 30 * time.Millisecond
	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}), WithWaitForDeathInfo(grace))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, false, false)
	s.ConnectActor(actorID, testAddr(9005), 1)

	client := pool.clientFor(testAddr(9005))

	spec := newSpec(actorID, 0, "Flaky")
	client.scriptReply(spec.TaskID, PushTaskReply{Status: errs.NewUnavailable("connection reset")})
	require.True(t, s.SubmitTask(spec).OK())

	_, done := finisher.completedFor(spec.TaskID)
	require.False(t, done, "task should be parked in the grace queue, not yet completed")

	s.CheckTimeoutTasks()
	_, done = finisher.completedFor(spec.TaskID)
	require.False(t, done, "grace period hasn't elapsed yet")

	time.Sleep(3 * grace)
	s.CheckTimeoutTasks()

	completed, ok := finisher.completedFor(spec.TaskID)
	require.True(t, ok)
	require.False(t, completed.Status.OK())
}

// TestCancelQueuedTask covers scenario 6's first half: cancelling a task
// that is still queued (never dispatched) completes it synchronously with
// CodeCanceled and never dispatches it.
func TestCancelQueuedTask(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, false, false)
	// Deliberately never call ConnectActor: the task stays queued forever
	// since there is no rpc_client to dispatch it to.
	spec := newSpec(actorID, 0, "NeverRuns")

	resolver.failNext(spec.TaskID, nil)
	require.True(t, s.SubmitTask(spec).OK())

	status := s.CancelTask(spec, false)
	require.True(t, status.OK())

	completed, ok := finisher.completedFor(spec.TaskID)
	require.True(t, ok)
	require.False(t, completed.Status.OK())
	require.Equal(t, errs.CodeCanceled, completed.Status.Code)
}

// TestCancelSentTaskRetries covers scenario 6's second half: cancelling a
// task already dispatched sends a best-effort CancelTask RPC, and if the
// first reply says scheduling wasn't cancelled, a retry fires after the
// subsequent-retry interval.
func TestCancelSentTaskRetries(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()
	clock := newManualExecutor()

	s := New(resolver, finisher, pool, WithIOExecutor(clock))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, false, false)
	s.ConnectActor(actorID, testAddr(9006), 1)

	spec := newSpec(actorID, 0, "LongRunning")
	client := pool.clientFor(testAddr(9006))

	// A network failure the finisher decides to retry leaves the task
	// sent but unfinished, so CancelTask has to chase it with an RPC.
	finisher.willRetry = true
	client.scriptReply(spec.TaskID, PushTaskReply{Status: errs.NewUnavailable("connection reset")})
	client.cancelReply = CancelTaskReply{Status: errs.OKStatus, SchedulingCancelled: false}

	require.True(t, s.SubmitTask(spec).OK())
	require.Len(t, client.pushedIDs(), 1)

	status := s.CancelTask(spec, false)
	require.True(t, status.OK())
	require.Len(t, client.cancelCalls, 1)
	require.Equal(t, spec.TaskID, client.cancelCalls[0].TaskID)

	clock.advance(cancelSubsequentRetryAfter / 2)
	require.Len(t, client.cancelCalls, 1, "no retry before the subsequent-retry interval")

	clock.advance(cancelSubsequentRetryAfter / 2)
	require.Len(t, client.cancelCalls, 2)
	require.Equal(t, spec.TaskID, client.cancelCalls[1].TaskID)
}

// TestFailIfActorUnreachable covers scenario 7: when an actor is
// RESTARTING and fail_if_actor_unreachable is set, queued tasks fail
// immediately instead of waiting for reconnection.
func TestFailIfActorUnreachable(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, false, true)
	s.ConnectActor(actorID, testAddr(9007), 1)

	// Force the actor into RESTARTING without going DEAD.
	s.DisconnectActor(actorID, 2, false, task.DeathCause{})

	spec := newSpec(actorID, 0, "WontWait")
	require.True(t, s.SubmitTask(spec).OK())

	completed, ok := finisher.completedFor(spec.TaskID)
	require.True(t, ok)
	require.False(t, completed.Status.OK())
}

// TestConnectActorFailedDialResetsClientQueue covers the case where the
// pool's dial retry exhausts and GetOrConnect returns an error: the
// ClientQueue must end up with no live client so future dispatch treats
// the actor as unreachable instead of pushing through a dead connection,
// and so a later ConnectActor to the same address isn't swallowed by the
// "already connected to this endpoint" early return.
func TestConnectActorFailedDialResetsClientQueue(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 0, false, false)

	addr := testAddr(9100)
	pool.failNextConnect(errors.New("dial exhausted retries"))
	s.ConnectActor(actorID, addr, 1)

	require.False(t, s.IsActorAlive(actorID))
	require.Nil(t, s.table[actorID].rpcClient)
	require.Nil(t, s.table[actorID].workerID)

	// A submit now should not be pushed anywhere: sendPendingTasksLocked
	// must see rpcClient == nil rather than a stale live connection, so the
	// task just sits queued instead of completing.
	spec := newSpec(actorID, 0, "Increment")
	require.True(t, s.SubmitTask(spec).OK())
	_, ok := finisher.completedFor(spec.TaskID)
	require.False(t, ok)

	// Reconnecting to the very same address must not be swallowed by the
	// SameEndpoint early-return now that rpcClient is nil.
	s.ConnectActor(actorID, addr, 1)
	require.True(t, s.IsActorAlive(actorID))
	require.NotNil(t, s.table[actorID].rpcClient)

	completed, ok := finisher.completedFor(spec.TaskID)
	require.True(t, ok)
	require.True(t, completed.Status.OK())
}

// TestAddActorQueueIfNotExistsIdempotent verifies first-write-wins
// semantics: a second call with different parameters never reconfigures
// the existing queue.
func TestAddActorQueueIfNotExistsIdempotent(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}))
	defer s.Close()

	actorID := task.NewActorID()
	s.AddActorQueueIfNotExists(actorID, 5, false, false)
	s.AddActorQueueIfNotExists(actorID, 100, true, true)

	require.Equal(t, int64(5), s.table[actorID].maxPendingCalls)
	require.False(t, s.table[actorID].executeOutOfOrder)
}

// TestMustGetPanicsOnUnknownActor documents the fatal-condition contract
// of section 7: submitting for an actor id that was never registered is
// a programming error, not a recoverable failure.
func TestMustGetPanicsOnUnknownActor(t *testing.T) {
	resolver := newFakeResolver()
	finisher := newFakeFinisher()
	pool := newFakeRPCPool()

	s := New(resolver, finisher, pool, WithIOExecutor(inlineExecutor{}))
	defer s.Close()

	require.Panics(t, func() {
		s.SubmitTask(newSpec(task.NewActorID(), 0, "Ghost"))
	})
}
