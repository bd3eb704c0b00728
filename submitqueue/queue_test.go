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

package submitqueue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tochemey/actorsubmit/submitqueue"
	"github.com/tochemey/actorsubmit/task"
)

func spec(actorCounter task.SequenceNumber) *task.Spec {
	return task.NewSpec(task.NewActorID(), actorCounter, "DoWork", nil)
}

func TestSequentialQueue_HappyPath(t *testing.T) {
	q := submitqueue.NewSequential()

	t1 := spec(0)
	t2 := spec(1)
	require.True(t, q.Emplace(0, t1))
	require.True(t, q.Emplace(1, t2))
	require.False(t, q.Emplace(0, t1), "duplicate sequence must be rejected")

	// Nothing eligible until dependencies resolve.
	_, _, ok := q.PopNextTaskToSend()
	require.False(t, ok)

	q.MarkDependencyResolved(0)
	q.MarkDependencyResolved(1)

	got, skip, ok := q.PopNextTaskToSend()
	require.True(t, ok)
	require.False(t, skip)
	require.Equal(t, t1.TaskID, got.TaskID)

	got, _, ok = q.PopNextTaskToSend()
	require.True(t, ok)
	require.Equal(t, t2.TaskID, got.TaskID)

	_, _, ok = q.PopNextTaskToSend()
	require.False(t, ok)
}

func TestSequentialQueue_OutOfOrderResolution(t *testing.T) {
	q := submitqueue.NewSequential()
	t1 := spec(0)
	t2 := spec(1)
	require.True(t, q.Emplace(0, t1))
	require.True(t, q.Emplace(1, t2))

	// T2 resolves first: still not eligible, T1 must go first.
	q.MarkDependencyResolved(1)
	_, _, ok := q.PopNextTaskToSend()
	require.False(t, ok)

	q.MarkDependencyResolved(0)
	got, _, ok := q.PopNextTaskToSend()
	require.True(t, ok)
	require.Equal(t, t1.TaskID, got.TaskID)

	got, _, ok = q.PopNextTaskToSend()
	require.True(t, ok)
	require.Equal(t, t2.TaskID, got.TaskID)
}

func TestSequentialQueue_CancelPreventsDispatch(t *testing.T) {
	q := submitqueue.NewSequential()
	t1 := spec(0)
	require.True(t, q.Emplace(0, t1))
	q.MarkDependencyResolved(0)
	q.MarkTaskCanceled(0)

	_, _, ok := q.PopNextTaskToSend()
	require.False(t, ok)
}

func TestSequentialQueue_ClearAllTasks(t *testing.T) {
	q := submitqueue.NewSequential()
	t1, t2 := spec(0), spec(1)
	q.Emplace(0, t1)
	q.Emplace(1, t2)

	ids := q.ClearAllTasks()
	require.Len(t, ids, 2)
	require.Equal(t, 0, q.Len())
}

func TestOutOfOrderQueue_EligibleAsSoonAsResolved(t *testing.T) {
	q := submitqueue.NewOutOfOrder()
	t1 := spec(0)
	t2 := spec(1)
	require.True(t, q.Emplace(0, t1))
	require.True(t, q.Emplace(1, t2))

	// T2 resolves first and, unlike the sequential variant, is eligible
	// immediately.
	q.MarkDependencyResolved(1)
	got, skip, ok := q.PopNextTaskToSend()
	require.True(t, ok)
	require.False(t, skip)
	require.Equal(t, t2.TaskID, got.TaskID)
}

func TestOutOfOrderQueue_RestartReplay(t *testing.T) {
	q := submitqueue.NewOutOfOrder()
	t1, t2, t3 := spec(0), spec(1), spec(2)
	q.Emplace(0, t1)
	q.Emplace(1, t2)
	q.Emplace(2, t3)

	// T2 completes on incarnation 1.
	q.MarkDependencyResolved(1)
	got, _, ok := q.PopNextTaskToSend()
	require.True(t, ok)
	require.Equal(t, t2.TaskID, got.TaskID)
	q.MarkTaskCompleted(1, t2)

	// Disconnect/connect cycle: nothing to clear for out-of-order, but a
	// new incarnation should see T2 queued for replay.
	q.OnClientConnected()

	replay := q.PopAllOutOfOrderCompletedTasks()
	require.Len(t, replay, 1)
	require.Equal(t, task.SequenceNumber(1), replay[0].Sequence)
	require.Equal(t, t2.TaskID, replay[0].Spec.TaskID)

	// Draining again returns nothing: already acknowledged.
	require.Empty(t, q.PopAllOutOfOrderCompletedTasks())

	// T1 and T3 remain pending, ready for normal dispatch once resolved.
	q.MarkDependencyResolved(0)
	q.MarkDependencyResolved(2)
	require.Equal(t, 2, q.Len())
}
