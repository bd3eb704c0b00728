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

package task

import (
	"go.uber.org/atomic"
	"google.golang.org/protobuf/proto"
)

// Spec is the immutable description of a single task invocation targeted
// at an actor. Every field is set once by the caller before the spec is
// handed to the submitter, with one exception: SkipExecution, which the
// dispatch path flips on a cloned copy when replaying a task that already
// completed on a prior incarnation of the actor (see submitqueue's
// out-of-order variant).
type Spec struct {
	TaskID       TaskID
	ActorID      ActorID
	ActorCounter SequenceNumber
	CallerID     string
	// CallerWorkerID identifies the worker that submitted this task, used
	// to populate CancelTaskRequest.CallerWorkerID.
	CallerWorkerID []byte
	MethodName     string
	// Args is the method argument payload. It travels as an opaque
	// proto.Message so the submitter never needs to know concrete
	// application message types.
	Args proto.Message

	skipExecution atomic.Bool
}

// NewSpec builds a Spec with a fresh TaskID. The caller is responsible for
// assigning ActorCounter; the submitter never invents sequence numbers.
func NewSpec(actorID ActorID, actorCounter SequenceNumber, methodName string, args proto.Message) *Spec {
	return &Spec{
		TaskID:       NewTaskID(),
		ActorID:      actorID,
		ActorCounter: actorCounter,
		MethodName:   methodName,
		Args:         args,
	}
}

// SkipExecution reports whether this spec is a replayed completion: the
// receiver should advance its sequence counter without re-running the
// method body.
func (s *Spec) SkipExecution() bool {
	return s.skipExecution.Load()
}

// SetSkipExecution flips the replay bit. Only the dispatch path calls
// this, and only on a Clone of the original spec (see Clone).
func (s *Spec) SetSkipExecution(v bool) {
	s.skipExecution.Store(v)
}

// Clone returns a deep copy of the spec, including a proto.Clone of Args.
// PushActorTask clones before mutating SkipExecution or handing the spec
// to the wire layer, so that a caller-owned original survives an in-flight
// RPC's failure and can still be read by the task finisher.
func (s *Spec) Clone() *Spec {
	clone := &Spec{
		TaskID:         s.TaskID,
		ActorID:        s.ActorID,
		ActorCounter:   s.ActorCounter,
		CallerID:       s.CallerID,
		CallerWorkerID: append([]byte(nil), s.CallerWorkerID...),
		MethodName:     s.MethodName,
	}
	if s.Args != nil {
		clone.Args = proto.Clone(s.Args)
	}
	clone.skipExecution.Store(s.skipExecution.Load())
	return clone
}
