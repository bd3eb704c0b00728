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

// Package task defines the data types shared by the actor task submitter:
// actor and task identities, wire addresses, actor lifecycle state, and
// death causes. None of these types know how to submit or dispatch a task;
// they are pure data, consumed by packages submitqueue and submitter.
package task

import "github.com/google/uuid"

// ActorID uniquely identifies an actor for the lifetime of a submitter's
// reference to it. It is opaque outside this package: callers obtain one
// either from NewActorID or by round-tripping the string returned by
// String.
type ActorID struct {
	value uuid.UUID
}

// NewActorID generates a fresh, random ActorID.
func NewActorID() ActorID {
	return ActorID{value: uuid.New()}
}

// ActorIDFromString parses a previously rendered ActorID.
func ActorIDFromString(s string) (ActorID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID{value: id}, nil
}

// String renders the ActorID for logging and map keys.
func (id ActorID) String() string {
	return id.value.String()
}

// IsZero reports whether the ActorID is the zero value.
func (id ActorID) IsZero() bool {
	return id.value == uuid.Nil
}

// TaskID uniquely identifies a single task invocation.
type TaskID struct {
	value uuid.UUID
}

// NewTaskID generates a fresh, random TaskID.
func NewTaskID() TaskID {
	return TaskID{value: uuid.New()}
}

// TaskIDFromString parses a previously rendered TaskID.
func TaskIDFromString(s string) (TaskID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, err
	}
	return TaskID{value: id}, nil
}

// String renders the TaskID for logging and map keys.
func (id TaskID) String() string {
	return id.value.String()
}

// IsZero reports whether the TaskID is the zero value.
func (id TaskID) IsZero() bool {
	return id.value == uuid.Nil
}

// SequenceNumber is the per-actor monotonic ordinal assigned by the caller
// to a task (the task's "actor_counter"). The submitter never assigns
// these; it only reads them to decide dispatch order.
type SequenceNumber = uint64
