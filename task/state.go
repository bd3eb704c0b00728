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

// ActorState is the lifecycle state of an actor as observed by the
// submitter. The submitter never sees PendingCreation transition anywhere
// except via the first ConnectActor/DisconnectActor call for that actor.
type ActorState int32

const (
	// ActorPendingCreation is the state a ClientQueue starts in when it is
	// created by AddActorQueueIfNotExists, before the first connectivity
	// event for that actor arrives.
	ActorPendingCreation ActorState = iota
	// ActorAlive means the actor has a live rpc client.
	ActorAlive
	// ActorRestarting means the actor process died but may come back; tasks
	// stay queued rather than being failed.
	ActorRestarting
	// ActorDead is terminal: no further state transition is possible.
	ActorDead
)

// String renders the state for logs and DebugString.
func (s ActorState) String() string {
	switch s {
	case ActorPendingCreation:
		return "PENDING_CREATION"
	case ActorAlive:
		return "ALIVE"
	case ActorRestarting:
		return "RESTARTING"
	case ActorDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}
