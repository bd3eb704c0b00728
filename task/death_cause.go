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

// OOMContext carries the extra detail attached to a DeathCause when an
// actor was killed by the out-of-memory killer.
type OOMContext struct {
	// FailImmediately, when set, tells the submitter to skip the
	// wait-for-death-info grace period entirely and fail affected tasks
	// as soon as the cause is known.
	FailImmediately bool
	// MemoryUsedBytes is best-effort diagnostic context surfaced to the
	// task finisher's error info.
	MemoryUsedBytes uint64
}

// DeathCauseKind classifies why an actor died, independent of the
// OOM-specific detail.
type DeathCauseKind int32

const (
	// DeathCauseUnspecified means the actor is not (yet) known to be dead;
	// zero value of DeathCause.
	DeathCauseUnspecified DeathCauseKind = iota
	// DeathCauseActorDied covers ordinary actor process termination,
	// including OOM (see OOM field).
	DeathCauseActorDied
	// DeathCauseActorUnschedulable covers permanent scheduling failure
	// (e.g. the actor's creation task itself failed).
	DeathCauseActorUnschedulable
	// DeathCauseOwnerDied means the actor's owning process is gone.
	DeathCauseOwnerDied
)

// DeathCause is the structured reason recorded on a ClientQueue when its
// actor transitions to Dead.
type DeathCause struct {
	Kind    DeathCauseKind
	Message string
	OOM     *OOMContext
}

// FailImmediately reports whether tasks affected by this DeathCause should
// bypass the wait-for-death-info grace period.
func (d DeathCause) FailImmediately() bool {
	return d.OOM != nil && d.OOM.FailImmediately
}
