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

// Package errs collects the error kinds the submitter can deliver to a
// TaskFinisher, plus the plumbing to carry a task.DeathCause through to a
// wire-shaped status. Codes are borrowed from connectrpc.com/connect
// rather than invented from scratch, since the submitter's failures are
// all "this looked like an RPC and it didn't come back clean" failures of
// exactly the kind connect.Code was designed to classify.
package errs

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/tochemey/actorsubmit/task"
)

// Code re-exports connect.Code so callers of this package never need to
// import connectrpc.com/connect directly just to compare error kinds.
type Code = connect.Code

const (
	// CodeUnavailable is the transient IOError kind: "actor temporarily
	// unavailable". The task finisher decides whether to retry.
	CodeUnavailable = connect.CodeUnavailable
	// CodeCanceled marks a task that was cancelled before or during
	// dispatch.
	CodeCanceled = connect.CodeCanceled
	// CodeAborted marks a task that failed because its actor is
	// permanently dead.
	CodeAborted = connect.CodeAborted
	// CodeFailedPrecondition marks a task whose dependency resolution
	// failed.
	CodeFailedPrecondition = connect.CodeFailedPrecondition
)

var (
	// ErrDependencyResolutionFailed wraps a failure from the dependency
	// resolver.
	ErrDependencyResolutionFailed = errors.New("dependency resolution failed")
	// ErrTaskCancelled marks a task cancelled while queued or via a
	// scheduling-cancelled RPC reply.
	ErrTaskCancelled = errors.New("task cancelled")
	// ErrActorDied marks a task that failed because its actor is
	// permanently dead.
	ErrActorDied = errors.New("actor died")
	// ErrActorUnreachable is the transient network/IO error kind.
	ErrActorUnreachable = errors.New("actor temporarily unavailable")
)

// ErrorInfo carries the extra context a TaskFinisher may attach to a
// failure, mirroring the "error_info" side channel of section 6.
type ErrorInfo struct {
	Code            Code
	Message         string
	DeathCause      *task.DeathCause
	FailImmediately bool
}

// Status is the wire-shaped result of an RPC-like operation: either OK, or
// an error carrying a Code the submitter can branch on.
type Status struct {
	Code Code
	Err  error
}

// OK reports whether the status represents success.
func (s Status) OK() bool {
	return s.Err == nil
}

// Error implements the error interface so a Status can be used wherever an
// error is expected.
func (s Status) Error() string {
	if s.Err == nil {
		return "OK"
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Err)
}

// Unwrap lets errors.Is/errors.As see through a Status to the wrapped
// error.
func (s Status) Unwrap() error {
	return s.Err
}

// OKStatus is the canonical success Status.
var OKStatus = Status{}

// NewUnavailable builds a transient network-error Status, the kind
// produced when an RPC connection drops or times out.
func NewUnavailable(msg string) Status {
	return Status{Code: CodeUnavailable, Err: fmt.Errorf("%w: %s", ErrActorUnreachable, msg)}
}

// NewSchedulingCancelled builds the Status a PushActorTask reply carries
// when the receiving actor cancelled the task before it ran.
func NewSchedulingCancelled(msg string) Status {
	return Status{Code: CodeCanceled, Err: fmt.Errorf("%w: %s", ErrTaskCancelled, msg)}
}

// InfoFromDeathCause derives the ErrorInfo (error kind, message, and
// fail-immediately bit) a TaskFinisher needs from a task.DeathCause, the
// same computation the original submitter performs inline at every call
// site that touches death_cause.
func InfoFromDeathCause(cause task.DeathCause) ErrorInfo {
	info := ErrorInfo{
		Code:            CodeAborted,
		Message:         cause.Message,
		DeathCause:      &cause,
		FailImmediately: cause.FailImmediately(),
	}
	if info.Message == "" {
		info.Message = "actor died"
	}
	return info
}
