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

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"

	"github.com/tochemey/actorsubmit/errs"
	"github.com/tochemey/actorsubmit/task"
)

// timeoutEntry pairs a grace-list row with the actor it belongs to, so
// CheckTimeoutTasks can fail it through the finisher after releasing the
// lock.
type timeoutEntry struct {
	actorID task.ActorID
	spec    *task.Spec
	status  errs.Status
}

// CheckTimeoutTasks scans every tracked actor's wait-for-death-info
// grace list for entries whose deadline has passed, and fails each one
// with ACTOR_DIED. Must not be called while any other submitter method
// holds s.mu on the same goroutine: it releases the lock before calling
// into the task finisher, since that call may re-enter the submitter.
func (s *Submitter) CheckTimeoutTasks() {
	now := time.Now()
	var expired []timeoutEntry

	s.mu.Lock()
	for actorID, cq := range s.table {
		if len(cq.waitForDeathInfoTasks) == 0 {
			continue
		}
		kept := cq.waitForDeathInfoTasks[:0]
		for _, entry := range cq.waitForDeathInfoTasks {
			if now.After(entry.deadline) {
				expired = append(expired, timeoutEntry{actorID: actorID, spec: entry.spec, status: entry.status})
			} else {
				kept = append(kept, entry)
			}
		}
		cq.waitForDeathInfoTasks = kept
	}
	s.mu.Unlock()

	for _, e := range expired {
		s.mu.Lock()
		preempted := false
		if cq, ok := s.table[e.actorID]; ok {
			preempted = cq.preempted
		}
		s.mu.Unlock()

		msg := "actor did not confirm death within grace period"
		if preempted {
			msg += " (actor was preempted)"
		}
		info := errs.ErrorInfo{Code: errs.CodeAborted, Message: msg}
		s.finisher.CompletePendingTask(e.spec.TaskID, errs.Status{Code: errs.CodeAborted, Err: errs.ErrActorDied}, info)
	}
}

// StartTimeoutSweeper schedules CheckTimeoutTasks to run every interval
// using a quartz scheduler, returning a stop function. This is the
// production wiring for the "external ticker" section 4.6 describes;
// tests typically call CheckTimeoutTasks directly instead.
func StartTimeoutSweeper(s *Submitter, interval time.Duration) (stop func(), err error) {
	sched, err := quartz.NewStdScheduler()
	if err != nil {
		return nil, err
	}
	sched.Start(context.Background())

	sweepJob := job.NewFunctionJob[bool](func(context.Context) (bool, error) {
		s.CheckTimeoutTasks()
		return true, nil
	})

	detail := quartz.NewJobDetail(sweepJob, quartz.NewJobKey("actorsubmit-timeout-sweeper"))
	if jerr := sched.ScheduleJob(detail, quartz.NewSimpleTrigger(interval)); jerr != nil {
		sched.Stop()
		return nil, jerr
	}

	return func() { sched.Stop() }, nil
}
