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
	"sync"
	"time"

	"github.com/tochemey/actorsubmit/errs"
	"github.com/tochemey/actorsubmit/task"
)

// inlineExecutor runs everything synchronously on the calling goroutine.
// Scenario tests use it so dispatch chains (submit -> resolve -> send ->
// push -> reply) complete deterministically within a single call,
// without needing sleeps or waitgroups to observe the result.
type inlineExecutor struct{}

func (inlineExecutor) Execute(fn func()) { fn() }

func (inlineExecutor) ExecuteAfter(_ time.Duration, fn func()) func() {
	fn()
	return func() {}
}

// manualExecutor runs Execute immediately (matching inlineExecutor) but
// holds ExecuteAfter callbacks until the test explicitly fires them via
// advance, so grace-period and cancel-retry timing can be driven by a
// fake clock instead of real sleeps.
type manualExecutor struct {
	mu  sync.Mutex
	now time.Duration
	due []manualTimer
}

type manualTimer struct {
	at   time.Duration
	fn   func()
	live bool
}

func newManualExecutor() *manualExecutor {
	return &manualExecutor{}
}

func (m *manualExecutor) Execute(fn func()) { fn() }

func (m *manualExecutor) ExecuteAfter(d time.Duration, fn func()) func() {
	m.mu.Lock()
	idx := len(m.due)
	m.due = append(m.due, manualTimer{at: m.now + d, fn: fn, live: true})
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.due[idx].live = false
	}
}

// advance moves the fake clock forward by d and runs every timer whose
// deadline is now due, in deadline order.
func (m *manualExecutor) advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var toRun []func()
	remaining := m.due[:0]
	for _, t := range m.due {
		if t.live && t.at <= m.now {
			toRun = append(toRun, t.fn)
		} else {
			remaining = append(remaining, t)
		}
	}
	m.due = remaining
	m.mu.Unlock()
	for _, fn := range toRun {
		fn()
	}
}

// fakeResolver resolves every task successfully as soon as it's asked,
// unless the task id has been pre-loaded with a failure via failNext.
type fakeResolver struct {
	mu       sync.Mutex
	failWith map[task.TaskID]error
	canceled map[task.TaskID]bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{failWith: map[task.TaskID]error{}, canceled: map[task.TaskID]bool{}}
}

func (r *fakeResolver) failNext(taskID task.TaskID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith[taskID] = err
}

func (r *fakeResolver) ResolveDependencies(_ context.Context, spec *task.Spec, done func(error)) {
	r.mu.Lock()
	err := r.failWith[spec.TaskID]
	r.mu.Unlock()
	done(err)
}

func (r *fakeResolver) CancelDependencyResolution(taskID task.TaskID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled[taskID] = true
}

// fakeFinisher records every terminal call it receives so tests can
// assert on the sequence, and implements a permissive retry policy
// (never retries) unless configured otherwise.
type fakeFinisher struct {
	mu sync.Mutex

	completed    []completedCall
	depFailed    []task.TaskID
	waiting      []task.TaskID
	willRetry    bool
	finished     map[task.TaskID]bool
	canceledSet  map[task.TaskID]bool
}

type completedCall struct {
	TaskID task.TaskID
	Status errs.Status
	Info   errs.ErrorInfo
}

func newFakeFinisher() *fakeFinisher {
	return &fakeFinisher{finished: map[task.TaskID]bool{}, canceledSet: map[task.TaskID]bool{}}
}

func (f *fakeFinisher) CompletePendingTask(taskID task.TaskID, status errs.Status, info errs.ErrorInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, completedCall{TaskID: taskID, Status: status, Info: info})
	f.finished[taskID] = true
}

func (f *fakeFinisher) MarkTaskWaitingForExecution(taskID task.TaskID, _ task.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waiting = append(f.waiting, taskID)
}

func (f *fakeFinisher) MarkDependencyFailed(taskID task.TaskID, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depFailed = append(f.depFailed, taskID)
}

func (f *fakeFinisher) FailOrRetryPendingTask(taskID task.TaskID, _ errs.Status, _ errs.ErrorInfo) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.willRetry
}

func (f *fakeFinisher) MarkTaskCanceled(taskID task.TaskID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished[taskID] {
		return true
	}
	f.canceledSet[taskID] = true
	return false
}

func (f *fakeFinisher) IsTaskFinished(taskID task.TaskID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished[taskID]
}

func (f *fakeFinisher) completedFor(id task.TaskID) (completedCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.completed {
		if c.TaskID == id {
			return c, true
		}
	}
	return completedCall{}, false
}

// fakeRPCClient records every PushActorTask call it receives, in order,
// and replies according to a per-test script.
type fakeRPCClient struct {
	mu sync.Mutex

	addr    task.Address
	pushes  []PushTaskRequest
	scripts map[task.TaskID]PushTaskReply
	// defaultReply is used for pushes with no scripted reply.
	defaultReply PushTaskReply

	cancelCalls []CancelTaskRequest
	killCalls   []KillActorRequest
	// cancelReply is the reply every CancelTask call receives.
	cancelReply CancelTaskReply
}

func newFakeRPCClient(addr task.Address) *fakeRPCClient {
	return &fakeRPCClient{
		addr:         addr,
		scripts:      map[task.TaskID]PushTaskReply{},
		defaultReply: PushTaskReply{Status: errs.OKStatus},
		cancelReply:  CancelTaskReply{Status: errs.OKStatus, SchedulingCancelled: true},
	}
}

func (c *fakeRPCClient) scriptReply(taskID task.TaskID, reply PushTaskReply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[taskID] = reply
}

func (c *fakeRPCClient) PushActorTask(_ context.Context, req PushTaskRequest, done func(PushTaskReply)) {
	c.mu.Lock()
	c.pushes = append(c.pushes, req)
	reply, ok := c.scripts[req.Spec.TaskID]
	if !ok {
		reply = c.defaultReply
	}
	c.mu.Unlock()
	done(reply)
}

func (c *fakeRPCClient) CancelTask(_ context.Context, req CancelTaskRequest, done func(CancelTaskReply)) {
	c.mu.Lock()
	c.cancelCalls = append(c.cancelCalls, req)
	reply := c.cancelReply
	c.mu.Unlock()
	done(reply)
}

func (c *fakeRPCClient) KillActor(_ context.Context, req KillActorRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killCalls = append(c.killCalls, req)
	return nil
}

func (c *fakeRPCClient) Close() error { return nil }

func (c *fakeRPCClient) pushedIDs() []task.TaskID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]task.TaskID, 0, len(c.pushes))
	for _, p := range c.pushes {
		ids = append(ids, p.Spec.TaskID)
	}
	return ids
}

// fakeRPCPool hands out one client per address (created on first use and
// reused afterwards), recording every disconnect call.
type fakeRPCPool struct {
	mu             sync.Mutex
	clients        map[string]*fakeRPCClient
	disconnected   []string
	nextConnectErr error
}

func newFakeRPCPool() *fakeRPCPool {
	return &fakeRPCPool{clients: map[string]*fakeRPCClient{}}
}

// failNextConnect makes the next GetOrConnect call return err instead of a
// client, mimicking a dial that exhausted its retries (as testpool.Pool's
// flowchartsman/retry-backed dial can). The failure is consumed exactly
// once so later calls succeed normally.
func (p *fakeRPCPool) failNextConnect(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextConnectErr = err
}

func (p *fakeRPCPool) GetOrConnect(_ context.Context, addr task.Address) (RPCClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nextConnectErr != nil {
		err := p.nextConnectErr
		p.nextConnectErr = nil
		return nil, err
	}
	key := addr.String()
	c, ok := p.clients[key]
	if !ok {
		c = newFakeRPCClient(addr)
		p.clients[key] = c
	}
	return c, nil
}

// Disconnect just records the call: fakeRPCPool never actually tears a
// client down, so tests can still inspect pushes/cancels sent through it
// after the submitter has moved on.
func (p *fakeRPCPool) Disconnect(workerID []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = append(p.disconnected, string(workerID))
	return nil
}

func (p *fakeRPCPool) clientFor(addr task.Address) *fakeRPCClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clients[addr.String()]
}
