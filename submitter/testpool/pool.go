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

// Package testpool provides an RPCClientPool that dials through a
// caller-supplied Dialer over an *http.Client, suitable for wiring a
// Submitter to a real actor task service, with dial retry for the
// transient failures a freshly-restarted actor's address is prone to.
package testpool

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/actorsubmit/internal/collection"
	"github.com/tochemey/actorsubmit/submitter"
	"github.com/tochemey/actorsubmit/task"
)

// Dialer builds a submitter.RPCClient for a single actor address. Callers
// supply this so the pool stays agnostic to the concrete RPC stack
// (connect, grpc, or an in-memory fake) used to reach an actor's host.
type Dialer func(ctx context.Context, addr task.Address, httpClient *http.Client) (submitter.RPCClient, error)

// pooledClient is one entry in Pool's registry: a live connection shared
// by every actor whose ClientQueue currently holds a handle to the same
// worker process, plus the count of outstanding handles.
type pooledClient struct {
	client   submitter.RPCClient
	refCount atomic.Int64
}

// Pool is an RPCClientPool that caches one connection per worker process
// (keyed by task.Address.WorkerID, not by address, since two actors can
// be restarted onto the same physical worker at different addresses over
// their lifetime) and retries a failed dial a bounded number of times
// before giving up. GetOrConnect acquires a handle and increments the
// entry's refcount; Disconnect releases one and closes the underlying
// connection only once every handle has been returned.
type Pool struct {
	clients *collection.Map[string, *pooledClient]
	dial    Dialer

	httpClient *http.Client

	maxDialRetries int
	minDialWait    time.Duration
	maxDialWait    time.Duration
}

// New builds a Pool. httpClient defaults to http.DefaultClient if nil.
func New(dial Dialer, httpClient *http.Client, maxDialRetries int, minDialWait, maxDialWait time.Duration) *Pool {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Pool{
		clients:        collection.NewMap[string, *pooledClient](),
		dial:           dial,
		httpClient:     httpClient,
		maxDialRetries: maxDialRetries,
		minDialWait:    minDialWait,
		maxDialWait:    maxDialWait,
	}
}

// GetOrConnect returns the cached client for addr's worker, dialing (with
// retry) on a cache miss and incrementing the entry's refcount either way.
func (p *Pool) GetOrConnect(ctx context.Context, addr task.Address) (submitter.RPCClient, error) {
	key := string(addr.WorkerID)
	if entry, ok := p.clients.Get(key); ok {
		entry.refCount.Inc()
		return entry.client, nil
	}

	retrier := retry.NewRetrier(p.maxDialRetries, p.minDialWait, p.maxDialWait)

	var client submitter.RPCClient
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		c, err := p.dial(ctx, addr, p.httpClient)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	entry := &pooledClient{client: client}
	entry.refCount.Store(1)
	if stored, isNew := p.clients.SetIfAbsent(key, entry); !isNew {
		stored.refCount.Inc()
		_ = client.Close()
		return stored.client, nil
	}
	return client, nil
}

// Disconnect releases one handle on workerID's connection, closing it once
// the last handle is returned. A worker id the pool has no entry for is a
// no-op, since a client that was never connected has nothing to release.
func (p *Pool) Disconnect(workerID []byte) error {
	key := string(workerID)
	entry, ok := p.clients.Get(key)
	if !ok {
		return nil
	}
	if entry.refCount.Dec() > 0 {
		return nil
	}
	p.clients.Delete(key)
	return entry.client.Close()
}

// Close closes every cached client, returning the combined error from any
// that failed to close cleanly rather than stopping at the first one.
func (p *Pool) Close() error {
	var err error
	p.clients.Range(func(_ string, entry *pooledClient) bool {
		err = multierr.Append(err, entry.client.Close())
		return true
	})
	return err
}
