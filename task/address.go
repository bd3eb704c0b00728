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

import "fmt"

// Address is the network endpoint of the worker process currently hosting
// an actor.
type Address struct {
	IP       string
	Port     int
	WorkerID []byte
	NodeID   string
}

// SameEndpoint reports whether two addresses point at the same (ip, port)
// pair, ignoring worker/node identity. ConnectActor uses this to decide
// whether a reconnect to an address it is already connected to is a no-op.
func (a Address) SameEndpoint(other Address) bool {
	return a.IP == other.IP && a.Port == other.Port
}

// String renders the address for logs.
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}
