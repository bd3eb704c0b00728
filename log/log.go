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

// Package log defines the logging contract every package in this module
// codes against, so a caller can plug in whatever backend fits their
// deployment without the submitter caring.
package log

// Logger is the minimal structured/printf logging surface the submitter,
// submitqueue, and executor packages depend on.
type Logger interface {
	Debug(v ...any)
	Debugf(format string, v ...any)
	Info(v ...any)
	Infof(format string, v ...any)
	Warn(v ...any)
	Warnf(format string, v ...any)
	Error(v ...any)
	Errorf(format string, v ...any)
	// With returns a derived Logger that annotates every subsequent line
	// with the given key/value pairs, e.g. With("actor_id", id.String()).
	With(fields ...any) Logger
}

// DiscardLogger is a Logger that drops everything. Useful as a zero-value
// default and in tests that don't care about log output.
var DiscardLogger Logger = discard{}

type discard struct{}

func (discard) Debug(...any)          {}
func (discard) Debugf(string, ...any) {}
func (discard) Info(...any)           {}
func (discard) Infof(string, ...any)  {}
func (discard) Warn(...any)           {}
func (discard) Warnf(string, ...any)  {}
func (discard) Error(...any)          {}
func (discard) Errorf(string, ...any) {}
func (d discard) With(...any) Logger  { return d }
