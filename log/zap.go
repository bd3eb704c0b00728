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

package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap builds a production-configured zap-backed Logger at the given
// level. Callers embedding this module in a service typically construct
// one Zap logger and pass it to submitter.WithLogger.
func NewZap(level zapcore.Level) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Falls back to a no-op logger rather than panicking; a broken
		// logger should never take down the submitter it's attached to.
		return DiscardLogger
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Debug(v ...any)                  { z.sugar.Debug(v...) }
func (z *zapLogger) Debugf(format string, v ...any)  { z.sugar.Debugf(format, v...) }
func (z *zapLogger) Info(v ...any)                   { z.sugar.Info(v...) }
func (z *zapLogger) Infof(format string, v ...any)   { z.sugar.Infof(format, v...) }
func (z *zapLogger) Warn(v ...any)                   { z.sugar.Warn(v...) }
func (z *zapLogger) Warnf(format string, v ...any)   { z.sugar.Warnf(format, v...) }
func (z *zapLogger) Error(v ...any)                  { z.sugar.Error(v...) }
func (z *zapLogger) Errorf(format string, v ...any)  { z.sugar.Errorf(format, v...) }
func (z *zapLogger) With(fields ...any) Logger {
	return &zapLogger{sugar: z.sugar.With(fields...)}
}
