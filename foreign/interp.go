/*
 * interp.go, part of gopenff.
 *
 * Copyright 2026 The gopenff authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package foreign

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//Operation names, as used in logs and metrics.
const (
	OpImport  = "import"
	OpGetAttr = "getattr"
	OpSetAttr = "setattr"
	OpCall    = "call"
	OpRelease = "release"
)

//Interpreter owns a Backend and serializes every access to it through a
//single lock, the equivalent of the runtime's global interpreter lock.
type Interpreter struct {
	mu      sync.Mutex
	b       Backend
	closed  bool
	log     *zap.Logger
	metrics *Metrics
}

//Option configures an Interpreter.
type Option func(*Interpreter)

//WithLogger sets the logger for the interpreter. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(ip *Interpreter) {
		if l != nil {
			ip.log = l
		}
	}
}

//WithMetrics registers the call metrics of the interpreter in reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(ip *Interpreter) {
		ip.metrics = NewMetrics(reg)
	}
}

//NewInterpreter returns an Interpreter that talks to b.
func NewInterpreter(b Backend, opts ...Option) *Interpreter {
	ip := &Interpreter{b: b, log: zap.NewNop()}
	for _, o := range opts {
		o(ip)
	}
	return ip
}

//Logger returns the logger of the interpreter.
func (ip *Interpreter) Logger() *zap.Logger {
	return ip.log
}

//with runs f holding the lock. The lock is held for the duration of f only, and is
//released even if f panics.
func (ip *Interpreter) with(op, class, name string, f func(b Backend) (any, error)) (any, error) {
	start := time.Now()
	ret, err := func() (any, error) {
		ip.mu.Lock()
		defer ip.mu.Unlock()
		if ip.closed {
			return nil, Errorf(KindReleased, class, name, "interpreter closed")
		}
		return f(ip.b)
	}()
	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		e := locate(err, class, name)
		outcome = e.Kind.String()
		err = e
		ip.log.Warn("foreign operation failed", zap.String("op", op), zap.String("class", class), zap.String("name", name), zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		ip.log.Debug("foreign operation", zap.String("op", op), zap.String("class", class), zap.String("name", name), zap.Duration("elapsed", elapsed))
	}
	if ip.metrics != nil {
		ip.metrics.observe(op, name, outcome, elapsed)
	}
	return ret, err
}

//Import returns a handle to the attribute name of module, usually a class or a function.
func (ip *Interpreter) Import(module, name string) (*Handle, error) {
	v, err := ip.with(OpImport, module, name, func(b Backend) (any, error) {
		return b.Import(module, name)
	})
	if err != nil {
		return nil, err
	}
	ref, ok := v.(Ref)
	if !ok {
		return nil, Errorf(KindConversion, module, name, "imported value is a %T, not an object", v)
	}
	return ip.wrap(ref), nil
}

//ImportValue returns the plain value of the attribute name of module, converted to T.
func ImportValue[T any](ip *Interpreter, module, name string) (T, error) {
	v, err := ip.with(OpImport, module, name, func(b Backend) (any, error) {
		return b.Import(module, name)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	ret, err := Convert[T](ip, v)
	if err != nil {
		return ret, locate(err, module, name)
	}
	return ret, nil
}

//ImportCall imports the callable name from module and calls it, returning the result converted to T.
//It is the way to build a new foreign object from its class.
func ImportCall[T any](ip *Interpreter, module, name string, kw Kwargs, args ...any) (ret T, err error) {
	c, err := ip.Import(module, name)
	if err != nil {
		return ret, err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(c.Release))
	return InvokeKw[T](c, kw, args...)
}

//Close closes the backend. Handles still alive become unusable.
func (ip *Interpreter) Close() error {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if ip.closed {
		return nil
	}
	ip.closed = true
	return ip.b.Close()
}
