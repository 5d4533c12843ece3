/*
 * backend.go, part of gopenff.
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

//Package foreigntest provides a scriptable foreign.Backend that records every operation,
//to check that facades forward exactly what they should.
package foreigntest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rmera/gopenff/foreign"
)

//Call is a recorded operation.
type Call struct {
	Op     string
	Obj    foreign.Ref
	Module string //for imports
	Name   string //attribute or method name, empty for calls to the object itself
	Args   []any
	Kwargs map[string]any
	Value  any //for setattr
}

//Func computes the result of a stubbed operation.
type Func func(c Call) (any, error)

//Backend is an in-memory foreign.Backend. Objects are created by imports, by New, and by
//stubs. Attributes that are set can be read back. Everything else must be stubbed.
type Backend struct {
	mu       sync.Mutex
	next     uint64
	live     map[uint64]string
	attrs    map[uint64]map[string]any
	stubs    map[string]Func
	calls    []Call
	released []foreign.Ref
	closed   bool

	active   int32
	overlaps int32

	//Delay is slept inside every operation.
	Delay time.Duration
}

//New returns an empty Backend.
func New() *Backend {
	return &Backend{live: make(map[uint64]string), attrs: make(map[uint64]map[string]any), stubs: make(map[string]Func)}
}

//Object creates a live object of the given class.
func (b *Backend) Object(class string) foreign.Ref {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.object(class)
}

func (b *Backend) object(class string) foreign.Ref {
	b.next++
	b.live[b.next] = class
	return foreign.Ref{ID: b.next, Class: class}
}

//On stubs the operation op ("import", "getattr", "setattr", "call") on name.
//For calls to objects themselves, name is the class of the object. Stubs on "Class.name"
//take precedence over stubs on "name".
func (b *Backend) On(op, name string, f Func) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stubs[op+" "+name] = f
}

//Return stubs op on name to return v.
func (b *Backend) Return(op, name string, v any) {
	b.On(op, name, func(Call) (any, error) { return v, nil })
}

//ReturnObject stubs op on name to return a new object of class each time.
func (b *Backend) ReturnObject(op, name, class string) {
	b.On(op, name, func(Call) (any, error) { return b.Object(class), nil })
}

//Fail stubs op on name to fail with err.
func (b *Backend) Fail(op, name string, err error) {
	b.On(op, name, func(Call) (any, error) { return nil, err })
}

//Calls returns the operations recorded so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

//Last returns the last recorded operation with the given op.
func (b *Backend) Last(op string) (Call, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		if b.calls[i].Op == op {
			return b.calls[i], true
		}
	}
	return Call{}, false
}

//Live returns the number of objects not yet released.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

//Released returns the objects released so far.
func (b *Backend) Released() []foreign.Ref {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]foreign.Ref(nil), b.released...)
}

//Overlaps returns how many times an operation started while another was running.
func (b *Backend) Overlaps() int {
	return int(atomic.LoadInt32(&b.overlaps))
}

//Closed returns true if Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) enter() func() {
	if atomic.AddInt32(&b.active, 1) > 1 {
		atomic.AddInt32(&b.overlaps, 1)
	}
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}
	return func() { atomic.AddInt32(&b.active, -1) }
}

func (b *Backend) run(c Call, class string) (any, bool, error) {
	b.mu.Lock()
	b.calls = append(b.calls, c)
	f, ok := b.stubs[c.Op+" "+class+"."+c.Name]
	if !ok {
		f, ok = b.stubs[c.Op+" "+c.Name]
	}
	b.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	v, err := f(c)
	return v, true, err
}

func (b *Backend) Import(module, name string) (any, error) {
	defer b.enter()()
	if v, ok, err := b.run(Call{Op: foreign.OpImport, Module: module, Name: name}, module); ok {
		return v, err
	}
	return b.Object(name), nil
}

func (b *Backend) GetAttr(obj foreign.Ref, name string) (any, error) {
	defer b.enter()()
	if err := b.alive(obj, name); err != nil {
		return nil, err
	}
	if v, ok, err := b.run(Call{Op: foreign.OpGetAttr, Obj: obj, Name: name}, obj.Class); ok {
		return v, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.attrs[obj.ID][name]; ok {
		return v, nil
	}
	return nil, foreign.Errorf(foreign.KindNoSuchAttribute, obj.Class, name, "'%s' object has no attribute '%s'", obj.Class, name)
}

func (b *Backend) SetAttr(obj foreign.Ref, name string, value any) error {
	defer b.enter()()
	if err := b.alive(obj, name); err != nil {
		return err
	}
	if _, ok, err := b.run(Call{Op: foreign.OpSetAttr, Obj: obj, Name: name, Value: value}, obj.Class); ok {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attrs[obj.ID] == nil {
		b.attrs[obj.ID] = make(map[string]any)
	}
	b.attrs[obj.ID][name] = value
	return nil
}

func (b *Backend) Call(obj foreign.Ref, method string, args []any, kwargs map[string]any) (any, error) {
	defer b.enter()()
	if err := b.alive(obj, method); err != nil {
		return nil, err
	}
	c := Call{Op: foreign.OpCall, Obj: obj, Name: method, Args: args, Kwargs: kwargs}
	key := method
	if key == "" {
		//calls to the object itself are stubbed by class
		key = obj.Class
		c.Name = ""
	}
	b.mu.Lock()
	b.calls = append(b.calls, c)
	f, ok := b.stubs[foreign.OpCall+" "+obj.Class+"."+key]
	if !ok {
		f, ok = b.stubs[foreign.OpCall+" "+key]
	}
	b.mu.Unlock()
	if !ok {
		if method == "" {
			//calling a class builds an instance
			return b.Object(obj.Class), nil
		}
		return nil, foreign.Errorf(foreign.KindNoSuchMethod, obj.Class, method, "'%s' object has no method '%s'", obj.Class, method)
	}
	return f(c)
}

func (b *Backend) Release(obj foreign.Ref) error {
	defer b.enter()()
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.live[obj.ID]; !ok {
		return foreign.Errorf(foreign.KindExternal, obj.Class, "", "object %d released twice", obj.ID)
	}
	delete(b.live, obj.ID)
	delete(b.attrs, obj.ID)
	b.released = append(b.released, obj)
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Backend) alive(obj foreign.Ref, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.live[obj.ID]; !ok {
		return foreign.Errorf(foreign.KindExternal, obj.Class, name, "object %d is not alive", obj.ID)
	}
	return nil
}
