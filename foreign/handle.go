/*
 * handle.go, part of gopenff.
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
	"sync/atomic"

	"go.uber.org/multierr"
)

//Handle is a reference to a foreign object. A Handle is not safe for concurrent
//Release, but all its operations are serialized by its Interpreter.
type Handle struct {
	ip       *Interpreter
	ref      Ref
	refs     *int64 //shared by all the clones
	released atomic.Bool
}

func (ip *Interpreter) wrap(ref Ref) *Handle {
	n := int64(1)
	return &Handle{ip: ip, ref: ref, refs: &n}
}

//Handler is implemented by facades, which wrap a Handle.
type Handler interface {
	Handle() *Handle
}

//Handle returns h, so a *Handle is also a Handler.
func (h *Handle) Handle() *Handle { return h }

//Ref returns the foreign reference held by h.
func (h *Handle) Ref() Ref { return h.ref }

//Class returns the name of the foreign class of the object.
func (h *Handle) Class() string { return h.ref.Class }

//Interpreter returns the interpreter that owns the object.
func (h *Handle) Interpreter() *Interpreter { return h.ip }

//Released returns true if Release was called on h.
func (h *Handle) Released() bool { return h.released.Load() }

func (h *Handle) String() string {
	if h == nil {
		return "<nil handle>"
	}
	return h.ref.String()
}

//Clone returns a new handle to the same foreign object.
//The object stays alive until both handles are released.
func (h *Handle) Clone() (*Handle, error) {
	if err := h.check(""); err != nil {
		return nil, err
	}
	atomic.AddInt64(h.refs, 1)
	return &Handle{ip: h.ip, ref: h.ref, refs: h.refs}, nil
}

//Release drops the reference held by h. When no handles to the object are left,
//the object is released in the foreign runtime. Releasing a handle twice does nothing.
func (h *Handle) Release() error {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return nil
	}
	if atomic.AddInt64(h.refs, -1) > 0 {
		return nil
	}
	_, err := h.ip.with(OpRelease, h.ref.Class, "", func(b Backend) (any, error) {
		return nil, b.Release(h.ref)
	})
	return err
}

//ReleaseAll releases all the given handlers and returns all the errors, combined.
func ReleaseAll[H Handler](hs ...H) error {
	var err error
	for _, v := range hs {
		h := v.Handle()
		if h != nil {
			err = multierr.Append(err, h.Release())
		}
	}
	return err
}

func (h *Handle) check(name string) error {
	if h == nil {
		return Errorf(KindReleased, "", name, "nil handle")
	}
	if h.released.Load() {
		return Errorf(KindReleased, h.ref.Class, name, "handle used after release")
	}
	return nil
}
