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

package foreign

import "fmt"

//Ref identifies an object living in the foreign runtime.
type Ref struct {
	ID    uint64
	Class string
}

func (r Ref) String() string {
	return fmt.Sprintf("<%s #%d>", r.Class, r.ID)
}

//Kwargs are keyword arguments for a foreign call.
type Kwargs map[string]any

//Backend is a foreign runtime. The values crossing a Backend, in both directions, are restricted to:
//nil, bool, int64, float64, string, []any, map[string]any and Ref, nested in any way.
//
//Implementations don't need to be safe for concurrent use: the Interpreter serializes all calls.
//Errors should be *Error values with the right Kind. Other errors are taken as external errors.
type Backend interface {
	//Import returns the attribute name of the module.
	Import(module, name string) (any, error)
	GetAttr(obj Ref, name string) (any, error)
	SetAttr(obj Ref, name string, value any) error
	//Call calls the method of obj, or obj itself if method is empty.
	Call(obj Ref, method string, args []any, kwargs map[string]any) (any, error)
	//Release tells the runtime that the Go side holds no more references to obj.
	Release(obj Ref) error
	Close() error
}
