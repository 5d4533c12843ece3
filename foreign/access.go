/*
 * access.go, part of gopenff.
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

//Prop is a read-only accessor for the foreign attribute Name, converted to T.
type Prop[T any] struct {
	Name string
}

//NewProp returns a read-only accessor for the attribute name.
func NewProp[T any](name string) Prop[T] {
	return Prop[T]{Name: name}
}

//Get reads the attribute from the object held by h.
func (p Prop[T]) Get(h Handler) (T, error) {
	return GetAttr[T](h, p.Name)
}

//RWProp is a read-write accessor for the foreign attribute Name.
type RWProp[T any] struct {
	Prop[T]
}

//NewRWProp returns a read-write accessor for the attribute name.
func NewRWProp[T any](name string) RWProp[T] {
	return RWProp[T]{Prop[T]{Name: name}}
}

//Set writes v to the attribute of the object held by h.
func (p RWProp[T]) Set(h Handler, v T) error {
	return SetAttr(h, p.Name, v)
}

//GetAttr reads the attribute name of the object held by h, and converts it to T.
func GetAttr[T any](hr Handler, name string) (T, error) {
	var zero T
	h := hr.Handle()
	if err := h.check(name); err != nil {
		return zero, err
	}
	v, err := h.ip.with(OpGetAttr, h.ref.Class, name, func(b Backend) (any, error) {
		return b.GetAttr(h.ref, name)
	})
	if err != nil {
		return zero, err
	}
	ret, err := Convert[T](h.ip, v)
	if err != nil {
		releaseRefs(h.ip, v)
		return zero, locate(err, h.ref.Class, name)
	}
	return ret, nil
}

//SetAttr sets the attribute name of the object held by h to v.
func SetAttr(hr Handler, name string, v any) error {
	h := hr.Handle()
	if err := h.check(name); err != nil {
		return err
	}
	m := &marshaler{ip: h.ip}
	defer m.release()
	fv, err := m.marshal(v)
	if err != nil {
		return locate(err, h.ref.Class, name)
	}
	_, err = h.ip.with(OpSetAttr, h.ref.Class, name, func(b Backend) (any, error) {
		return nil, b.SetAttr(h.ref, name, fv)
	})
	return err
}

//Call calls the method of the object held by h with positional arguments, and converts the result to T.
func Call[T any](h Handler, method string, args ...any) (T, error) {
	return CallKw[T](h, method, nil, args...)
}

//CallKw calls the method of the object held by h with positional and keyword arguments,
//and converts the result to T. Arguments are converted before the runtime lock is taken.
func CallKw[T any](hr Handler, method string, kw Kwargs, args ...any) (T, error) {
	var zero T
	h := hr.Handle()
	if err := h.check(method); err != nil {
		return zero, err
	}
	m := &marshaler{ip: h.ip}
	defer m.release()
	fargs := make([]any, len(args))
	for i, a := range args {
		v, err := m.marshal(a)
		if err != nil {
			return zero, locate(err, h.ref.Class, method)
		}
		fargs[i] = v
	}
	var fkw map[string]any
	if len(kw) > 0 {
		fkw = make(map[string]any, len(kw))
		for k, a := range kw {
			v, err := m.marshal(a)
			if err != nil {
				return zero, locate(err, h.ref.Class, method)
			}
			fkw[k] = v
		}
	}
	name := method
	if name == "" {
		name = "__call__"
	}
	v, err := h.ip.with(OpCall, h.ref.Class, name, func(b Backend) (any, error) {
		return b.Call(h.ref, method, fargs, fkw)
	})
	if err != nil {
		return zero, err
	}
	ret, err := Convert[T](h.ip, v)
	if err != nil {
		//the result is lost, so is any object it held.
		releaseRefs(h.ip, v)
		return zero, locate(err, h.ref.Class, name)
	}
	return ret, nil
}

//Invoke calls the object held by h itself, e.g. a class to build an instance.
func Invoke[T any](h Handler, args ...any) (T, error) {
	return CallKw[T](h, "", nil, args...)
}

//InvokeKw calls the object held by h itself, with keyword arguments.
func InvokeKw[T any](h Handler, kw Kwargs, args ...any) (T, error) {
	return CallKw[T](h, "", kw, args...)
}

//releaseRefs releases the foreign objects nested in v.
func releaseRefs(ip *Interpreter, v any) {
	switch t := v.(type) {
	case Ref:
		ip.wrap(t).Release()
	case []any:
		for _, e := range t {
			releaseRefs(ip, e)
		}
	case map[string]any:
		for _, e := range t {
			releaseRefs(ip, e)
		}
	}
}
