/*
 * convert.go, part of gopenff.
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
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/spf13/cast"
)

//Marshaler is implemented by Go values that have a foreign representation
//that is not a plain value, like enumerations of the foreign runtime.
//MarshalForeign can return any value accepted as argument of a call, including a *Handle.
//Handles returned by MarshalForeign are released after the call.
type Marshaler interface {
	MarshalForeign(ip *Interpreter) (any, error)
}

var (
	handleType = reflect.TypeOf((*Handle)(nil))
	anyType    = reflect.TypeOf((*any)(nil)).Elem()
)

//marshaler turns Go values into backend values. It keeps track of the temporary
//handles it creates, so they can be released after the call.
type marshaler struct {
	ip    *Interpreter
	temps []*Handle
}

func (m *marshaler) release() error {
	return ReleaseAll(m.temps...)
}

func (m *marshaler) marshal(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case Ref:
		return t, nil
	case *Handle:
		if err := t.check(""); err != nil {
			return nil, err
		}
		return t.ref, nil
	case Handler:
		h := t.Handle()
		if err := h.check(""); err != nil {
			return nil, err
		}
		return h.ref, nil
	case Marshaler:
		r, err := t.MarshalForeign(m.ip)
		if err != nil {
			return nil, err
		}
		if h, ok := r.(*Handle); ok {
			m.temps = append(m.temps, h)
		}
		return m.marshal(r)
	case bool, string, int64, float64:
		return t, nil
	case Kwargs:
		return m.marshal(map[string]any(t))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, Errorf(KindConversion, "", "", "unsigned value %d overflows the foreign integer", u)
		}
		return int64(u), nil
	case reflect.Float32:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		ret := make([]any, rv.Len())
		for i := range ret {
			e, err := m.marshal(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			ret[i] = e
		}
		return ret, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, Errorf(KindConversion, "", "", "maps need string keys, not %s", rv.Type().Key())
		}
		if rv.IsNil() {
			return nil, nil
		}
		ret := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e, err := m.marshal(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			ret[iter.Key().String()] = e
		}
		return ret, nil
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return m.marshal(rv.Elem().Interface())
	}
	return nil, Errorf(KindConversion, "", "", "values of type %T can't be sent to the foreign runtime", v)
}

//Convert converts a value obtained from a Backend to the Go type T.
//Foreign objects become *Handle values owned by the caller.
func Convert[T any](ip *Interpreter, v any) (T, error) {
	var ret T
	t := reflect.TypeOf(&ret).Elem()
	rv, err := convert(ip, v, t)
	if err != nil {
		return ret, err
	}
	reflect.ValueOf(&ret).Elem().Set(rv)
	return ret, nil
}

func convErr(v any, t reflect.Type) error {
	return Errorf(KindConversion, "", "", "can't convert foreign %s to %s", describe(v), t)
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case Ref:
		return "object " + t.Class
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	}
	return fmt.Sprintf("%T", v)
}

func convert(ip *Interpreter, v any, t reflect.Type) (reflect.Value, error) {
	if t == handleType {
		switch r := v.(type) {
		case nil:
			return reflect.Zero(t), nil
		case Ref:
			return reflect.ValueOf(ip.wrap(r)), nil
		}
		return reflect.Value{}, convErr(v, t)
	}
	if t.Kind() == reflect.Interface {
		if t != anyType {
			if v == nil {
				return reflect.Zero(t), nil
			}
			if !reflect.TypeOf(v).Implements(t) {
				return reflect.Value{}, convErr(v, t)
			}
			return reflect.ValueOf(v), nil
		}
		w, err := convertAny(ip, v)
		if err != nil {
			return reflect.Value{}, err
		}
		if w == nil {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(&w).Elem(), nil
	}
	if v == nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Map:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, convErr(v, t)
	}
	ret := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return reflect.Value{}, convErr(v, t)
		}
		ret.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !isNumber(v) {
			return reflect.Value{}, convErr(v, t)
		}
		if f, ok := v.(float64); ok && f != math.Trunc(f) {
			return reflect.Value{}, convErr(v, t)
		}
		i, err := cast.ToInt64E(v)
		if err != nil || ret.OverflowInt(i) {
			return reflect.Value{}, convErr(v, t)
		}
		ret.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !isNumber(v) {
			return reflect.Value{}, convErr(v, t)
		}
		if f, ok := v.(float64); ok && f != math.Trunc(f) {
			return reflect.Value{}, convErr(v, t)
		}
		i, err := cast.ToInt64E(v)
		if err != nil || i < 0 || ret.OverflowUint(uint64(i)) {
			return reflect.Value{}, convErr(v, t)
		}
		ret.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		if !isNumber(v) {
			return reflect.Value{}, convErr(v, t)
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return reflect.Value{}, convErr(v, t)
		}
		ret.SetFloat(f)
	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return reflect.Value{}, convErr(v, t)
		}
		ret.SetString(s)
	case reflect.Slice:
		l, ok := v.([]any)
		if !ok {
			return reflect.Value{}, convErr(v, t)
		}
		ret = reflect.MakeSlice(t, len(l), len(l))
		for i, e := range l {
			ev, err := convert(ip, e, t.Elem())
			if err != nil {
				return reflect.Value{}, wrapIndex(err, fmt.Sprintf("[%d]", i))
			}
			ret.Index(i).Set(ev)
		}
	case reflect.Array:
		l, ok := v.([]any)
		if !ok || len(l) != t.Len() {
			return reflect.Value{}, convErr(v, t)
		}
		for i, e := range l {
			ev, err := convert(ip, e, t.Elem())
			if err != nil {
				return reflect.Value{}, wrapIndex(err, fmt.Sprintf("[%d]", i))
			}
			ret.Index(i).Set(ev)
		}
	case reflect.Map:
		m, ok := v.(map[string]any)
		if !ok || t.Key().Kind() != reflect.String {
			return reflect.Value{}, convErr(v, t)
		}
		ret = reflect.MakeMapWithSize(t, len(m))
		for _, k := range sortedKeys(m) {
			ev, err := convert(ip, m[k], t.Elem())
			if err != nil {
				return reflect.Value{}, wrapIndex(err, fmt.Sprintf("[%q]", k))
			}
			ret.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
		}
	case reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			return reflect.Value{}, convErr(v, t)
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			key := f.Tag.Get("foreign")
			if key == "" || key == "-" || !f.IsExported() {
				continue
			}
			fv, present := m[key]
			if !present {
				continue
			}
			ev, err := convert(ip, fv, f.Type)
			if err != nil {
				return reflect.Value{}, wrapIndex(err, "."+key)
			}
			ret.Field(i).Set(ev)
		}
	case reflect.Ptr:
		ev, err := convert(ip, v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(ev)
		ret = p
	default:
		return reflect.Value{}, convErr(v, t)
	}
	return ret, nil
}

//convertAny converts the foreign objects nested in v to handles.
func convertAny(ip *Interpreter, v any) (any, error) {
	switch t := v.(type) {
	case Ref:
		return ip.wrap(t), nil
	case []any:
		ret := make([]any, len(t))
		for i, e := range t {
			c, err := convertAny(ip, e)
			if err != nil {
				return nil, err
			}
			ret[i] = c
		}
		return ret, nil
	case map[string]any:
		ret := make(map[string]any, len(t))
		for k, e := range t {
			c, err := convertAny(ip, e)
			if err != nil {
				return nil, err
			}
			ret[k] = c
		}
		return ret, nil
	}
	return v, nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64, int:
		return true
	}
	return false
}

func wrapIndex(err error, where string) error {
	if e, ok := err.(*Error); ok {
		e.Message = where + ": " + e.Message
	}
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
