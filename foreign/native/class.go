/*
 * class.go, part of gopenff.
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

package native

import (
	"fmt"
	"sort"

	"github.com/rmera/gopenff/foreign"
)

//object is anything that lives in the native runtime.
type object interface {
	class() *class
}

//method implements a callable. self is nil for functions.
type method func(b *Backend, self object, a *args) (any, error)

//prop is an attribute. set is nil for read-only attributes.
type prop struct {
	get func(b *Backend, self object) (any, error)
	set func(b *Backend, self object, v any) error
}

//class is the static description of the attributes and methods of a type.
type class struct {
	name    string
	props   map[string]prop
	methods map[string]method
	//dynamic is tried for attribute names missing from props.
	dynamic func(b *Backend, self object, name string) (any, bool, error)
	//new builds instances, when the class is called.
	new method
	//static holds the methods callable on the class itself.
	static map[string]method
	//meta, if not nil, describes the class object itself, e.g. for class attributes.
	meta *class
}

//classObj is a class seen as an object, so it can be imported and called.
type classObj struct {
	c    *class
	meta *class
}

func (c *classObj) class() *class { return c.meta }

func newClassObj(c *class) *classObj {
	if c.meta != nil {
		return &classObj{c: c, meta: c.meta}
	}
	return &classObj{c: c, meta: &class{name: c.name, methods: c.static, new: c.new}}
}

//function is a module-level function.
type function struct {
	c *class
}

func (f *function) class() *class { return f.c }

func newFunction(name string, f method) *function {
	return &function{&class{name: name, new: f}}
}

func noAttr(self object, name string) error {
	return foreign.Errorf(foreign.KindNoSuchAttribute, self.class().name, name, "'%s' object has no attribute '%s'", self.class().name, name)
}

func readOnly(self object, name string) error {
	return foreign.Errorf(foreign.KindExternal, self.class().name, name, "can't set attribute '%s'", name)
}

func external(self object, name, format string, a ...interface{}) error {
	class := ""
	if self != nil {
		class = self.class().name
	}
	return foreign.Errorf(foreign.KindExternal, class, name, format, a...)
}

func needsPython(self object, name string) error {
	return external(self, name, "%s requires the OpenFF toolkits, available only through the python runtime", name)
}

//args are the arguments of a call, positional and by keyword.
type args struct {
	class  string
	method string
	pos    []any
	kw     map[string]any
	used   map[string]bool
	maxPos int
}

func newArgs(class, method string, pos []any, kw map[string]any) *args {
	if kw == nil {
		kw = map[string]any{}
	}
	return &args{class: class, method: method, pos: pos, kw: kw, used: make(map[string]bool)}
}

func (a *args) err(format string, v ...interface{}) error {
	return foreign.Errorf(foreign.KindConversion, a.class, a.method, format, v...)
}

//get returns the argument at position i, or with keyword name. i < 0 means keyword-only.
func (a *args) get(i int, name string) (any, bool) {
	if i >= 0 && i+1 > a.maxPos {
		a.maxPos = i + 1
	}
	a.used[name] = true
	if i >= 0 && i < len(a.pos) {
		return a.pos[i], true
	}
	v, ok := a.kw[name]
	return v, ok
}

//done checks that no unexpected arguments were given.
func (a *args) done() error {
	if len(a.pos) > a.maxPos {
		return foreign.Errorf(foreign.KindExternal, a.class, a.method, "TypeError: %s() takes %d positional arguments but %d were given", a.method, a.maxPos, len(a.pos))
	}
	extra := make([]string, 0)
	for k := range a.kw {
		if !a.used[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return foreign.Errorf(foreign.KindExternal, a.class, a.method, "TypeError: %s() got an unexpected keyword argument '%s'", a.method, extra[0])
	}
	return nil
}

func (a *args) required(i int, name string) (any, error) {
	v, ok := a.get(i, name)
	if !ok {
		return nil, foreign.Errorf(foreign.KindExternal, a.class, a.method, "TypeError: %s() missing required argument: '%s'", a.method, name)
	}
	return v, nil
}

func (a *args) str(i int, name string, def *string) (string, error) {
	v, ok := a.get(i, name)
	if !ok || v == nil {
		if def != nil {
			return *def, nil
		}
		return "", a.missing(name)
	}
	s, ok := v.(string)
	if !ok {
		return "", a.err("argument '%s': expected str, got %s", name, typeName(v))
	}
	return s, nil
}

func (a *args) integer(i int, name string, def *int) (int, error) {
	v, ok := a.get(i, name)
	if !ok || v == nil {
		if def != nil {
			return *def, nil
		}
		return 0, a.missing(name)
	}
	switch t := v.(type) {
	case int64:
		return int(t), nil
	case float64:
		if t == float64(int(t)) {
			return int(t), nil
		}
	}
	return 0, a.err("argument '%s': expected int, got %s", name, typeName(v))
}

func (a *args) float(i int, name string, def *float64) (float64, error) {
	v, ok := a.get(i, name)
	if !ok || v == nil {
		if def != nil {
			return *def, nil
		}
		return 0, a.missing(name)
	}
	switch t := v.(type) {
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	}
	return 0, a.err("argument '%s': expected float, got %s", name, typeName(v))
}

func (a *args) boolean(i int, name string, def *bool) (bool, error) {
	v, ok := a.get(i, name)
	if !ok || v == nil {
		if def != nil {
			return *def, nil
		}
		return false, a.missing(name)
	}
	t, ok := v.(bool)
	if !ok {
		return false, a.err("argument '%s': expected bool, got %s", name, typeName(v))
	}
	return t, nil
}

func (a *args) list(i int, name string, optional bool) ([]any, error) {
	v, ok := a.get(i, name)
	if !ok || v == nil {
		if optional {
			return nil, nil
		}
		return nil, a.missing(name)
	}
	l, ok := v.([]any)
	if !ok {
		return nil, a.err("argument '%s': expected list, got %s", name, typeName(v))
	}
	return l, nil
}

//obj returns the object passed as argument. b resolves references.
func (a *args) obj(b *Backend, i int, name string, optional bool) (object, error) {
	v, ok := a.get(i, name)
	if !ok || v == nil {
		if optional {
			return nil, nil
		}
		return nil, a.missing(name)
	}
	r, ok := v.(foreign.Ref)
	if !ok {
		return nil, a.err("argument '%s': expected an object, got %s", name, typeName(v))
	}
	return b.lookup(r)
}

func (a *args) missing(name string) error {
	return foreign.Errorf(foreign.KindExternal, a.class, a.method, "TypeError: %s() missing required argument: '%s'", a.method, name)
}

func typeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	case foreign.Ref:
		return t.Class
	}
	return fmt.Sprintf("%T", v)
}

func ptr[T any](v T) *T { return &v }
