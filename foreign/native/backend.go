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

//Package native implements the foreign runtime in-process, in Go. It exposes the same modules,
//classes, attributes and methods that the OpenFF toolkit, OpenFF QCSubmit, OpenFF units and
//QCPortal expose to the python runtime, with the same names, so the facades work unchanged on
//top of either.
//
//The chemistry behind the native objects is provided by package chem, and is an approximation
//of what the OpenFF toolkits do: molecular identity is checked on the molecular graph, SMIRNOFF
//files are handled as documents (no parameter assignment), and filters work on the record data
//stored in local archives. Operations that need the real toolkits (creating systems, assigning
//parameters or partial charges) fail with external errors.
package native

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rmera/gopenff/foreign"
	"go.uber.org/zap"
)

//Environment variable with extra directories (separated by the OS path list separator) where
//force field files are searched.
const PathEnv = "GOPENFF_OFFXML_PATH"

//Options configure the native backend.
type Options struct {
	//Directories where force field files are searched for, in order, after the ones in PathEnv.
	SearchPaths []string
	Logger      *zap.Logger
}

type entry struct {
	obj  object
	refs int
}

//Backend is the native foreign.Backend. Like the python runtime, it is not safe for concurrent
//use; the foreign.Interpreter serializes the access.
type Backend struct {
	opts    Options
	log     *zap.Logger
	next    uint64
	objs    map[uint64]*entry
	ids     map[object]uint64
	modules map[string]map[string]object
	closed  bool
}

//New returns a native backend.
func New(opts Options) *Backend {
	b := &Backend{
		opts: opts,
		log:  opts.Logger,
		objs: make(map[uint64]*entry),
		ids:  make(map[object]uint64),
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	b.modules = modules(b)
	return b
}

//searchPaths returns the directories where force fields are looked for.
func (b *Backend) searchPaths() []string {
	ret := make([]string, 0, len(b.opts.SearchPaths)+2)
	if env := os.Getenv(PathEnv); env != "" {
		ret = append(ret, filepath.SplitList(env)...)
	}
	return append(ret, b.opts.SearchPaths...)
}

//export hands obj to the Go side, as a reference.
func (b *Backend) export(obj object) foreign.Ref {
	id, ok := b.ids[obj]
	if !ok {
		b.next++
		id = b.next
		b.ids[obj] = id
		b.objs[id] = &entry{obj: obj}
	}
	b.objs[id].refs++
	return foreign.Ref{ID: id, Class: obj.class().name}
}

func (b *Backend) lookup(r foreign.Ref) (object, error) {
	e, ok := b.objs[r.ID]
	if !ok {
		return nil, foreign.Errorf(foreign.KindExternal, r.Class, "", "object %d does not exist in the native runtime", r.ID)
	}
	return e.obj, nil
}

//out converts a native value to a backend value. Objects are exported.
func (b *Backend) out(v any) any {
	switch t := v.(type) {
	case object:
		return b.export(t)
	case []any:
		ret := make([]any, len(t))
		for i, e := range t {
			ret[i] = b.out(e)
		}
		return ret
	case map[string]any:
		ret := make(map[string]any, len(t))
		for k, e := range t {
			ret[k] = b.out(e)
		}
		return ret
	case int:
		return int64(t)
	case []float64:
		ret := make([]any, len(t))
		for i, e := range t {
			ret[i] = e
		}
		return ret
	case []string:
		ret := make([]any, len(t))
		for i, e := range t {
			ret[i] = e
		}
		return ret
	}
	return v
}

func (b *Backend) Import(module, name string) (any, error) {
	if b.closed {
		return nil, foreign.Errorf(foreign.KindReleased, module, name, "native runtime closed")
	}
	mod, ok := b.modules[module]
	if !ok {
		return nil, foreign.Errorf(foreign.KindStartup, module, name, "ModuleNotFoundError: No module named '%s'", module)
	}
	obj, ok := mod[name]
	if !ok {
		return nil, foreign.Errorf(foreign.KindNoSuchAttribute, module, name, "ImportError: cannot import name '%s' from '%s'", name, module)
	}
	return b.export(obj), nil
}

func (b *Backend) GetAttr(ref foreign.Ref, name string) (any, error) {
	self, err := b.lookup(ref)
	if err != nil {
		return nil, err
	}
	c := self.class()
	if p, ok := c.props[name]; ok {
		v, err := p.get(b, self)
		if err != nil {
			return nil, err
		}
		return b.out(v), nil
	}
	if c.dynamic != nil {
		v, ok, err := c.dynamic(b, self, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return b.out(v), nil
		}
	}
	if m, ok := c.methods[name]; ok {
		//bound methods are objects too
		return b.export(&boundMethod{self: self, name: name, m: m}), nil
	}
	return nil, noAttr(self, name)
}

func (b *Backend) SetAttr(ref foreign.Ref, name string, value any) error {
	self, err := b.lookup(ref)
	if err != nil {
		return err
	}
	p, ok := self.class().props[name]
	if !ok {
		return noAttr(self, name)
	}
	if p.set == nil {
		return readOnly(self, name)
	}
	return p.set(b, self, value)
}

func (b *Backend) Call(ref foreign.Ref, name string, pos []any, kw map[string]any) (any, error) {
	self, err := b.lookup(ref)
	if err != nil {
		return nil, err
	}
	c := self.class()
	var m method
	if name == "" {
		m = c.new
		if m == nil {
			return nil, foreign.Errorf(foreign.KindExternal, c.name, "", "TypeError: '%s' object is not callable", c.name)
		}
		name = c.name
	} else {
		var ok bool
		m, ok = c.methods[name]
		if !ok {
			if _, isProp := c.props[name]; isProp {
				return nil, foreign.Errorf(foreign.KindNoSuchMethod, c.name, name, "TypeError: '%s' attribute of '%s' is not callable", name, c.name)
			}
			return nil, foreign.Errorf(foreign.KindNoSuchMethod, c.name, name, "AttributeError: '%s' object has no attribute '%s'", c.name, name)
		}
	}
	a := newArgs(c.name, name, pos, kw)
	v, err := m(b, self, a)
	if err != nil {
		return nil, err
	}
	return b.out(v), nil
}

func (b *Backend) Release(ref foreign.Ref) error {
	e, ok := b.objs[ref.ID]
	if !ok {
		return foreign.Errorf(foreign.KindExternal, ref.Class, "", "object %d released more times than exported", ref.ID)
	}
	e.refs--
	if e.refs <= 0 {
		delete(b.objs, ref.ID)
		delete(b.ids, e.obj)
	}
	return nil
}

//Live returns the number of objects currently referenced from the Go side.
func (b *Backend) Live() int {
	return len(b.objs)
}

func (b *Backend) Close() error {
	if len(b.objs) > 0 {
		b.log.Debug("closing native runtime with live objects", zap.Int("objects", len(b.objs)))
	}
	b.closed = true
	b.objs = make(map[uint64]*entry)
	b.ids = make(map[object]uint64)
	return nil
}

//boundMethod is a method read as an attribute.
type boundMethod struct {
	self object
	name string
	m    method
}

func (bm *boundMethod) class() *class {
	return &class{name: "method", new: func(b *Backend, _ object, a *args) (any, error) {
		a.method = bm.name
		a.class = bm.self.class().name
		return bm.m(b, bm.self, a)
	}}
}

//modules returns the importable modules of the native runtime, with the dotted
//names of their python counterparts.
func modules(b *Backend) map[string]map[string]object {
	molecule := newClassObj(moleculeClass)
	topology := newClassObj(topologyClass)
	forcefield := newClassObj(forceFieldClass)
	available := newFunction("get_available_force_fields", getAvailableForceFields)
	quantity := newClassObj(quantityClass)
	registry := theRegistry
	portal := newClassObj(portalClientClass)
	status := newClassObj(recordStatusEnumClass)
	opt := newClassObj(collectionClasses[optimizationKind])
	td := newClassObj(collectionClasses[torsionDriveKind])
	basic := newClassObj(collectionClasses[basicKind])
	filters := make(map[string]object)
	for name, c := range filterClasses {
		filters[name] = newClassObj(c)
	}
	ret := map[string]map[string]object{
		"openff.toolkit": {
			"Molecule":                   molecule,
			"Topology":                   topology,
			"ForceField":                 forcefield,
			"get_available_force_fields": available,
		},
		"openff.toolkit.topology":          {"Molecule": molecule, "Topology": topology},
		"openff.toolkit.topology.molecule": {"Molecule": molecule},
		"openff.toolkit.topology.topology": {"Topology": topology},
		"openff.toolkit.typing.engines.smirnoff": {
			"ForceField":                 forcefield,
			"get_available_force_fields": available,
		},
		"openff.toolkit.typing.engines.smirnoff.forcefield": {
			"ForceField":                 forcefield,
			"get_available_force_fields": available,
		},
		"openff.toolkit.typing.engines.smirnoff.parameters": handlerClassObjs(),
		"openff.toolkit.typing.engines.smirnoff.io":         {"XMLParameterIOHandler": newClassObj(xmlIOHandlerClass)},
		"openff.units":                                      {"unit": registry, "Quantity": quantity},
		"copy":                                              {"deepcopy": newFunction("deepcopy", copyDeepcopy)},
		"qcportal":                                          {"PortalClient": portal},
		"qcportal.client":                                   {"PortalClient": portal},
		"qcportal.record_models":                            {"RecordStatusEnum": status},
		"openff.qcsubmit.results": {
			"OptimizationResultCollection": opt,
			"TorsionDriveResultCollection": td,
			"BasicResultCollection":        basic,
		},
		"openff.qcsubmit.results.results": entryClassObjs(),
		"openff.qcsubmit.results.filters": filters,
	}
	for k, v := range entryClassObjs() {
		ret["openff.qcsubmit.results"][k] = v
	}
	return ret
}

func isXML(source string) bool {
	return strings.HasPrefix(strings.TrimSpace(source), "<")
}
