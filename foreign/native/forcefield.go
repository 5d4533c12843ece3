/*
 * forcefield.go, part of gopenff.
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
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rmera/gopenff/foreign"
)

//DefaultAromaticityModel is the aromaticity model of new force fields.
const DefaultAromaticityModel = "OEAroModel_MDL"

const smirnoffVersion = "0.3"

type forceField struct {
	aromaticity string
	author      string
	date        string
	version     string
	rootAttrs   []xmlAttr //other attributes of the SMIRNOFF element
	handlers    []*handler
	io          []*ioHandler
}

func (f *forceField) class() *class { return forceFieldClass }

func newForceField() *forceField {
	return &forceField{aromaticity: DefaultAromaticityModel, version: smirnoffVersion, io: []*ioHandler{{format: "XML"}}}
}

func (f *forceField) handler(tag string) (*handler, int) {
	for i, h := range f.handlers {
		if h.info.tag == tag {
			return h, i
		}
	}
	return nil, -1
}

//load adds the content of a SMIRNOFF document to f.
func (f *forceField) load(root *element) error {
	if root.Tag != "SMIRNOFF" {
		return fmt.Errorf("SMIRNOFFParseError: root element is %s, not SMIRNOFF", root.Tag)
	}
	for _, a := range root.Attrs {
		switch a.Name {
		case "version":
			if compareVersions(a.Value, f.version) > 0 {
				f.version = a.Value
			}
		case "aromaticity_model":
			if len(f.handlers) > 0 && f.aromaticity != a.Value {
				return fmt.Errorf("SMIRNOFFAromaticityError: aromaticity model %s is incompatible with %s", a.Value, f.aromaticity)
			}
			f.aromaticity = a.Value
		default:
			f.rootAttrs = setAttr(f.rootAttrs, a.Name, a.Value)
		}
	}
	for _, c := range root.Children {
		switch c.Tag {
		case "Author":
			f.author = joinMeta(f.author, c.Text)
			continue
		case "Date":
			f.date = joinMeta(f.date, c.Text)
			continue
		}
		h, _ := f.handler(c.Tag)
		if h == nil {
			info, ok := infoForTag(c.Tag)
			if !ok {
				info = genericInfo(c)
			}
			h = &handler{info: info}
			f.handlers = append(f.handlers, h)
		}
		if err := h.merge(c); err != nil {
			return err
		}
	}
	return nil
}

func joinMeta(prev, s string) string {
	switch {
	case s == "" || s == prev:
		return prev
	case prev == "":
		return s
	}
	return prev + " AND " + s
}

func (f *forceField) element() *element {
	root := &element{Tag: "SMIRNOFF", Attrs: []xmlAttr{{"version", f.version}, {"aromaticity_model", f.aromaticity}}}
	root.Attrs = append(root.Attrs, f.rootAttrs...)
	if f.author != "" {
		root.Children = append(root.Children, &element{Tag: "Author", Text: f.author})
	}
	if f.date != "" {
		root.Children = append(root.Children, &element{Tag: "Date", Text: f.date})
	}
	for _, h := range f.handlers {
		root.Children = append(root.Children, h.element())
	}
	return root
}

func (f *forceField) String() string {
	return renderXML(f.element())
}

//readSource returns the SMIRNOFF document in source: XML text, a path, or the name of a file
//in the search paths.
func (b *Backend) readSource(source string) (*element, error) {
	if isXML(source) {
		return parseXML(strings.NewReader(source))
	}
	candidates := []string{source}
	if !filepath.IsAbs(source) {
		for _, d := range b.searchPaths() {
			candidates = append(candidates, filepath.Join(d, source))
		}
	}
	for _, c := range candidates {
		fin, err := os.Open(c)
		if err != nil {
			continue
		}
		defer fin.Close()
		root, err := parseXML(fin)
		if err != nil {
			return nil, fmt.Errorf("SMIRNOFFParseError: %s: %w", c, err)
		}
		return root, nil
	}
	return nil, fmt.Errorf("OSError: source '%s' could not be read. If this is a file, ensure that the path is correct", source)
}

//copyDeepcopy is copy.deepcopy, for the objects that can be copied in the native runtime.
func copyDeepcopy(b *Backend, _ object, a *args) (any, error) {
	v, err := a.required(0, "x")
	if err != nil {
		return nil, err
	}
	if err := a.done(); err != nil {
		return nil, err
	}
	r, ok := v.(foreign.Ref)
	if !ok {
		//plain values arrive as copies
		return v, nil
	}
	o, err := b.lookup(r)
	if err != nil {
		return nil, err
	}
	switch t := o.(type) {
	case *parameter:
		return t.copy(), nil
	case *molecule:
		return t.copy(), nil
	}
	return nil, external(nil, "deepcopy", "TypeError: cannot copy '%s' object", o.class().name)
}

func getAvailableForceFields(b *Backend, _ object, a *args) (any, error) {
	full, err := a.boolean(0, "full_paths", ptr(false))
	if err != nil {
		return nil, err
	}
	if err := a.done(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	ret := make([]any, 0)
	for _, d := range b.searchPaths() {
		matches, _ := filepath.Glob(filepath.Join(d, "*.offxml"))
		sort.Strings(matches)
		for _, m := range matches {
			name := filepath.Base(m)
			if seen[name] {
				continue
			}
			seen[name] = true
			if full {
				ret = append(ret, m)
			} else {
				ret = append(ret, name)
			}
		}
	}
	return ret, nil
}

//ioHandler writes and reads force fields in one format.
type ioHandler struct {
	format string
}

func (h *ioHandler) class() *class { return xmlIOHandlerClass }

var xmlIOHandlerClass = &class{
	name: "XMLParameterIOHandler",
	props: map[string]prop{
		"_FORMAT": {get: func(b *Backend, self object) (any, error) { return self.(*ioHandler).format, nil }},
		"format":  {get: func(b *Backend, self object) (any, error) { return self.(*ioHandler).format, nil }},
	},
	methods: map[string]method{
		"parse_string": func(b *Backend, self object, a *args) (any, error) {
			s, err := a.str(0, "data", nil)
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			root, err := parseXML(strings.NewReader(s))
			if err != nil {
				return nil, external(self, "parse_string", "SMIRNOFFParseError: %s", err.Error())
			}
			return map[string]any{root.Tag: elementDict(root, listTags())}, nil
		},
	},
	new: func(b *Backend, _ object, a *args) (any, error) {
		if err := a.done(); err != nil {
			return nil, err
		}
		return &ioHandler{format: "XML"}, nil
	},
}

//listTags returns the tags that are always lists in dictionaries.
func listTags() map[string]bool {
	ret := make(map[string]bool)
	for _, h := range handlerInfos {
		if h.elem != "" {
			ret[h.elem] = true
		}
	}
	return ret
}

func handlerArg(b *Backend, a *args, i int, name string) (*handler, error) {
	o, err := a.obj(b, i, name, false)
	if err != nil {
		return nil, err
	}
	h, ok := o.(*handler)
	if !ok {
		return nil, a.err("argument '%s': expected a ParameterHandler, got %s", name, o.class().name)
	}
	return h, nil
}

func ffString(name string) prop {
	return prop{
		get: func(b *Backend, self object) (any, error) {
			f := self.(*forceField)
			switch name {
			case "author":
				return f.author, nil
			case "date":
				return f.date, nil
			}
			return f.aromaticity, nil
		},
		set: func(b *Backend, self object, v any) error {
			s, ok := v.(string)
			if !ok {
				return external(self, name, "TypeError: %s must be a str, not %s", name, typeName(v))
			}
			f := self.(*forceField)
			switch name {
			case "author":
				f.author = s
			case "date":
				f.date = s
			default:
				if s != "OEAroModel_MDL" {
					return external(self, name, "SMIRNOFFAromaticityError: aromaticity model %s is not supported", s)
				}
				f.aromaticity = s
			}
			return nil
		},
	}
}

var forceFieldClass = &class{
	name: "ForceField",
	props: map[string]prop{
		"aromaticity_model": ffString("aromaticity_model"),
		"author":            ffString("author"),
		"date":              ffString("date"),
		"registered_parameter_handlers": {get: func(b *Backend, self object) (any, error) {
			f := self.(*forceField)
			ret := make([]any, len(f.handlers))
			for i, h := range f.handlers {
				ret[i] = h.info.tag
			}
			return ret, nil
		}},
	},
	methods: map[string]method{
		"get_parameter_handler": func(b *Backend, self object, a *args) (any, error) {
			tag, err := a.str(0, "tagname", nil)
			if err != nil {
				return nil, err
			}
			a.get(1, "handler_kwargs")
			a.get(2, "allow_cosmetic_attributes")
			if err := a.done(); err != nil {
				return nil, err
			}
			f := self.(*forceField)
			if h, _ := f.handler(tag); h != nil {
				return h, nil
			}
			info, ok := infoForTag(tag)
			if !ok {
				return nil, external(self, "get_parameter_handler", "KeyError: cannot find a registered parameter handler class for tag '%s'", tag)
			}
			h := newHandler(info)
			f.handlers = append(f.handlers, h)
			return h, nil
		},
		"register_parameter_handler": func(b *Backend, self object, a *args) (any, error) {
			h, err := handlerArg(b, a, 0, "parameter_handler")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			f := self.(*forceField)
			if prev, _ := f.handler(h.info.tag); prev != nil {
				return nil, external(self, "register_parameter_handler", "ParameterHandlerRegistrationError: a handler for tag %s is already registered", h.info.tag)
			}
			f.handlers = append(f.handlers, h)
			return nil, nil
		},
		"deregister_parameter_handler": func(b *Backend, self object, a *args) (any, error) {
			v, err := a.required(0, "handler")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			tag, ok := v.(string)
			if !ok {
				h, err := handlerArg(b, a, 0, "handler")
				if err != nil {
					return nil, err
				}
				tag = h.info.tag
			}
			f := self.(*forceField)
			_, i := f.handler(tag)
			if i < 0 {
				return nil, external(self, "deregister_parameter_handler", "KeyError: there is no registered parameter handler for tag %s", tag)
			}
			f.handlers = append(f.handlers[:i], f.handlers[i+1:]...)
			return nil, nil
		},
		"get_parameter_io_handler": func(b *Backend, self object, a *args) (any, error) {
			format, err := a.str(0, "io_format", nil)
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			for _, h := range self.(*forceField).io {
				if strings.EqualFold(h.format, format) {
					return h, nil
				}
			}
			return nil, external(self, "get_parameter_io_handler", "KeyError: cannot find a registered parameter IO handler for format '%s'", format)
		},
		"register_parameter_io_handler": func(b *Backend, self object, a *args) (any, error) {
			o, err := a.obj(b, 0, "io_handler", false)
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			h, ok := o.(*ioHandler)
			if !ok {
				return nil, a.err("argument 'io_handler': expected a ParameterIOHandler, got %s", o.class().name)
			}
			f := self.(*forceField)
			for _, prev := range f.io {
				if strings.EqualFold(prev.format, h.format) {
					return nil, external(self, "register_parameter_io_handler", "ParameterHandlerRegistrationError: an IO handler for format %s is already registered", h.format)
				}
			}
			f.io = append(f.io, h)
			return nil, nil
		},
		"parse_sources": func(b *Backend, self object, a *args) (any, error) {
			srcs, err := a.list(0, "sources", false)
			if err != nil {
				return nil, err
			}
			a.get(1, "allow_cosmetic_attributes")
			if err := a.done(); err != nil {
				return nil, err
			}
			f := self.(*forceField)
			for i, v := range srcs {
				s, ok := v.(string)
				if !ok {
					return nil, a.err("argument 'sources': item %d is a %s, not a str", i, typeName(v))
				}
				root, err := b.readSource(s)
				if err != nil {
					return nil, external(self, "parse_sources", "%s", err.Error())
				}
				if err := f.load(root); err != nil {
					return nil, external(self, "parse_sources", "%s", err.Error())
				}
			}
			return nil, nil
		},
		"parse_smirnoff_from_source": func(b *Backend, self object, a *args) (any, error) {
			s, err := a.str(0, "source", nil)
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			root, err := b.readSource(s)
			if err != nil {
				return nil, external(self, "parse_smirnoff_from_source", "%s", err.Error())
			}
			return map[string]any{root.Tag: elementDict(root, listTags())}, nil
		},
		"to_string": func(b *Backend, self object, a *args) (any, error) {
			format, err := a.str(0, "io_format", ptr("XML"))
			if err != nil {
				return nil, err
			}
			a.get(1, "discard_cosmetic_attributes")
			if err := a.done(); err != nil {
				return nil, err
			}
			if !strings.EqualFold(format, "XML") {
				return nil, external(self, "to_string", "KeyError: cannot find a registered parameter IO handler for format '%s'", format)
			}
			return self.(*forceField).String(), nil
		},
		"to_file": func(b *Backend, self object, a *args) (any, error) {
			name, err := a.str(0, "filename", nil)
			if err != nil {
				return nil, err
			}
			format, err := a.str(1, "io_format", ptr(""))
			if err != nil {
				return nil, err
			}
			a.get(2, "discard_cosmetic_attributes")
			if err := a.done(); err != nil {
				return nil, err
			}
			if format == "" {
				ext := strings.ToLower(filepath.Ext(name))
				if ext != ".offxml" && ext != ".xml" {
					return nil, external(self, "to_file", "KeyError: cannot infer the format of %s", name)
				}
			} else if !strings.EqualFold(format, "XML") {
				return nil, external(self, "to_file", "KeyError: cannot find a registered parameter IO handler for format '%s'", format)
			}
			if err := os.WriteFile(name, []byte(self.(*forceField).String()), 0644); err != nil {
				return nil, external(self, "to_file", "OSError: %s", err.Error())
			}
			return nil, nil
		},
		"create_openmm_system": pythonOnly("create_openmm_system"),
		"create_interchange":   pythonOnly("create_interchange"),
		"label_molecules":      pythonOnly("label_molecules"),
		"get_partial_charges":  pythonOnly("get_partial_charges"),
	},
	new: func(b *Backend, _ object, a *args) (any, error) {
		f := newForceField()
		for i, v := range a.pos {
			s, ok := v.(string)
			if !ok {
				return nil, a.err("source %d is a %s, not a str", i, typeName(v))
			}
			root, err := b.readSource(s)
			if err != nil {
				return nil, external(nil, "ForceField", "%s", err.Error())
			}
			if err := f.load(root); err != nil {
				return nil, external(nil, "ForceField", "%s", err.Error())
			}
		}
		a.maxPos = len(a.pos)
		if arom, ok := a.get(-1, "aromaticity_model"); ok {
			s, isStr := arom.(string)
			if !isStr {
				return nil, a.err("argument 'aromaticity_model': expected str, got %s", typeName(arom))
			}
			f.aromaticity = s
		}
		for _, k := range []string{"parameter_handler_classes", "parameter_io_handler_classes", "disable_version_check", "allow_cosmetic_attributes", "load_plugins"} {
			a.get(-1, k)
		}
		if err := a.done(); err != nil {
			return nil, err
		}
		return f, nil
	},
}

//handler and parameter classes are built per section tag, and shared.
var (
	classMu        sync.Mutex
	handlerTypes   = make(map[string]*class)
	parameterTypes = make(map[string]*class)
)

func handlerClass(info handlerInfo) *class {
	classMu.Lock()
	defer classMu.Unlock()
	key := info.tag
	if c, ok := handlerTypes[key]; ok {
		return c
	}
	c := &class{
		name:    info.class,
		props:   handlerProps,
		methods: handlerMethods,
		new:     newHandlerMethod(info),
	}
	handlerTypes[key] = c
	return c
}

func parameterClass(info handlerInfo) *class {
	classMu.Lock()
	defer classMu.Unlock()
	key := info.tag
	if c, ok := parameterTypes[key]; ok {
		return c
	}
	name := info.paramType
	if name == "" {
		name = "ParameterType"
	}
	c := &class{
		name:    name,
		props:   parameterProps,
		methods: parameterMethods,
		dynamic: parameterAttr,
	}
	parameterTypes[key] = c
	return c
}

//handlerClassObjs returns the importable handler classes.
func handlerClassObjs() map[string]object {
	ret := make(map[string]object, len(handlerInfos))
	for _, info := range handlerInfos {
		ret[info.class] = newClassObj(handlerClass(info))
	}
	return ret
}

func newHandlerMethod(info handlerInfo) method {
	return func(b *Backend, _ object, a *args) (any, error) {
		h := newHandler(info)
		keys := make([]string, 0, len(a.kw))
		for k := range a.kw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			a.get(-1, k)
			switch k {
			case "allow_cosmetic_attributes", "skip_version_check":
				continue
			}
			s, err := attrString(b, a.kw[k])
			if err != nil {
				return nil, a.err("argument '%s': %s", k, err.Error())
			}
			h.attrs = setAttr(h.attrs, k, s)
		}
		if err := a.done(); err != nil {
			return nil, err
		}
		return h, nil
	}
}

//attrString formats v as the value of an XML attribute.
func attrString(b *Backend, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return pyFloat(t), nil
	case foreign.Ref:
		o, err := b.lookup(t)
		if err != nil {
			return "", err
		}
		if q, ok := o.(*quantity); ok {
			if _, isScalar := q.mag.(float64); isScalar {
				return formatMagnitude(q.mag) + " * " + q.unit.name, nil
			}
		}
		if u, ok := o.(*unitObj); ok {
			return u.name, nil
		}
		return "", fmt.Errorf("a %s can't be an attribute", t.Class)
	}
	return "", fmt.Errorf("a %s can't be an attribute", typeName(v))
}

//attrValue interprets the text of an attribute: an int, a float, a quantity or a string.
func attrValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if q, err := parseQuantity(s); err == nil {
		return q
	}
	return s
}

//indexed returns the values of the attributes name1, name2, ... of p.
func indexed(attrs []xmlAttr, name string) []any {
	ret := make([]any, 0)
	for i := 1; ; i++ {
		s, ok := getAttr(attrs, name+strconv.Itoa(i))
		if !ok {
			return ret
		}
		ret = append(ret, attrValue(s))
	}
}

func parameterAttr(b *Backend, self object, name string) (any, bool, error) {
	p := self.(*parameter)
	if s, ok := getAttr(p.attrs, name); ok {
		return attrValue(s), true, nil
	}
	if l := indexed(p.attrs, name); len(l) > 0 {
		return l, true, nil
	}
	return nil, false, nil
}

func paramString(name string) prop {
	return prop{
		get: func(b *Backend, self object) (any, error) {
			s, _ := getAttr(self.(*parameter).attrs, name)
			return s, nil
		},
		set: func(b *Backend, self object, v any) error {
			s, ok := v.(string)
			if !ok {
				return external(self, name, "TypeError: %s must be a str, not %s", name, typeName(v))
			}
			p := self.(*parameter)
			p.attrs = setAttr(p.attrs, name, s)
			return nil
		},
	}
}

var parameterProps = map[string]prop{
	"id":     paramString("id"),
	"smirks": paramString("smirks"),
	"_ELEMENT_NAME": {get: func(b *Backend, self object) (any, error) {
		return self.(*parameter).info.elem, nil
	}},
	"attribute_names": {get: func(b *Backend, self object) (any, error) {
		p := self.(*parameter)
		ret := make([]any, len(p.attrs))
		for i, a := range p.attrs {
			ret[i] = a.Name
		}
		return ret, nil
	}},
}

var parameterMethods = map[string]method{
	"to_dict": func(b *Backend, self object, a *args) (any, error) {
		a.get(0, "discard_cosmetic_attributes")
		a.get(1, "duplicate_attributes")
		if err := a.done(); err != nil {
			return nil, err
		}
		return self.(*parameter).toDict(), nil
	},
}

//paramList is the parameters attribute of a handler, a live view.
type paramList struct {
	h *handler
}

func (l *paramList) class() *class { return paramListClass }

func (l *paramList) index(b *Backend, self object, a *args, name string) (int, error) {
	v, err := a.required(0, "key")
	if err != nil {
		return -1, err
	}
	switch t := v.(type) {
	case int64:
		i := int(t)
		if i < 0 {
			i += len(l.h.params)
		}
		if i < 0 || i >= len(l.h.params) {
			return -1, external(self, name, "IndexError: list index out of range")
		}
		return i, nil
	case string:
		for i, p := range l.h.params {
			if p.smirks() == t || p.id() == t {
				return i, nil
			}
		}
		return -1, external(self, name, "ParameterLookupError: SMIRKS %s not found in ParameterList", t)
	}
	return -1, a.err("argument 'key': expected int or str, got %s", typeName(v))
}

var paramListClass = &class{
	name: "ParameterList",
	methods: map[string]method{
		"copy": func(b *Backend, self object, a *args) (any, error) {
			if err := a.done(); err != nil {
				return nil, err
			}
			l := self.(*paramList)
			ret := make([]any, len(l.h.params))
			for i, p := range l.h.params {
				ret[i] = p
			}
			return ret, nil
		},
		"clear": func(b *Backend, self object, a *args) (any, error) {
			if err := a.done(); err != nil {
				return nil, err
			}
			self.(*paramList).h.params = nil
			return nil, nil
		},
		"__len__": func(b *Backend, self object, a *args) (any, error) {
			if err := a.done(); err != nil {
				return nil, err
			}
			return len(self.(*paramList).h.params), nil
		},
		"__getitem__": func(b *Backend, self object, a *args) (any, error) {
			l := self.(*paramList)
			i, err := l.index(b, self, a, "__getitem__")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			return l.h.params[i], nil
		},
		"__delitem__": func(b *Backend, self object, a *args) (any, error) {
			l := self.(*paramList)
			i, err := l.index(b, self, a, "__delitem__")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			l.h.params = append(l.h.params[:i], l.h.params[i+1:]...)
			return nil, nil
		},
	},
}

var handlerProps = map[string]prop{
	"TAGNAME":   {get: func(b *Backend, self object) (any, error) { return self.(*handler).info.tag, nil }},
	"_TAGNAME":  {get: func(b *Backend, self object) (any, error) { return self.(*handler).info.tag, nil }},
	"_INFOTYPE": {get: func(b *Backend, self object) (any, error) { return self.(*handler).info.paramType, nil }},
	"version": {get: func(b *Backend, self object) (any, error) {
		s, _ := getAttr(self.(*handler).attrs, "version")
		return s, nil
	}},
	"parameters": {get: func(b *Backend, self object) (any, error) {
		return &paramList{h: self.(*handler)}, nil
	}},
	"attributes": {get: func(b *Backend, self object) (any, error) {
		h := self.(*handler)
		ret := make(map[string]any, len(h.attrs))
		for _, a := range h.attrs {
			ret[a.Name] = attrValue(a.Value)
		}
		return ret, nil
	}},
}

var handlerMethods = map[string]method{
	"get_parameter": func(b *Backend, self object, a *args) (any, error) {
		v, err := a.required(0, "parameter_attrs")
		if err != nil {
			return nil, err
		}
		if err := a.done(); err != nil {
			return nil, err
		}
		want, ok := v.(map[string]any)
		if !ok {
			return nil, a.err("argument 'parameter_attrs': expected dict, got %s", typeName(v))
		}
		ret := make([]any, 0)
	params:
		for _, p := range self.(*handler).params {
			for k, w := range want {
				s, ok := getAttr(p.attrs, k)
				if !ok {
					continue params
				}
				ws, err := attrString(b, w)
				if err != nil || ws != s {
					continue params
				}
			}
			ret = append(ret, p)
		}
		return ret, nil
	},
	"add_parameter": func(b *Backend, self object, a *args) (any, error) {
		h := self.(*handler)
		kw, err := a.required(0, "parameter_kwargs")
		if err != nil {
			kw = nil
		}
		pv, _ := a.get(1, "parameter")
		after, _ := a.get(2, "after")
		before, _ := a.get(3, "before")
		dup, err := a.boolean(-1, "allow_duplicate_smirks", ptr(false))
		if err != nil {
			return nil, err
		}
		if err := a.done(); err != nil {
			return nil, err
		}
		if (kw == nil) == (pv == nil) {
			return nil, external(self, "add_parameter", "ValueError: one of parameter_kwargs and parameter must be given")
		}
		var p *parameter
		if pv != nil {
			r, ok := pv.(foreign.Ref)
			if !ok {
				return nil, a.err("argument 'parameter': expected a parameter, got %s", typeName(pv))
			}
			o, err := b.lookup(r)
			if err != nil {
				return nil, err
			}
			src, ok := o.(*parameter)
			if !ok {
				return nil, a.err("argument 'parameter': expected a parameter, got %s", o.class().name)
			}
			if src.info.elem != h.info.elem {
				return nil, external(self, "add_parameter", "ValueError: this parameter is of type %s, not %s", src.info.paramType, h.info.paramType)
			}
			//the toolkit adds the object itself
			p = src
		} else {
			d, ok := kw.(map[string]any)
			if !ok {
				return nil, a.err("argument 'parameter_kwargs': expected dict, got %s", typeName(kw))
			}
			p, err = parameterFromDict(b, h.info, d)
			if err != nil {
				return nil, external(self, "add_parameter", "%s", err.Error())
			}
		}
		pos := -1
		if after != nil && before != nil {
			return nil, external(self, "add_parameter", "ValueError: after and before can't both be given")
		}
		for k, ref := range []any{after, before} {
			if ref == nil {
				continue
			}
			l := &paramList{h: h}
			i, err := l.index(b, self, newArgs(h.info.class, "add_parameter", []any{ref}, nil), "add_parameter")
			if err != nil {
				return nil, err
			}
			pos = i
			if k == 0 {
				pos = i + 1
			}
		}
		if err := h.add(p, pos, dup); err != nil {
			return nil, external(self, "add_parameter", "%s", err.Error())
		}
		return nil, nil
	},
	"to_dict": func(b *Backend, self object, a *args) (any, error) {
		a.get(0, "discard_cosmetic_attributes")
		if err := a.done(); err != nil {
			return nil, err
		}
		return self.(*handler).toDict(), nil
	},
}

//parameterFromDict builds a parameter. Lists become indexed attributes (k1, k2, ...).
func parameterFromDict(b *Backend, info handlerInfo, d map[string]any) (*parameter, error) {
	if info.elem == "" {
		return nil, fmt.Errorf("ValueError: the %s section has no parameters", info.tag)
	}
	p := &parameter{info: info}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	//smirks and id go first, like in the files
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := attrRank(keys[i]), attrRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if l, ok := d[k].([]any); ok {
			for i, v := range l {
				s, err := attrString(b, v)
				if err != nil {
					return nil, fmt.Errorf("TypeError: %s: %s", k, err.Error())
				}
				p.attrs = append(p.attrs, xmlAttr{k + strconv.Itoa(i+1), s})
			}
			continue
		}
		s, err := attrString(b, d[k])
		if err != nil {
			return nil, fmt.Errorf("TypeError: %s: %s", k, err.Error())
		}
		p.attrs = append(p.attrs, xmlAttr{k, s})
	}
	if p.smirks() == "" {
		return nil, fmt.Errorf("SMIRNOFFSpecError: missing required attribute smirks")
	}
	return p, nil
}

func attrRank(k string) int {
	switch k {
	case "smirks":
		return 0
	case "id":
		return 1
	}
	return 2
}
