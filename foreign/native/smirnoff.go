/*
 * smirnoff.go, part of gopenff.
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
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

//xmlAttr is an attribute. Attributes are kept in document order.
type xmlAttr struct {
	Name  string
	Value string
}

//element is a node of a SMIRNOFF document.
type element struct {
	Tag      string
	Attrs    []xmlAttr
	Text     string
	Children []*element
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func setAttr(attrs []xmlAttr, name, value string) []xmlAttr {
	for i, a := range attrs {
		if a.Name == name {
			attrs[i].Value = value
			return attrs
		}
	}
	return append(attrs, xmlAttr{name, value})
}

func getAttr(attrs []xmlAttr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func copyAttrs(attrs []xmlAttr) []xmlAttr {
	return append([]xmlAttr(nil), attrs...)
}

func (e *element) copy() *element {
	ret := &element{Tag: e.Tag, Attrs: copyAttrs(e.Attrs), Text: e.Text}
	for _, c := range e.Children {
		ret.Children = append(ret.Children, c.copy())
	}
	return ret
}

//parseXML reads the root element of a document.
func parseXML(r io.Reader) (*element, error) {
	d := xml.NewDecoder(r)
	var stack []*element
	var root *element
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			e := &element{Tag: t.Name.Local}
			for _, a := range t.Attr {
				e.Attrs = append(e.Attrs, xmlAttr{a.Name.Local, a.Value})
			}
			if len(stack) > 0 {
				p := stack[len(stack)-1]
				p.Children = append(p.Children, e)
			} else if root != nil {
				return nil, fmt.Errorf("more than one root element")
			} else {
				root = e
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	var trim func(e *element)
	trim = func(e *element) {
		e.Text = strings.TrimSpace(e.Text)
		for _, c := range e.Children {
			trim(c)
		}
	}
	trim(root)
	return root, nil
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#10;", "\t", "&#9;")

func writeElement(w *bytes.Buffer, e *element, depth int) {
	indent := strings.Repeat("    ", depth)
	w.WriteString(indent + "<" + e.Tag)
	for _, a := range e.Attrs {
		w.WriteString(" " + a.Name + `="` + attrEscaper.Replace(a.Value) + `"`)
	}
	switch {
	case len(e.Children) == 0 && e.Text == "":
		w.WriteString("/>\n")
	case len(e.Children) == 0:
		w.WriteString(">")
		xml.EscapeText(w, []byte(e.Text))
		w.WriteString("</" + e.Tag + ">\n")
	default:
		w.WriteString(">\n")
		for _, c := range e.Children {
			writeElement(w, c, depth+1)
		}
		w.WriteString(indent + "</" + e.Tag + ">\n")
	}
}

func renderXML(root *element) string {
	var w bytes.Buffer
	w.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	writeElement(&w, root, 0)
	return w.String()
}

//elementDict converts e to nested maps, attributes and children by tag.
//Repeated children become lists, as do the parameters of a handler.
func elementDict(e *element, listTags map[string]bool) map[string]any {
	ret := make(map[string]any, len(e.Attrs)+len(e.Children))
	for _, a := range e.Attrs {
		ret[a.Name] = a.Value
	}
	for _, c := range e.Children {
		var v any
		if len(c.Children) == 0 && len(c.Attrs) == 0 {
			v = c.Text
		} else {
			v = elementDict(c, listTags)
		}
		prev, ok := ret[c.Tag]
		switch {
		case !ok && listTags[c.Tag]:
			ret[c.Tag] = []any{v}
		case !ok:
			ret[c.Tag] = v
		default:
			if l, isList := prev.([]any); isList {
				ret[c.Tag] = append(l, v)
			} else {
				ret[c.Tag] = []any{prev, v}
			}
		}
	}
	return ret
}

//handlerInfo describes a section of a SMIRNOFF document.
type handlerInfo struct {
	tag       string
	class     string
	elem      string //tag of the parameters, empty if the section has none
	paramType string
	version   string
}

var handlerInfos = []handlerInfo{
	{"Constraints", "ConstraintHandler", "Constraint", "ConstraintType", "0.3"},
	{"Bonds", "BondHandler", "Bond", "BondType", "0.4"},
	{"Angles", "AngleHandler", "Angle", "AngleType", "0.3"},
	{"ProperTorsions", "ProperTorsionHandler", "Proper", "ProperTorsionType", "0.4"},
	{"ImproperTorsions", "ImproperTorsionHandler", "Improper", "ImproperTorsionType", "0.3"},
	{"vdW", "vdWHandler", "Atom", "vdWType", "0.4"},
	{"Electrostatics", "ElectrostaticsHandler", "", "", "0.4"},
	{"LibraryCharges", "LibraryChargeHandler", "LibraryCharge", "LibraryChargeType", "0.3"},
	{"ToolkitAM1BCC", "ToolkitAM1BCCHandler", "", "", "0.3"},
	{"ChargeIncrementModel", "ChargeIncrementModelHandler", "ChargeIncrement", "ChargeIncrementType", "0.3"},
	{"GBSA", "GBSAHandler", "Atom", "GBSAType", "0.3"},
	{"VirtualSites", "VirtualSiteHandler", "VirtualSite", "VirtualSiteType", "0.3"},
}

func infoForTag(tag string) (handlerInfo, bool) {
	for _, h := range handlerInfos {
		if h.tag == tag {
			return h, true
		}
	}
	return handlerInfo{}, false
}

//parameter is one row of a handler.
type parameter struct {
	info     handlerInfo
	attrs    []xmlAttr
	children []*element
}

func (p *parameter) class() *class { return parameterClass(p.info) }

func (p *parameter) smirks() string {
	s, _ := getAttr(p.attrs, "smirks")
	return s
}

func (p *parameter) id() string {
	s, _ := getAttr(p.attrs, "id")
	return s
}

func (p *parameter) element() *element {
	e := &element{Tag: p.info.elem, Attrs: copyAttrs(p.attrs)}
	for _, c := range p.children {
		e.Children = append(e.Children, c.copy())
	}
	return e
}

func (p *parameter) copy() *parameter {
	return &parameter{info: p.info, attrs: copyAttrs(p.attrs), children: p.element().Children}
}

func (p *parameter) toDict() map[string]any {
	ret := make(map[string]any, len(p.attrs))
	for _, a := range p.attrs {
		ret[a.Name] = a.Value
	}
	return ret
}

//handler is a section of a force field, usually with parameters.
type handler struct {
	info   handlerInfo
	attrs  []xmlAttr
	params []*parameter
	extra  []*element //children that are not parameters
}

func (h *handler) class() *class { return handlerClass(h.info) }

func newHandler(info handlerInfo) *handler {
	return &handler{info: info, attrs: []xmlAttr{{"version", info.version}}}
}

func (h *handler) find(smirks string) int {
	for i, p := range h.params {
		if p.smirks() == smirks {
			return i
		}
	}
	return -1
}

//add inserts p at position i, or at the end if i < 0. Duplicated SMIRKS are an error
//unless dup is true.
func (h *handler) add(p *parameter, i int, dup bool) error {
	if s := p.smirks(); s == "" {
		return fmt.Errorf("SMIRNOFFSpecError: %s parameter without SMIRKS", h.info.tag)
	} else if !dup && h.find(s) >= 0 {
		return fmt.Errorf("DuplicateParameterError: a parameter SMIRKS pattern %s already exists in the %s handler", s, h.info.tag)
	}
	if i < 0 || i >= len(h.params) {
		h.params = append(h.params, p)
		return nil
	}
	h.params = append(h.params[:i+1], h.params[i:]...)
	h.params[i] = p
	return nil
}

func (h *handler) element() *element {
	e := &element{Tag: h.info.tag, Attrs: copyAttrs(h.attrs)}
	for _, c := range h.extra {
		e.Children = append(e.Children, c.copy())
	}
	for _, p := range h.params {
		e.Children = append(e.Children, p.element())
	}
	return e
}

func (h *handler) toDict() map[string]any {
	ret := make(map[string]any, len(h.attrs)+1)
	for _, a := range h.attrs {
		ret[a.Name] = a.Value
	}
	if h.info.elem != "" {
		l := make([]any, len(h.params))
		for i, p := range h.params {
			l[i] = p.toDict()
		}
		ret[h.info.elem] = l
	}
	return ret
}

//merge adds the content of the section e to h.
func (h *handler) merge(e *element) error {
	for _, a := range e.Attrs {
		prev, ok := getAttr(h.attrs, a.Name)
		switch {
		case !ok:
			h.attrs = append(h.attrs, a)
		case a.Name == "version":
			//the newest version wins
			if compareVersions(a.Value, prev) > 0 {
				h.attrs = setAttr(h.attrs, a.Name, a.Value)
			}
		case prev != a.Value:
			return fmt.Errorf("IncompatibleParameterError: %s attribute %s is %q, but %q was given", h.info.tag, a.Name, prev, a.Value)
		}
	}
	for _, c := range e.Children {
		if h.info.elem == "" || c.Tag != h.info.elem {
			h.extra = append(h.extra, c.copy())
			continue
		}
		p := &parameter{info: h.info, attrs: copyAttrs(c.Attrs)}
		for _, cc := range c.Children {
			p.children = append(p.children, cc.copy())
		}
		if err := h.add(p, -1, false); err != nil {
			return err
		}
	}
	return nil
}

func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y string
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if len(x) != len(y) {
			return len(x) - len(y)
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

//genericInfo describes a section the runtime does not know. Its parameters are the
//children with the tag of the first child.
func genericInfo(e *element) handlerInfo {
	info := handlerInfo{tag: e.Tag, class: "ParameterHandler", version: "0.3"}
	if len(e.Children) > 0 {
		info.elem = e.Children[0].Tag
		info.paramType = "ParameterType"
	}
	return info
}
