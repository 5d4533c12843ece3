/*
 * collection.go, part of gopenff.
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
	"strings"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"

	chem "github.com/rmera/gopenff"
	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/internal/zio"
	v3 "github.com/rmera/gopenff/v3"
)

//collectionKind describes one kind of result collection.
type collectionKind struct {
	class       string //the collection class
	entryClass  string
	entryType   string //the "type" of the entries
	datasetType string //the type of the datasets it is downloaded from
}

const (
	optimizationKind = "OptimizationResultCollection"
	torsionDriveKind = "TorsionDriveResultCollection"
	basicKind        = "BasicResultCollection"
)

var collectionKinds = map[string]*collectionKind{
	optimizationKind: {optimizationKind, "OptimizationResult", "optimization", "optimization"},
	torsionDriveKind: {torsionDriveKind, "TorsionDriveResult", "torsion", "torsiondrive"},
	basicKind:        {basicKind, "BasicResult", "basic", "singlepoint"},
}

//entryObj is a reference to one record of a collection. Entries are immutable,
//so collections share them.
type entryObj struct {
	kind     *collectionKind
	recordID int64
	cmiles   string
	inchiKey string
	record   map[string]any //offline record data, nil if absent
}

func (e *entryObj) class() *class { return entryClasses[e.kind.class] }

//entryJSON is the serialized form of an entry.
type entryJSON struct {
	Type     string         `json:"type"`
	RecordID int64          `json:"record_id"`
	CMILES   string         `json:"cmiles"`
	InChIKey string         `json:"inchi_key"`
	Record   map[string]any `json:"record,omitempty"`
}

func (e *entryObj) toJSON() entryJSON {
	return entryJSON{Type: e.kind.entryType, RecordID: e.recordID, CMILES: e.cmiles, InChIKey: e.inchiKey, Record: e.record}
}

func (e *entryObj) toDict() map[string]any {
	ret := map[string]any{
		"type":      e.kind.entryType,
		"record_id": e.recordID,
		"cmiles":    e.cmiles,
		"inchi_key": e.inchiKey,
	}
	if e.record != nil {
		ret["record"] = e.record
	}
	return ret
}

func entryFromDict(kind *collectionKind, d map[string]any) (*entryObj, error) {
	e := &entryObj{kind: kind}
	if t, ok := d["type"]; ok && t != kind.entryType {
		return nil, fmt.Errorf("ValidationError: entry type %v, expected %s", t, kind.entryType)
	}
	var ok bool
	if e.recordID, ok = d["record_id"].(int64); !ok {
		return nil, fmt.Errorf("ValidationError: record_id must be an int, not %s", typeName(d["record_id"]))
	}
	if e.cmiles, ok = d["cmiles"].(string); !ok {
		return nil, fmt.Errorf("ValidationError: cmiles must be a str, not %s", typeName(d["cmiles"]))
	}
	if e.inchiKey, ok = d["inchi_key"].(string); !ok {
		return nil, fmt.Errorf("ValidationError: inchi_key must be a str, not %s", typeName(d["inchi_key"]))
	}
	if r, isMap := d["record"].(map[string]any); isMap {
		e.record = r
	}
	return e, nil
}

//collection is a set of entries, by server address.
type collection struct {
	kind       *collectionKind
	keys       []string
	entries    map[string][]*entryObj
	provenance map[string]any
}

func (c *collection) class() *class { return collectionClasses[c.kind.class] }

func newCollection(kind *collectionKind) *collection {
	return &collection{kind: kind, entries: make(map[string][]*entryObj), provenance: map[string]any{}}
}

//copy returns a collection with the same keys and entries, and a deep copy of the provenance.
func (c *collection) copy() *collection {
	ret := newCollection(c.kind)
	ret.keys = append([]string(nil), c.keys...)
	for k, v := range c.entries {
		ret.entries[k] = append([]*entryObj(nil), v...)
	}
	ret.provenance = deepCopy(c.provenance).(map[string]any)
	return ret
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		ret := make(map[string]any, len(t))
		for k, e := range t {
			ret[k] = deepCopy(e)
		}
		return ret
	case []any:
		ret := make([]any, len(t))
		for i, e := range t {
			ret[i] = deepCopy(e)
		}
		return ret
	}
	return v
}

func (c *collection) set(key string, entries []*entryObj) {
	if _, ok := c.entries[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.entries[key] = entries
}

func (c *collection) all() []*entryObj {
	ret := make([]*entryObj, 0)
	for _, k := range c.keys {
		ret = append(ret, c.entries[k]...)
	}
	return ret
}

//keep returns a copy of c with only the entries for which f returns true.
func (c *collection) keep(f func(e *entryObj) (bool, error)) (*collection, error) {
	ret := c.copy()
	for _, k := range ret.keys {
		kept := make([]*entryObj, 0, len(ret.entries[k]))
		for _, e := range ret.entries[k] {
			ok, err := f(e)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, e)
			}
		}
		ret.entries[k] = kept
	}
	return ret, nil
}

type collectionJSON struct {
	Entries    map[string][]entryJSON `json:"entries"`
	Provenance map[string]any         `json:"provenance"`
	Type       string                 `json:"type"`
}

func (c *collection) json(indent int) (string, error) {
	out := collectionJSON{Entries: make(map[string][]entryJSON, len(c.keys)), Provenance: c.provenance, Type: c.kind.class}
	for _, k := range c.keys {
		out.Entries[k] = lo.Map(c.entries[k], func(e *entryObj, _ int) entryJSON { return e.toJSON() })
	}
	var data []byte
	var err error
	if indent > 0 {
		data, err = json.MarshalIndentWithOption(out, "", strings.Repeat(" ", indent), json.DisableHTMLEscape())
	} else {
		data, err = json.MarshalWithOption(out, json.DisableHTMLEscape())
	}
	return string(data), err
}

//parseCollection reads a serialized collection of the given kind.
func parseCollection(kind *collectionKind, data []byte) (*collection, error) {
	var raw map[string]any
	if err := decodeJSON(data, &raw); err != nil {
		return nil, fmt.Errorf("ValidationError: %s", err.Error())
	}
	if t, ok := raw["type"]; ok && t != kind.class {
		return nil, fmt.Errorf("ValidationError: collection of type %v, expected %s", t, kind.class)
	}
	c := newCollection(kind)
	entries, ok := raw["entries"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ValidationError: field required: entries")
	}
	if err := c.setEntries(entries, nil); err != nil {
		return nil, err
	}
	if p, ok := raw["provenance"].(map[string]any); ok {
		c.provenance = p
	}
	return c, nil
}

//setEntries replaces all the entries. Lists contain entry objects or dicts.
//Keys present before keep their position.
func (c *collection) setEntries(m map[string]any, b *Backend) error {
	keys := make([]string, 0, len(m))
	for _, k := range c.keys {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	added := lo.Filter(lo.Keys(m), func(k string, _ int) bool { return !lo.Contains(c.keys, k) })
	sort.Strings(added)
	keys = append(keys, added...)
	entries := make(map[string][]*entryObj, len(keys))
	for _, k := range keys {
		l, ok := m[k].([]any)
		if !ok && m[k] != nil {
			return fmt.Errorf("ValidationError: entries[%q] must be a list, not %s", k, typeName(m[k]))
		}
		list := make([]*entryObj, 0, len(l))
		for i, v := range l {
			switch t := v.(type) {
			case map[string]any:
				e, err := entryFromDict(c.kind, t)
				if err != nil {
					return fmt.Errorf("entries[%q][%d]: %w", k, i, err)
				}
				list = append(list, e)
			default:
				e, err := entryRef(b, c.kind, v)
				if err != nil {
					return fmt.Errorf("entries[%q][%d]: %w", k, i, err)
				}
				list = append(list, e)
			}
		}
		entries[k] = list
	}
	c.keys = keys
	c.entries = entries
	return nil
}

func entryRef(b *Backend, kind *collectionKind, v any) (*entryObj, error) {
	r, ok := v.(foreign.Ref)
	if !ok || b == nil {
		return nil, fmt.Errorf("ValidationError: expected a %s, got %s", kind.entryClass, typeName(v))
	}
	o, err := b.lookup(r)
	if err != nil {
		return nil, err
	}
	e, ok := o.(*entryObj)
	if !ok || e.kind != kind {
		return nil, fmt.Errorf("ValidationError: expected a %s, got %s", kind.entryClass, o.class().name)
	}
	return e, nil
}

//appliedFilters returns the provenance record of the applied filters.
func (c *collection) appliedFilters() map[string]any {
	af, ok := c.provenance["applied-filters"].(map[string]any)
	if !ok {
		af = make(map[string]any)
		c.provenance["applied-filters"] = af
	}
	return af
}

//record is the offline data of a record.
type record struct {
	id       int64
	status   string
	symbols  []string
	geoms    []*v3.Matrix
	final    *v3.Matrix //the optimized or single point geometry
	bonds    [][3]int
	raw      map[string]any
	hasBonds bool
}

func (e *entryObj) offline() (*record, error) {
	if e.record == nil {
		return nil, fmt.Errorf("MissingDataError: record %d has no offline data, which the native runtime needs to filter it", e.recordID)
	}
	r := &record{id: e.recordID, raw: e.record}
	r.status, _ = e.record["status"].(string)
	r.status = strings.ToLower(r.status)
	if syms, ok := e.record["symbols"].([]any); ok {
		for _, s := range syms {
			str, _ := s.(string)
			r.symbols = append(r.symbols, str)
		}
	}
	if len(r.symbols) == 0 && e.cmiles != "" {
		syms, err := chem.SymbolsFromSMILES(e.cmiles)
		if err != nil {
			return nil, fmt.Errorf("ValidationError: record %d: %s", e.recordID, err.Error())
		}
		r.symbols = syms
	}
	var geoms []any
	if g, ok := e.record["geometry"]; ok && g != nil {
		geoms = append(geoms, g)
	}
	if gs, ok := e.record["geometries"].([]any); ok {
		geoms = append(geoms, gs...)
	}
	for i, g := range geoms {
		fs, ok := floats(g)
		if !ok {
			return nil, fmt.Errorf("ValidationError: record %d: geometry %d is not a list of numbers", e.recordID, i)
		}
		m, err := v3.NewMatrix(fs)
		if err != nil || (len(r.symbols) > 0 && m.NVecs() != len(r.symbols)) {
			return nil, fmt.Errorf("ValidationError: record %d: geometry %d has %d values for %d atoms", e.recordID, i, len(fs), len(r.symbols))
		}
		r.geoms = append(r.geoms, m)
	}
	if len(r.geoms) > 0 {
		r.final = r.geoms[0]
		if _, ok := e.record["geometry"]; !ok || e.record["geometry"] == nil {
			r.final = r.geoms[len(r.geoms)-1]
		}
	}
	if conn, ok := e.record["connectivity"].([]any); ok {
		r.hasBonds = true
		for i, c := range conn {
			l, ok := c.([]any)
			if !ok || len(l) < 2 {
				return nil, fmt.Errorf("ValidationError: record %d: bad connectivity item %d", e.recordID, i)
			}
			var bond [3]int
			bond[2] = 1
			for j := 0; j < len(l) && j < 3; j++ {
				switch t := l[j].(type) {
				case int64:
					bond[j] = int(t)
				case float64:
					bond[j] = int(t)
				}
			}
			r.bonds = append(r.bonds, bond)
		}
	}
	return r, nil
}

//molecule builds the molecular graph of the record.
func (r *record) molecule(name string) (*chem.Molecule, error) {
	mol := chem.NewMolecule(name)
	for _, s := range r.symbols {
		z := chem.AtomicNumber(s)
		if z <= 0 {
			return nil, fmt.Errorf("ValidationError: record %d: unknown element %q", r.id, s)
		}
		if _, err := mol.AddAtom(z, 0, false); err != nil {
			return nil, err
		}
	}
	for _, b := range r.bonds {
		if _, err := mol.AddBond(b[0], b[1], b[2], false, 0); err != nil {
			return nil, fmt.Errorf("ValidationError: record %d: %s", r.id, err.Error())
		}
	}
	return mol, nil
}

//graph returns the molecule of the record, with the declared bonds, or with bonds
//perceived from the final geometry when the record declares none.
func (r *record) graph() (*chem.Molecule, error) {
	mol, err := r.molecule("")
	if err != nil || r.hasBonds {
		return mol, err
	}
	if r.final == nil {
		return nil, fmt.Errorf("MissingDataError: record %d has neither connectivity nor geometry", r.id)
	}
	pairs, err := chem.PerceiveBonds(r.final, r.symbols, chem.DefaultBondTolerance)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if _, err := mol.AddBond(p[0], p[1], 1, false, 0); err != nil {
			return nil, err
		}
	}
	return mol, nil
}

func (r *record) pairs() [][2]int {
	ret := make([][2]int, len(r.bonds))
	for i, b := range r.bonds {
		ret[i] = [2]int{b[0], b[1]}
	}
	return ret
}

//symbolsOf returns the elements of an entry, from its record or its CMILES.
func symbolsOf(e *entryObj) ([]string, error) {
	if e.record != nil {
		if syms, ok := e.record["symbols"].([]any); ok {
			return lo.Map(syms, func(s any, _ int) string { str, _ := s.(string); return str }), nil
		}
	}
	return chem.SymbolsFromSMILES(e.cmiles)
}

func collectionArg(b *Backend, a *args, i int, name string) (*collection, error) {
	o, err := a.obj(b, i, name, false)
	if err != nil {
		return nil, err
	}
	c, ok := o.(*collection)
	if !ok {
		return nil, a.err("argument '%s': expected a result collection, got %s", name, o.class().name)
	}
	return c, nil
}

var collectionClasses = func() map[string]*class {
	ret := make(map[string]*class, len(collectionKinds))
	for name, kind := range collectionKinds {
		ret[name] = newCollectionClass(kind)
	}
	return ret
}()

var entryClasses = func() map[string]*class {
	ret := make(map[string]*class, len(collectionKinds))
	for name, kind := range collectionKinds {
		ret[name] = newEntryClass(kind)
	}
	return ret
}()

func entryClassObjs() map[string]object {
	ret := make(map[string]object, len(entryClasses))
	for _, kind := range collectionKinds {
		ret[kind.entryClass] = newClassObj(entryClasses[kind.class])
	}
	return ret
}

func newEntryClass(kind *collectionKind) *class {
	get := func(f func(e *entryObj) any) prop {
		return prop{get: func(b *Backend, self object) (any, error) { return f(self.(*entryObj)), nil }}
	}
	return &class{
		name: kind.entryClass,
		props: map[string]prop{
			"type":      get(func(e *entryObj) any { return e.kind.entryType }),
			"record_id": get(func(e *entryObj) any { return e.recordID }),
			"cmiles":    get(func(e *entryObj) any { return e.cmiles }),
			"inchi_key": get(func(e *entryObj) any { return e.inchiKey }),
			"record": get(func(e *entryObj) any {
				if e.record == nil {
					return nil
				}
				return deepCopy(e.record)
			}),
		},
		methods: map[string]method{
			"dict": func(b *Backend, self object, a *args) (any, error) {
				if err := a.done(); err != nil {
					return nil, err
				}
				return deepCopy(self.(*entryObj).toDict()), nil
			},
		},
		new: func(b *Backend, _ object, a *args) (any, error) {
			for _, k := range []string{"type", "record_id", "cmiles", "inchi_key", "record"} {
				a.get(-1, k)
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			e, err := entryFromDict(kind, a.kw)
			if err != nil {
				return nil, external(nil, kind.entryClass, "%s", err.Error())
			}
			return e, nil
		},
	}
}

func newCollectionClass(kind *collectionKind) *class {
	fromData := func(name string, data []byte) (any, error) {
		c, err := parseCollection(kind, data)
		if err != nil {
			return nil, external(nil, name, "%s", err.Error())
		}
		return c, nil
	}
	return &class{
		name: kind.class,
		props: map[string]prop{
			"entries": {
				get: func(b *Backend, self object) (any, error) {
					c := self.(*collection)
					ret := make(map[string]any, len(c.keys))
					for _, k := range c.keys {
						l := make([]any, len(c.entries[k]))
						for i, e := range c.entries[k] {
							l[i] = e
						}
						ret[k] = l
					}
					return ret, nil
				},
				set: func(b *Backend, self object, v any) error {
					m, ok := v.(map[string]any)
					if !ok {
						return external(self, "entries", "ValidationError: entries must be a dict, not %s", typeName(v))
					}
					if err := self.(*collection).setEntries(m, b); err != nil {
						return external(self, "entries", "%s", err.Error())
					}
					return nil
				},
			},
			"n_results": {get: func(b *Backend, self object) (any, error) {
				return len(self.(*collection).all()), nil
			}},
			"n_molecules": {get: func(b *Backend, self object) (any, error) {
				keys := lo.Uniq(lo.Map(self.(*collection).all(), func(e *entryObj, _ int) string { return e.inchiKey }))
				return len(keys), nil
			}},
			"provenance": {get: func(b *Backend, self object) (any, error) {
				return deepCopy(self.(*collection).provenance), nil
			}},
			"type": {get: func(b *Backend, self object) (any, error) { return kind.class, nil }},
		},
		methods: map[string]method{
			"json": func(b *Backend, self object, a *args) (any, error) {
				indent, err := a.integer(-1, "indent", ptr(0))
				if err != nil {
					return nil, err
				}
				if err := a.done(); err != nil {
					return nil, err
				}
				s, err := self.(*collection).json(indent)
				if err != nil {
					return nil, external(self, "json", "%s", err.Error())
				}
				return s, nil
			},
			"filter": func(b *Backend, self object, a *args) (any, error) {
				c := self.(*collection)
				fs := make([]*filterObj, len(a.pos))
				for i := range a.pos {
					o, err := a.obj(b, i, fmt.Sprintf("filters[%d]", i), false)
					if err != nil {
						return nil, err
					}
					f, ok := o.(*filterObj)
					if !ok {
						return nil, a.err("filter %d is a %s, not a ResultFilter", i, o.class().name)
					}
					fs[i] = f
				}
				if err := a.done(); err != nil {
					return nil, err
				}
				ret := c.copy()
				for _, f := range fs {
					var err error
					if ret, err = f.apply(ret); err != nil {
						return nil, err
					}
				}
				return ret, nil
			},
			"to_records": func(b *Backend, self object, a *args) (any, error) {
				if err := a.done(); err != nil {
					return nil, err
				}
				c := self.(*collection)
				ret := make([]any, 0)
				for _, e := range c.all() {
					r, err := e.offline()
					if err != nil {
						return nil, external(self, "to_records", "%s", err.Error())
					}
					mol, err := r.molecule(e.cmiles)
					if err != nil {
						return nil, external(self, "to_records", "%s", err.Error())
					}
					rec := deepCopy(r.raw).(map[string]any)
					rec["id"] = r.id
					ret = append(ret, []any{rec, &molecule{m: mol, confs: r.geoms}})
				}
				return ret, nil
			},
		},
		static: map[string]method{
			"from_server": func(b *Backend, _ object, a *args) (any, error) {
				o, err := a.obj(b, 0, "client", false)
				if err != nil {
					return nil, err
				}
				client, ok := o.(*portalClient)
				if !ok {
					return nil, a.err("argument 'client': expected PortalClient, got %s", o.class().name)
				}
				dv, err := a.required(1, "datasets")
				if err != nil {
					return nil, err
				}
				spec, err := a.str(2, "spec_name", ptr("default"))
				if err != nil {
					return nil, err
				}
				if err := a.done(); err != nil {
					return nil, err
				}
				var datasets []string
				switch t := dv.(type) {
				case string:
					datasets = []string{t}
				case []any:
					for i, d := range t {
						s, ok := d.(string)
						if !ok {
							return nil, a.err("argument 'datasets': item %d is a %s, not a str", i, typeName(d))
						}
						datasets = append(datasets, s)
					}
				default:
					return nil, a.err("argument 'datasets': expected str or list, got %s", typeName(dv))
				}
				c := newCollection(kind)
				seen := make(map[int64]bool)
				list := make([]*entryObj, 0)
				for _, name := range datasets {
					specs, err := client.dataset(kind.datasetType, name)
					if err != nil {
						return nil, err
					}
					raw, ok := specs[spec]
					if !ok {
						return nil, external(nil, "from_server", "KeyError: the %s dataset has no specification named %s", name, spec)
					}
					for i, d := range raw {
						e, err := entryFromDict(kind, d)
						if err != nil {
							return nil, external(nil, "from_server", "%s[%d]: %s", name, i, err.Error())
						}
						if seen[e.recordID] {
							continue
						}
						seen[e.recordID] = true
						list = append(list, e)
					}
				}
				c.set(client.address, list)
				return c, nil
			},
			"parse_file": func(b *Backend, _ object, a *args) (any, error) {
				path, err := a.str(0, "path", nil)
				if err != nil {
					return nil, err
				}
				if err := a.done(); err != nil {
					return nil, err
				}
				data, err := zio.ReadFile(path)
				if err != nil {
					return nil, external(nil, "parse_file", "OSError: %s", err.Error())
				}
				return fromData("parse_file", data)
			},
			"parse_raw": func(b *Backend, _ object, a *args) (any, error) {
				s, err := a.str(0, "b", nil)
				if err != nil {
					return nil, err
				}
				if err := a.done(); err != nil {
					return nil, err
				}
				return fromData("parse_raw", []byte(s))
			},
		},
		new: func(b *Backend, _ object, a *args) (any, error) {
			v, _ := a.get(-1, "entries")
			a.get(-1, "provenance")
			a.get(-1, "type")
			if err := a.done(); err != nil {
				return nil, err
			}
			c := newCollection(kind)
			if m, ok := v.(map[string]any); ok {
				if err := c.setEntries(m, b); err != nil {
					return nil, external(nil, kind.class, "%s", err.Error())
				}
			}
			if p, ok := a.kw["provenance"].(map[string]any); ok {
				c.provenance = deepCopy(p).(map[string]any)
			}
			return c, nil
		},
	}
}
