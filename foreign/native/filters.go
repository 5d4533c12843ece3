/*
 * filters.go, part of gopenff.
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

	"github.com/samber/lo"

	chem "github.com/rmera/gopenff"
	v3 "github.com/rmera/gopenff/v3"
)

//filterObj is a filter over result collections. Filters are immutable once built.
type filterObj struct {
	name   string
	params map[string]any
	//keep decides on one entry. If it is nil, run filters the whole collection.
	keep func(e *entryObj) (bool, error)
	run  func(c *collection) (*collection, error)
}

func (f *filterObj) class() *class { return filterClasses[f.name] }

func (f *filterObj) dict() map[string]any {
	return deepCopy(f.params).(map[string]any)
}

//apply returns a filtered copy of c, with f recorded in its provenance.
func (f *filterObj) apply(c *collection) (*collection, error) {
	var ret *collection
	var err error
	if f.keep != nil {
		ret, err = c.keep(f.keep)
	} else {
		ret, err = f.run(c)
	}
	if err != nil {
		return nil, external(f, "apply", "%s", err.Error())
	}
	applied := ret.appliedFilters()
	applied[fmt.Sprintf("%s-%d", f.name, len(applied))] = f.dict()
	return ret, nil
}

//filterBuilders build each filter from the constructor arguments.
var filterBuilders = map[string]func(b *Backend, a *args) (*filterObj, error){
	"RecordStatusFilter":        newRecordStatusFilter,
	"ConnectivityFilter":        newConnectivityFilter,
	"ElementFilter":             newElementFilter,
	"ConformerRMSDFilter":       newConformerRMSDFilter,
	"HydrogenBondFilter":        newHydrogenBondFilter,
	"UnperceivableStereoFilter": newUnperceivableStereoFilter,
	"MinimumConformersFilter":   newMinimumConformersFilter,
	"ResultRecordFilter": func(b *Backend, a *args) (*filterObj, error) {
		return nil, external(nil, "ResultRecordFilter", "TypeError: Can't instantiate abstract class ResultRecordFilter with abstract method _filter_function")
	},
}

var filterClasses = func() map[string]*class {
	ret := make(map[string]*class, len(filterBuilders))
	for name, build := range filterBuilders {
		ret[name] = newFilterClass(name, build)
	}
	return ret
}()

func newFilterClass(name string, build func(b *Backend, a *args) (*filterObj, error)) *class {
	return &class{
		name: name,
		dynamic: func(b *Backend, self object, attr string) (any, bool, error) {
			v, ok := self.(*filterObj).params[attr]
			if !ok {
				return nil, false, nil
			}
			return deepCopy(v), true, nil
		},
		methods: map[string]method{
			"apply": func(b *Backend, self object, a *args) (any, error) {
				c, err := collectionArg(b, a, 0, "result_collection")
				if err != nil {
					return nil, err
				}
				if err := a.done(); err != nil {
					return nil, err
				}
				return self.(*filterObj).apply(c)
			},
			"dict": func(b *Backend, self object, a *args) (any, error) {
				return self.(*filterObj).dict(), a.done()
			},
		},
		new: func(b *Backend, _ object, a *args) (any, error) {
			f, err := build(b, a)
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

func newRecordStatusFilter(b *Backend, a *args) (*filterObj, error) {
	status, err := statusArg(b, a, -1, "status")
	if err != nil {
		return nil, err
	}
	return &filterObj{
		name:   "RecordStatusFilter",
		params: map[string]any{"status": status},
		keep: func(e *entryObj) (bool, error) {
			r, err := e.offline()
			if err != nil {
				return false, err
			}
			return r.status == status, nil
		},
	}, nil
}

//geometries returns all the geometries of the entry's record, which must have some.
func geometries(e *entryObj) (*record, []*v3.Matrix, error) {
	r, err := e.offline()
	if err != nil {
		return nil, nil, err
	}
	if len(r.geoms) == 0 {
		return nil, nil, fmt.Errorf("MissingDataError: record %d has no geometry", r.id)
	}
	return r, r.geoms, nil
}

func newConnectivityFilter(b *Backend, a *args) (*filterObj, error) {
	tol, err := a.float(-1, "tolerance", ptr(chem.DefaultBondTolerance))
	if err != nil {
		return nil, err
	}
	if tol <= 0 {
		return nil, external(nil, "ConnectivityFilter", "ValidationError: tolerance must be positive, got %g", tol)
	}
	return &filterObj{
		name:   "ConnectivityFilter",
		params: map[string]any{"tolerance": tol},
		keep: func(e *entryObj) (bool, error) {
			r, geoms, err := geometries(e)
			if err != nil {
				return false, err
			}
			if !r.hasBonds {
				return false, fmt.Errorf("MissingDataError: record %d declares no connectivity", r.id)
			}
			for _, g := range geoms {
				perceived, err := chem.PerceiveBonds(g, r.symbols, tol)
				if err != nil {
					return false, err
				}
				if same, _ := chem.SameConnectivity(r.pairs(), perceived); !same {
					return false, nil
				}
			}
			return true, nil
		},
	}, nil
}

func newElementFilter(b *Backend, a *args) (*filterObj, error) {
	l, err := a.list(-1, "allowed_elements", false)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(l))
	for i, v := range l {
		switch t := v.(type) {
		case string:
			if chem.AtomicNumber(t) <= 0 {
				return nil, external(nil, "ElementFilter", "ValidationError: allowed_elements[%d]: unknown element %q", i, t)
			}
			allowed[t] = true
		case int64:
			s := chem.Symbol(int(t))
			if s == "" {
				return nil, external(nil, "ElementFilter", "ValidationError: allowed_elements[%d]: no element with atomic number %d", i, t)
			}
			allowed[s] = true
		default:
			return nil, a.err("argument 'allowed_elements': item %d is a %s, not a str or int", i, typeName(v))
		}
	}
	return &filterObj{
		name:   "ElementFilter",
		params: map[string]any{"allowed_elements": l},
		keep: func(e *entryObj) (bool, error) {
			syms, err := symbolsOf(e)
			if err != nil {
				return false, err
			}
			return lo.EveryBy(syms, func(s string) bool { return allowed[s] }), nil
		},
	}, nil
}

func newConformerRMSDFilter(b *Backend, a *args) (*filterObj, error) {
	maxConfs, err := a.integer(-1, "max_conformers", ptr(10))
	if err != nil {
		return nil, err
	}
	tol, err := a.float(-1, "rmsd_tolerance", ptr(0.5))
	if err != nil {
		return nil, err
	}
	heavy, err := a.boolean(-1, "heavy_atoms_only", ptr(true))
	if err != nil {
		return nil, err
	}
	//automorphisms are not enumerated, atoms are compared in the order of the records
	automorphs, err := a.boolean(-1, "check_automorphs", ptr(true))
	if err != nil {
		return nil, err
	}
	if maxConfs < 1 {
		return nil, external(nil, "ConformerRMSDFilter", "ValidationError: max_conformers must be at least 1, got %d", maxConfs)
	}
	f := &filterObj{
		name: "ConformerRMSDFilter",
		params: map[string]any{
			"max_conformers":   int64(maxConfs),
			"rmsd_tolerance":   tol,
			"heavy_atoms_only": heavy,
			"check_automorphs": automorphs,
		},
	}
	f.run = func(c *collection) (*collection, error) {
		if c.kind.entryType == "torsion" {
			return nil, fmt.Errorf("NotImplementedError: the ConformerRMSDFilter can't be applied to torsion drives")
		}
		type conformer struct {
			geom  *v3.Matrix
			atoms []int
		}
		kept := make(map[string][]conformer)
		return c.keep(func(e *entryObj) (bool, error) {
			r, err := e.offline()
			if err != nil {
				return false, err
			}
			if r.final == nil {
				return false, fmt.Errorf("MissingDataError: record %d has no geometry", r.id)
			}
			group := kept[e.inchiKey]
			if len(group) >= maxConfs {
				return false, nil
			}
			var atoms []int
			if heavy {
				atoms = chem.HeavyAtoms(r.symbols)
				if len(atoms) == 0 {
					return false, external(nil, "ConformerRMSDFilter", "ValueError: record %d has no heavy atoms, use heavy_atoms_only=False", r.id)
				}
			}
			for _, k := range group {
				if k.geom.NVecs() != r.final.NVecs() {
					continue
				}
				rmsd, err := chem.RMSD(r.final, k.geom, atoms)
				if err != nil {
					return false, err
				}
				if rmsd <= tol {
					return false, nil
				}
			}
			kept[e.inchiKey] = append(group, conformer{r.final, atoms})
			return true, nil
		})
	}
	return f, nil
}

func newHydrogenBondFilter(b *Backend, a *args) (*filterObj, error) {
	method, err := a.str(-1, "method", ptr("baker-hubbard"))
	if err != nil {
		return nil, err
	}
	if method != "baker-hubbard" {
		return nil, external(nil, "HydrogenBondFilter", "ValidationError: unsupported method %q", method)
	}
	return &filterObj{
		name:   "HydrogenBondFilter",
		params: map[string]any{"method": method},
		keep: func(e *entryObj) (bool, error) {
			r, geoms, err := geometries(e)
			if err != nil {
				return false, err
			}
			mol, err := r.graph()
			if err != nil {
				return false, err
			}
			for _, g := range geoms {
				hb, err := chem.HydrogenBonds(mol, g)
				if err != nil {
					return false, err
				}
				if len(hb) > 0 {
					return false, nil
				}
			}
			return true, nil
		},
	}, nil
}

func newUnperceivableStereoFilter(b *Backend, a *args) (*filterObj, error) {
	toolkits, err := a.list(-1, "toolkits", true)
	if err != nil {
		return nil, err
	}
	if toolkits == nil {
		toolkits = []any{"openeye", "rdkit"}
	}
	return &filterObj{
		name:   "UnperceivableStereoFilter",
		params: map[string]any{"toolkits": toolkits},
		keep: func(e *entryObj) (bool, error) {
			r, geoms, err := geometries(e)
			if err != nil {
				return false, err
			}
			mol, err := r.graph()
			if err != nil {
				return false, err
			}
			for _, g := range geoms {
				flat, err := chem.UnperceivableStereo(mol, g, 0)
				if err != nil {
					return false, err
				}
				if len(flat) > 0 {
					return false, nil
				}
			}
			return true, nil
		},
	}, nil
}

func newMinimumConformersFilter(b *Backend, a *args) (*filterObj, error) {
	minConfs, err := a.integer(-1, "min_conformers", ptr(2))
	if err != nil {
		return nil, err
	}
	f := &filterObj{name: "MinimumConformersFilter", params: map[string]any{"min_conformers": int64(minConfs)}}
	f.run = func(c *collection) (*collection, error) {
		counts := lo.CountValuesBy(c.all(), func(e *entryObj) string { return e.inchiKey })
		return c.keep(func(e *entryObj) (bool, error) { return counts[e.inchiKey] >= minConfs, nil })
	}
	return f, nil
}
