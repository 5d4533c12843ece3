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

package qcsubmit

import (
	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/qcportal"
)

const filtersModule = module + ".filters"

//Filter returns a curated copy of a collection. Filters never modify the collection
//they are applied to, and can be applied any number of times.
type Filter interface {
	//Name identifies the filter in provenance records.
	Name() string
	//Params returns the settings of the filter.
	Params() map[string]any
	Apply(c *ResultCollection) (*ResultCollection, error)
}

//ForeignFilter is a filter implemented by QCSubmit.
type ForeignFilter struct {
	h      *foreign.Handle
	params map[string]any
}

//NewResultRecordFilter builds a filter of the given class, from module, with the
//kw arguments. It can build filters defined outside QCSubmit, as long as they derive
//from its ResultFilter.
func NewResultRecordFilter(ip *foreign.Interpreter, module, class string, kw foreign.Kwargs) (*ForeignFilter, error) {
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, class, kw)
	if err != nil {
		return nil, err
	}
	params, err := foreign.Call[map[string]any](h, "dict")
	if err != nil {
		h.Release()
		return nil, err
	}
	p, err := plainParam(params)
	if err != nil {
		h.Release()
		return nil, err
	}
	return &ForeignFilter{h: h, params: p.(map[string]any)}, nil
}

//plainParam replaces the foreign objects in a filter setting, enumeration members
//such as a record status, by their value and releases them. Objects without a
//value are recorded by their class.
func plainParam(v any) (any, error) {
	switch t := v.(type) {
	case *foreign.Handle:
		val, err := foreign.GetAttr[any](t, "value")
		vh, isObj := val.(*foreign.Handle)
		if isObj {
			vh.Release()
		}
		if err != nil || isObj {
			val = t.Class()
		}
		return val, t.Release()
	case []any:
		ret := make([]any, len(t))
		for i, e := range t {
			p, err := plainParam(e)
			if err != nil {
				return nil, err
			}
			ret[i] = p
		}
		return ret, nil
	case map[string]any:
		ret := make(map[string]any, len(t))
		for k, e := range t {
			p, err := plainParam(e)
			if err != nil {
				return nil, err
			}
			ret[k] = p
		}
		return ret, nil
	}
	return v, nil
}

func newFilter(ip *foreign.Interpreter, class string, kw foreign.Kwargs) (*ForeignFilter, error) {
	return NewResultRecordFilter(ip, filtersModule, class, kw)
}

//RMSDOption sets an optional parameter of the conformer RMSD filter.
type RMSDOption func(kw foreign.Kwargs)

//RMSDTolerance sets the RMSD, in Å, under which two conformers are the same. The default is 0.5.
func RMSDTolerance(tol float64) RMSDOption {
	return func(kw foreign.Kwargs) { kw["rmsd_tolerance"] = tol }
}

//HeavyAtomsOnly sets whether hydrogens are ignored in the RMSD. The default is true.
func HeavyAtomsOnly(heavy bool) RMSDOption {
	return func(kw foreign.Kwargs) { kw["heavy_atoms_only"] = heavy }
}

//CheckAutomorphs sets whether the symmetry of the molecule is considered in the RMSD.
func CheckAutomorphs(check bool) RMSDOption {
	return func(kw foreign.Kwargs) { kw["check_automorphs"] = check }
}

//NewConformerRMSDFilter returns a filter that keeps at most maxConformers different
//conformers of each molecule. Conformers closer than the RMSD tolerance to a kept one
//are removed.
func NewConformerRMSDFilter(ip *foreign.Interpreter, maxConformers int, opts ...RMSDOption) (*ForeignFilter, error) {
	kw := foreign.Kwargs{"max_conformers": maxConformers}
	for _, o := range opts {
		o(kw)
	}
	return newFilter(ip, "ConformerRMSDFilter", kw)
}

//NewConnectivityFilter returns a filter that removes the records whose geometries have
//bonds different from those of their molecule. tolerance scales the covalent radii.
func NewConnectivityFilter(ip *foreign.Interpreter, tolerance float64) (*ForeignFilter, error) {
	return newFilter(ip, "ConnectivityFilter", foreign.Kwargs{"tolerance": tolerance})
}

//NewElementFilter returns a filter that keeps only the molecules made of the allowed elements.
func NewElementFilter(ip *foreign.Interpreter, allowed []string) (*ForeignFilter, error) {
	return newFilter(ip, "ElementFilter", foreign.Kwargs{"allowed_elements": allowed})
}

//NewHydrogenBondFilter returns a filter that removes the records with intramolecular
//hydrogen bonds.
func NewHydrogenBondFilter(ip *foreign.Interpreter) (*ForeignFilter, error) {
	return newFilter(ip, "HydrogenBondFilter", nil)
}

//NewRecordStatusFilter returns a filter that keeps only the records with the given status.
func NewRecordStatusFilter(ip *foreign.Interpreter, status qcportal.RecordStatus) (*ForeignFilter, error) {
	return newFilter(ip, "RecordStatusFilter", foreign.Kwargs{"status": status})
}

//NewUnperceivableStereoFilter returns a filter that removes the records where the
//stereochemistry of the molecule can't be perceived from the geometry.
func NewUnperceivableStereoFilter(ip *foreign.Interpreter) (*ForeignFilter, error) {
	return newFilter(ip, "UnperceivableStereoFilter", nil)
}

//NewMinimumConformersFilter returns a filter that removes the molecules with fewer
//than minConformers conformers.
func NewMinimumConformersFilter(ip *foreign.Interpreter, minConformers int) (*ForeignFilter, error) {
	return newFilter(ip, "MinimumConformersFilter", foreign.Kwargs{"min_conformers": minConformers})
}

func (F *ForeignFilter) Handle() *foreign.Handle {
	if F == nil {
		return nil
	}
	return F.h
}

//Name returns the class of the filter.
func (F *ForeignFilter) Name() string {
	return F.h.Class()
}

//Params returns the settings of the filter, as reported by the filter itself.
func (F *ForeignFilter) Params() map[string]any {
	ret := make(map[string]any, len(F.params))
	for k, v := range F.params {
		ret[k] = v
	}
	return ret
}

func (F *ForeignFilter) Apply(c *ResultCollection) (*ResultCollection, error) {
	h, err := foreign.Call[*foreign.Handle](c, "filter", F)
	if err != nil {
		return nil, err
	}
	return &ResultCollection{h: h, kind: c.kind}, nil
}

func (F *ForeignFilter) Release() error {
	return F.h.Release()
}
