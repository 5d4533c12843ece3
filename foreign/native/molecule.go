/*
 * molecule.go, part of gopenff.
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
	chem "github.com/rmera/gopenff"
	"github.com/rmera/gopenff/chemgraph"
	"github.com/rmera/gopenff/foreign"
	v3 "github.com/rmera/gopenff/v3"
	"gonum.org/v1/gonum/mat"
)

type molecule struct {
	m     *chem.Molecule
	confs []*v3.Matrix //in A
}

func (m *molecule) class() *class { return moleculeClass }

func newMolecule(name string) *molecule {
	return &molecule{m: chem.NewMolecule(name)}
}

func atomDict(a *chem.Atom) map[string]any {
	return map[string]any{
		"atomic_number": int64(a.Z),
		"element":       a.Symbol,
		"formal_charge": int64(a.FormalCharge),
		"is_aromatic":   a.Aromatic,
	}
}

func bondDict(b *chem.Bond) map[string]any {
	ret := map[string]any{
		"atom1":                 int64(b.At1.Index),
		"atom2":                 int64(b.At2.Index),
		"bond_order":            int64(b.Order),
		"is_aromatic":           b.Aromatic,
		"fractional_bond_order": nil,
	}
	if b.Fractional != 0 {
		ret["fractional_bond_order"] = b.Fractional
	}
	return ret
}

func (m *molecule) toDict() map[string]any {
	atoms := make([]any, len(m.m.Atoms))
	for i, a := range m.m.Atoms {
		atoms[i] = atomDict(a)
	}
	bonds := make([]any, len(m.m.Bonds))
	for i, b := range m.m.Bonds {
		bonds[i] = bondDict(b)
	}
	var charges any
	if m.m.Charges != nil {
		q := make([]any, len(m.m.Charges))
		for i, c := range m.m.Charges {
			q[i] = c
		}
		charges = q
	}
	props := make(map[string]any, len(m.m.Properties))
	for k, v := range m.m.Properties {
		props[k] = v
	}
	return map[string]any{
		"name":                m.m.Name,
		"atoms":               atoms,
		"bonds":               bonds,
		"partial_charges":     charges,
		"partial_charge_unit": "elementary_charge",
		"hierarchy_schemes":   map[string]any{},
		"properties":          props,
		"conformers":          nil,
		"conformers_unit":     "angstrom",
	}
}

//moleculeFromDict builds a molecule from the output of to_dict.
func moleculeFromDict(d map[string]any) (*molecule, error) {
	name, _ := d["name"].(string)
	ret := newMolecule(name)
	atoms, _ := d["atoms"].([]any)
	for i, av := range atoms {
		a, ok := av.(map[string]any)
		if !ok {
			return nil, external(nil, "from_dict", "atom %d is not a dict", i)
		}
		z, _ := a["atomic_number"].(int64)
		q, _ := a["formal_charge"].(int64)
		arom, _ := a["is_aromatic"].(bool)
		if _, err := ret.m.AddAtom(int(z), int(q), arom); err != nil {
			return nil, external(nil, "from_dict", "%s", err.Error())
		}
	}
	bonds, _ := d["bonds"].([]any)
	for i, bv := range bonds {
		b, ok := bv.(map[string]any)
		if !ok {
			return nil, external(nil, "from_dict", "bond %d is not a dict", i)
		}
		a1, _ := b["atom1"].(int64)
		a2, _ := b["atom2"].(int64)
		order, _ := b["bond_order"].(int64)
		arom, _ := b["is_aromatic"].(bool)
		frac, _ := b["fractional_bond_order"].(float64)
		if _, err := ret.m.AddBond(int(a1), int(a2), int(order), arom, frac); err != nil {
			return nil, external(nil, "from_dict", "%s", err.Error())
		}
	}
	if q, ok := floats(d["partial_charges"]); ok {
		if err := ret.m.SetCharges(q); err != nil {
			return nil, external(nil, "from_dict", "%s", err.Error())
		}
	}
	if p, ok := d["properties"].(map[string]any); ok {
		for k, v := range p {
			ret.m.Properties[k] = v
		}
	}
	return ret, nil
}

func moleculeArg(b *Backend, a *args, i int, name string) (*molecule, error) {
	o, err := a.obj(b, i, name, false)
	if err != nil {
		return nil, err
	}
	m, ok := o.(*molecule)
	if !ok {
		return nil, a.err("argument '%s': expected Molecule, got %s", name, o.class().name)
	}
	return m, nil
}

var elementaryCharge, _ = lookupUnit("elementary_charge")

var moleculeClass = &class{
	name: "Molecule",
	props: map[string]prop{
		"name": {
			get: func(b *Backend, self object) (any, error) { return self.(*molecule).m.Name, nil },
			set: func(b *Backend, self object, v any) error {
				s, ok := v.(string)
				if !ok {
					return external(self, "name", "TypeError: name must be a str, not %s", typeName(v))
				}
				self.(*molecule).m.Name = s
				return nil
			},
		},
		"n_atoms": {get: func(b *Backend, self object) (any, error) { return self.(*molecule).m.Len(), nil }},
		"n_bonds": {get: func(b *Backend, self object) (any, error) { return len(self.(*molecule).m.Bonds), nil }},
		"partial_charges": {
			get: func(b *Backend, self object) (any, error) {
				m := self.(*molecule).m
				if m.Charges == nil {
					return nil, nil
				}
				return &quantity{mag: append([]float64(nil), m.Charges...), unit: elementaryCharge}, nil
			},
			set: func(b *Backend, self object, v any) error {
				m := self.(*molecule).m
				if v == nil {
					m.Charges = nil
					return nil
				}
				q, err := toQuantity(b, v, elementaryCharge)
				if err != nil {
					return external(self, "partial_charges", "%s", err.Error())
				}
				mag, err := q.in(elementaryCharge)
				if err != nil {
					return external(self, "partial_charges", "%s", err.Error())
				}
				charges, ok := mag.([]float64)
				if !ok {
					return external(self, "partial_charges", "ValueError: partial charges must be an array with one charge per atom")
				}
				if err := m.SetCharges(charges); err != nil {
					return external(self, "partial_charges", "ValueError: %s", err.Error())
				}
				return nil
			},
		},
		"total_charge": {get: func(b *Backend, self object) (any, error) {
			return &quantity{mag: float64(self.(*molecule).m.TotalCharge()), unit: elementaryCharge}, nil
		}},
		"n_conformers": {get: func(b *Backend, self object) (any, error) { return len(self.(*molecule).confs), nil }},
		"conformers": {get: func(b *Backend, self object) (any, error) {
			confs := self.(*molecule).confs
			if len(confs) == 0 {
				return nil, nil
			}
			angstrom, _ := lookupUnit("angstrom")
			ret := make([]any, len(confs))
			for i, c := range confs {
				ret[i] = &quantity{mag: append([]float64(nil), c.RawMatrix().Data...), unit: angstrom}
			}
			return ret, nil
		}},
		"hill_formula": {get: func(b *Backend, self object) (any, error) { return self.(*molecule).m.Formula(), nil }},
		"properties": {get: func(b *Backend, self object) (any, error) {
			p := self.(*molecule).m.Properties
			ret := make(map[string]any, len(p))
			for k, v := range p {
				ret[k] = v
			}
			return ret, nil
		}},
	},
	methods: map[string]method{
		"add_atom": func(b *Backend, self object, a *args) (any, error) {
			z, err := a.integer(0, "atomic_number", nil)
			if err != nil {
				return nil, err
			}
			q, err := a.integer(1, "formal_charge", nil)
			if err != nil {
				return nil, err
			}
			arom, err := a.boolean(2, "is_aromatic", nil)
			if err != nil {
				return nil, err
			}
			a.get(3, "stereochemistry")
			a.get(4, "name")
			a.get(-1, "metadata")
			if err := a.done(); err != nil {
				return nil, err
			}
			i, err := self.(*molecule).m.AddAtom(z, q, arom)
			if err != nil {
				return nil, external(self, "add_atom", "ValueError: %s", err.Error())
			}
			return i, nil
		},
		"add_bond": func(b *Backend, self object, a *args) (any, error) {
			a1, err := a.integer(0, "atom1", nil)
			if err != nil {
				return nil, err
			}
			a2, err := a.integer(1, "atom2", nil)
			if err != nil {
				return nil, err
			}
			order, err := a.integer(2, "bond_order", nil)
			if err != nil {
				return nil, err
			}
			arom, err := a.boolean(3, "is_aromatic", nil)
			if err != nil {
				return nil, err
			}
			a.get(4, "stereochemistry")
			frac, err := a.float(5, "fractional_bond_order", ptr(0.0))
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			i, err := self.(*molecule).m.AddBond(a1, a2, order, arom, frac)
			if err != nil {
				return nil, external(self, "add_bond", "ValueError: %s", err.Error())
			}
			return i, nil
		},
		"to_topology": func(b *Backend, self object, a *args) (any, error) {
			if err := a.done(); err != nil {
				return nil, err
			}
			t := &topology{}
			t.add(self.(*molecule))
			return t, nil
		},
		"is_isomorphic_with": func(b *Backend, self object, a *args) (any, error) {
			other, err := moleculeArg(b, a, 0, "other")
			if err != nil {
				return nil, err
			}
			for _, k := range []string{"aromatic_matching", "formal_charge_matching", "bond_order_matching", "atom_stereochemistry_matching", "bond_stereochemistry_matching", "strip_pyrimidal_n_atom_stereo", "toolkit_registry"} {
				a.get(-1, k)
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			return chem.GraphHash(self.(*molecule).m) == chem.GraphHash(other.m), nil
		},
		"to_dict": func(b *Backend, self object, a *args) (any, error) {
			if err := a.done(); err != nil {
				return nil, err
			}
			return self.(*molecule).toDict(), nil
		},
		"to_smiles":              pythonOnly("to_smiles"),
		"to_inchikey":            pythonOnly("to_inchikey"),
		"assign_partial_charges": pythonOnly("assign_partial_charges"),
		"generate_conformers":    pythonOnly("generate_conformers"),
	},
	static: map[string]method{
		"from_dict": func(b *Backend, _ object, a *args) (any, error) {
			v, err := a.required(0, "molecule_dict")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			d, ok := v.(map[string]any)
			if !ok {
				return nil, a.err("argument 'molecule_dict': expected dict, got %s", typeName(v))
			}
			return moleculeFromDict(d)
		},
		"from_smiles":        pythonOnly("from_smiles"),
		"from_mapped_smiles": pythonOnly("from_mapped_smiles"),
	},
	new: func(b *Backend, _ object, a *args) (any, error) {
		v, _ := a.get(0, "other")
		a.get(1, "file_format")
		a.get(2, "toolkit_registry")
		a.get(3, "allow_undefined_stereo")
		if err := a.done(); err != nil {
			return nil, err
		}
		switch t := v.(type) {
		case nil:
			return newMolecule(""), nil
		case map[string]any:
			return moleculeFromDict(t)
		case string:
			return nil, external(nil, "Molecule", "building a Molecule from %q requires the OpenFF toolkits, available only through the python runtime", t)
		}
		other, err := moleculeArg(b, a, 0, "other")
		if err != nil {
			return nil, err
		}
		return other.copy(), nil
	},
}

func (m *molecule) copy() *molecule {
	ret := &molecule{m: m.m.Copy()}
	for _, c := range m.confs {
		ret.confs = append(ret.confs, v3.Dense2Matrix(mat.DenseCopyOf(c.Dense)))
	}
	return ret
}

func pythonOnly(name string) method {
	return func(b *Backend, self object, a *args) (any, error) {
		return nil, needsPython(self, name)
	}
}

type topology struct {
	mols []*molecule
}

func (t *topology) class() *class { return topologyClass }

//add appends a copy of m, and returns its index.
func (t *topology) add(m *molecule) int {
	t.mols = append(t.mols, m.copy())
	return len(t.mols) - 1
}

func (t *topology) unique() []*molecule {
	ret := make([]*molecule, 0, len(t.mols))
	for _, m := range t.mols {
		seen := false
		for _, u := range ret {
			if chemgraph.Identical(m.m, u.m) {
				seen = true
				break
			}
		}
		if !seen {
			ret = append(ret, m)
		}
	}
	return ret
}

func moleculeList(mols []*molecule) []any {
	ret := make([]any, len(mols))
	for i, m := range mols {
		ret[i] = m
	}
	return ret
}

var topologyClass = &class{
	name: "Topology",
	props: map[string]prop{
		"molecules":   {get: func(b *Backend, self object) (any, error) { return moleculeList(self.(*topology).mols), nil }},
		"n_molecules": {get: func(b *Backend, self object) (any, error) { return len(self.(*topology).mols), nil }},
		"unique_molecules": {get: func(b *Backend, self object) (any, error) {
			return moleculeList(self.(*topology).unique()), nil
		}},
		"n_unique_molecules": {get: func(b *Backend, self object) (any, error) { return len(self.(*topology).unique()), nil }},
		"n_atoms": {get: func(b *Backend, self object) (any, error) {
			n := 0
			for _, m := range self.(*topology).mols {
				n += m.m.Len()
			}
			return n, nil
		}},
		"n_bonds": {get: func(b *Backend, self object) (any, error) {
			n := 0
			for _, m := range self.(*topology).mols {
				n += len(m.m.Bonds)
			}
			return n, nil
		}},
	},
	methods: map[string]method{
		"add_molecule": func(b *Backend, self object, a *args) (any, error) {
			m, err := moleculeArg(b, a, 0, "molecule")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			return self.(*topology).add(m), nil
		},
		"molecule": func(b *Backend, self object, a *args) (any, error) {
			i, err := a.integer(0, "index", nil)
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			t := self.(*topology)
			if i < 0 || i >= len(t.mols) {
				return nil, external(self, "molecule", "IndexError: molecule index %d out of range", i)
			}
			return t.mols[i], nil
		},
	},
	static: map[string]method{
		"from_molecules": func(b *Backend, _ object, a *args) (any, error) {
			l, err := a.list(0, "molecules", false)
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			t := &topology{}
			for i, v := range l {
				r, ok := v.(foreign.Ref)
				if !ok {
					return nil, a.err("argument 'molecules': item %d is a %s, not a Molecule", i, typeName(v))
				}
				o, err := b.lookup(r)
				if err != nil {
					return nil, err
				}
				m, ok := o.(*molecule)
				if !ok {
					return nil, a.err("argument 'molecules': item %d is a %s, not a Molecule", i, o.class().name)
				}
				t.add(m)
			}
			return t, nil
		},
	},
	new: func(b *Backend, _ object, a *args) (any, error) {
		o, err := a.obj(b, 0, "other", true)
		if err != nil {
			return nil, err
		}
		if err := a.done(); err != nil {
			return nil, err
		}
		t := &topology{}
		if o != nil {
			other, ok := o.(*topology)
			if !ok {
				return nil, a.err("argument 'other': expected Topology, got %s", o.class().name)
			}
			for _, m := range other.mols {
				t.add(m)
			}
		}
		return t, nil
	},
}
