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

//Package toolkit wraps the molecules and topologies of the OpenFF toolkit.
//
//Every method forwards to the foreign object held by the facade, so chemical
//validation (bond endpoints, charges, identity) is done by the toolkit itself.
package toolkit

import (
	chem "github.com/rmera/gopenff"
	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/units"
)

//DefaultAromaticityModel is the only aromaticity model supported by SMIRNOFF force fields.
const DefaultAromaticityModel = "OEAroModel_MDL"

const module = "openff.toolkit"

var (
	molName        = foreign.NewRWProp[string]("name")
	nAtoms         = foreign.NewProp[int]("n_atoms")
	nBonds         = foreign.NewProp[int]("n_bonds")
	hillFormula    = foreign.NewProp[string]("hill_formula")
	partialCharges = foreign.NewProp[*foreign.Handle]("partial_charges")
)

//Atom is the description of one atom of a Molecule, as given by its dictionary
//representation.
type Atom struct {
	AtomicNumber int    `foreign:"atomic_number"`
	Element      string `foreign:"-"` //from the atomic number
	FormalCharge int    `foreign:"formal_charge"`
	IsAromatic   bool   `foreign:"is_aromatic"`
}

//Bond is the description of one bond of a Molecule. FractionalBondOrder is nil
//when the bond has none.
type Bond struct {
	Atom1               int      `foreign:"atom1"`
	Atom2               int      `foreign:"atom2"`
	BondOrder           int      `foreign:"bond_order"`
	IsAromatic          bool     `foreign:"is_aromatic"`
	FractionalBondOrder *float64 `foreign:"fractional_bond_order"`
}

//Molecule is a chemical graph, atoms joined by bonds.
type Molecule struct {
	h *foreign.Handle
}

//NewMolecule returns an empty molecule.
func NewMolecule(ip *foreign.Interpreter) (*Molecule, error) {
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, "Molecule", nil)
	if err != nil {
		return nil, err
	}
	return &Molecule{h: h}, nil
}

//MoleculeFromDict builds a molecule from its dictionary representation (see ToDict).
func MoleculeFromDict(ip *foreign.Interpreter, d map[string]any) (*Molecule, error) {
	cls, err := ip.Import(module, "Molecule")
	if err != nil {
		return nil, err
	}
	defer cls.Release()
	h, err := foreign.Call[*foreign.Handle](cls, "from_dict", d)
	if err != nil {
		return nil, err
	}
	return &Molecule{h: h}, nil
}

//MoleculeFromHandle wraps h, which must hold a molecule. The molecule takes ownership of h.
func MoleculeFromHandle(h *foreign.Handle) *Molecule {
	return &Molecule{h: h}
}

func (M *Molecule) Handle() *foreign.Handle {
	if M == nil {
		return nil
	}
	return M.h
}

//AddAtom adds an atom and returns its 0-based index.
func (M *Molecule) AddAtom(atomicNumber uint8, formalCharge int8, isAromatic bool) (int, error) {
	return foreign.Call[int](M, "add_atom", atomicNumber, formalCharge, isAromatic)
}

//AddBond bonds the atoms with indexes atom1 and atom2, and returns the 0-based index of the bond.
//A nil fractionalBondOrder leaves the bond without one.
func (M *Molecule) AddBond(atom1, atom2 int, bondOrder uint8, isAromatic bool, fractionalBondOrder *float64) (int, error) {
	var kw foreign.Kwargs
	if fractionalBondOrder != nil {
		kw = foreign.Kwargs{"fractional_bond_order": *fractionalBondOrder}
	}
	return foreign.CallKw[int](M, "add_bond", kw, atom1, atom2, bondOrder, isAromatic)
}

//SetPartialCharges sets the partial charges of the atoms, one per atom, in units of charge.
//A nil quantity clears the charges.
func (M *Molecule) SetPartialCharges(charges *units.Quantity) error {
	if charges == nil {
		return foreign.SetAttr(M, "partial_charges", nil)
	}
	return foreign.SetAttr(M, "partial_charges", charges)
}

//PartialCharges returns the partial charges of the atoms, or nil if they have not been set.
func (M *Molecule) PartialCharges() (*units.Quantity, error) {
	h, err := partialCharges.Get(M)
	if err != nil || h == nil {
		return nil, err
	}
	return units.QuantityFromHandle(h), nil
}

//Name returns the name of the molecule.
func (M *Molecule) Name() (string, error) {
	return molName.Get(M)
}

//SetName sets the name of the molecule.
func (M *Molecule) SetName(name string) error {
	return molName.Set(M, name)
}

//NAtoms returns the number of atoms in the molecule.
func (M *Molecule) NAtoms() (int, error) {
	return nAtoms.Get(M)
}

//NBonds returns the number of bonds in the molecule.
func (M *Molecule) NBonds() (int, error) {
	return nBonds.Get(M)
}

//HillFormula returns the molecular formula in Hill order.
func (M *Molecule) HillFormula() (string, error) {
	return hillFormula.Get(M)
}

//Atoms returns the atoms of the molecule, in order.
func (M *Molecule) Atoms() ([]Atom, error) {
	d, err := M.ToDict()
	if err != nil {
		return nil, err
	}
	ret, err := foreign.Convert[[]Atom](M.h.Interpreter(), d["atoms"])
	if err != nil {
		return nil, err
	}
	for i := range ret {
		ret[i].Element = chem.Symbol(ret[i].AtomicNumber)
	}
	return ret, nil
}

//Bonds returns the bonds of the molecule, in order.
func (M *Molecule) Bonds() ([]Bond, error) {
	d, err := M.ToDict()
	if err != nil {
		return nil, err
	}
	return foreign.Convert[[]Bond](M.h.Interpreter(), d["bonds"])
}

//IsIsomorphicWith returns true if M and other are the same chemical species.
func (M *Molecule) IsIsomorphicWith(other *Molecule) (bool, error) {
	return foreign.Call[bool](M, "is_isomorphic_with", other)
}

//ToDict returns the dictionary representation of the molecule.
func (M *Molecule) ToDict() (map[string]any, error) {
	return foreign.Call[map[string]any](M, "to_dict")
}

//ToTopology returns a topology with the molecule as its only member. It consumes M,
//which is released even if the conversion fails.
func (M *Molecule) ToTopology() (*Topology, error) {
	defer M.Release()
	h, err := foreign.Call[*foreign.Handle](M, "to_topology")
	if err != nil {
		return nil, err
	}
	return &Topology{h: h}, nil
}

//Release drops the reference to the foreign molecule.
func (M *Molecule) Release() error {
	return M.h.Release()
}
