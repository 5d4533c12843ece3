/*
 * chem.go, part of gopenff.
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

package chem

import (
	"sort"
	"strconv"
	"strings"
)

//Atom contains the information about an atom of a molecular graph.
type Atom struct {
	Index        int
	Z            int
	Symbol       string
	FormalCharge int
	Aromatic     bool
	Bonds        []*Bond
}

//Copy returns a copy of the Atom, without its bonds.
func (A *Atom) Copy() *Atom {
	ret := *A
	ret.Bonds = nil
	return &ret
}

//Neighbors returns the atoms bonded to A.
func (A *Atom) Neighbors() []*Atom {
	ret := make([]*Atom, 0, len(A.Bonds))
	for _, b := range A.Bonds {
		ret = append(ret, b.Cross(A))
	}
	return ret
}

//Molecule is a molecular graph. Atoms and bonds keep the order
//in which they were added, and their Index field equals their position.
type Molecule struct {
	Name  string
	Atoms []*Atom
	Bonds []*Bond
	//Partial charges in units of the elementary charge, one per atom, or nil.
	Charges []float64
	//Arbitrary key/value information, like the "properties" of an OpenFF molecule.
	Properties map[string]interface{}
}

//NewMolecule returns an empty molecule with the given name.
func NewMolecule(name string) *Molecule {
	return &Molecule{Name: name, Properties: make(map[string]interface{})}
}

//Atom returns the ith atom. Panics if out of range.
func (M *Molecule) Atom(i int) *Atom {
	return M.Atoms[i]
}

//Len returns the number of atoms in the molecule.
func (M *Molecule) Len() int {
	return len(M.Atoms)
}

//AddAtom appends an atom with atomic number z to the molecule and returns its 0-based index.
func (M *Molecule) AddAtom(z, formalCharge int, aromatic bool) (int, error) {
	sym := Symbol(z)
	if sym == "" {
		return -1, newError("AddAtom", "invalid atomic number %d", z)
	}
	at := &Atom{Index: len(M.Atoms), Z: z, Symbol: sym, FormalCharge: formalCharge, Aromatic: aromatic}
	M.Atoms = append(M.Atoms, at)
	M.Charges = nil //charges no longer match the atoms
	return at.Index, nil
}

//AddBond bonds the atoms with indexes i and j and returns the 0-based index of the new bond.
//A fractional order of 0 means "not set". The endpoints must exist, be different
//and not be bonded already.
func (M *Molecule) AddBond(i, j, order int, aromatic bool, fractional float64) (int, error) {
	n := len(M.Atoms)
	if i < 0 || j < 0 || i >= n || j >= n {
		return -1, newError("AddBond", "bond endpoints %d-%d out of range for a molecule with %d atoms", i, j, n)
	}
	if i == j {
		return -1, newError("AddBond", "cannot bond atom %d to itself", i)
	}
	if order < 0 {
		return -1, newError("AddBond", "invalid bond order %d", order)
	}
	if M.BondBetween(i, j) != nil {
		return -1, newError("AddBond", "atoms %d and %d are already bonded", i, j)
	}
	b := &Bond{Index: len(M.Bonds), At1: M.Atoms[i], At2: M.Atoms[j], Order: float64(order), Aromatic: aromatic, Fractional: fractional}
	M.Atoms[i].Bonds = append(M.Atoms[i].Bonds, b)
	M.Atoms[j].Bonds = append(M.Atoms[j].Bonds, b)
	M.Bonds = append(M.Bonds, b)
	return b.Index, nil
}

//BondBetween returns the bond between the atoms with indexes i and j, or nil.
func (M *Molecule) BondBetween(i, j int) *Bond {
	if i < 0 || i >= len(M.Atoms) {
		return nil
	}
	for _, b := range M.Atoms[i].Bonds {
		if b.Cross(M.Atoms[i]).Index == j {
			return b
		}
	}
	return nil
}

//SetCharges sets the partial charges of the molecule. There must be one charge per atom.
func (M *Molecule) SetCharges(q []float64) error {
	if q == nil {
		M.Charges = nil
		return nil
	}
	if len(q) != len(M.Atoms) {
		return newError("SetCharges", "%d partial charges given for %d atoms", len(q), len(M.Atoms))
	}
	M.Charges = append([]float64(nil), q...)
	return nil
}

//TotalCharge returns the sum of the formal charges.
func (M *Molecule) TotalCharge() int {
	var c int
	for _, a := range M.Atoms {
		c += a.FormalCharge
	}
	return c
}

//Symbols returns the element symbols of the atoms, in order.
func (M *Molecule) Symbols() []string {
	ret := make([]string, len(M.Atoms))
	for i, a := range M.Atoms {
		ret[i] = a.Symbol
	}
	return ret
}

//Formula returns the Hill formula of the molecule.
func (M *Molecule) Formula() string {
	return HillFormula(M.Symbols())
}

//Copy returns a deep copy of the molecule.
func (M *Molecule) Copy() *Molecule {
	ret := NewMolecule(M.Name)
	for _, a := range M.Atoms {
		ret.Atoms = append(ret.Atoms, a.Copy())
	}
	for _, b := range M.Bonds {
		nb := &Bond{Index: b.Index, At1: ret.Atoms[b.At1.Index], At2: ret.Atoms[b.At2.Index], Dist: b.Dist, Order: b.Order, Aromatic: b.Aromatic, Fractional: b.Fractional}
		nb.At1.Bonds = append(nb.At1.Bonds, nb)
		nb.At2.Bonds = append(nb.At2.Bonds, nb)
		ret.Bonds = append(ret.Bonds, nb)
	}
	if M.Charges != nil {
		ret.Charges = append([]float64(nil), M.Charges...)
	}
	for k, v := range M.Properties {
		ret.Properties[k] = v
	}
	return ret
}

//HillFormula returns the formula for a list of element symbols, in Hill order:
//C first, H second, everything else alphabetically. With no carbon, all alphabetically.
func HillFormula(syms []string) string {
	count := make(map[string]int)
	for _, s := range syms {
		count[s]++
	}
	order := make([]string, 0, len(count))
	_, carbon := count["C"]
	if carbon {
		order = append(order, "C")
		if _, ok := count["H"]; ok {
			order = append(order, "H")
		}
	}
	rest := make([]string, 0, len(count))
	for k := range count {
		if carbon && (k == "C" || k == "H") {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	order = append(order, rest...)
	var sb strings.Builder
	for _, k := range order {
		sb.WriteString(k)
		if count[k] > 1 {
			sb.WriteString(strconv.Itoa(count[k]))
		}
	}
	return sb.String()
}
