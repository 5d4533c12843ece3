/*
 * topology.go, part of gopenff.
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

package toolkit

import (
	"github.com/rmera/gopenff/foreign"
)

var (
	nMolecules       = foreign.NewProp[int]("n_molecules")
	nUniqueMolecules = foreign.NewProp[int]("n_unique_molecules")
	topAtoms         = foreign.NewProp[int]("n_atoms")
	topBonds         = foreign.NewProp[int]("n_bonds")
)

//Topology is an ordered collection of molecules.
type Topology struct {
	h *foreign.Handle
}

//NewTopology returns an empty topology.
func NewTopology(ip *foreign.Interpreter) (*Topology, error) {
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, "Topology", nil)
	if err != nil {
		return nil, err
	}
	return &Topology{h: h}, nil
}

//TopologyFromMolecules returns a topology with copies of the given molecules, in order.
func TopologyFromMolecules(ip *foreign.Interpreter, mols []*Molecule) (*Topology, error) {
	cls, err := ip.Import(module, "Topology")
	if err != nil {
		return nil, err
	}
	defer cls.Release()
	h, err := foreign.Call[*foreign.Handle](cls, "from_molecules", mols)
	if err != nil {
		return nil, err
	}
	return &Topology{h: h}, nil
}

//TopologyFromHandle wraps h, which must hold a topology. The topology takes ownership of h.
func TopologyFromHandle(h *foreign.Handle) *Topology {
	return &Topology{h: h}
}

func (T *Topology) Handle() *foreign.Handle {
	if T == nil {
		return nil
	}
	return T.h
}

//AddMolecule adds a copy of mol to the topology and returns its index.
func (T *Topology) AddMolecule(mol *Molecule) (int, error) {
	return foreign.Call[int](T, "add_molecule", mol)
}

//NMolecules returns the number of molecules in the topology.
func (T *Topology) NMolecules() (int, error) {
	return nMolecules.Get(T)
}

//NUniqueMolecules returns the number of chemically distinct molecules in the topology.
func (T *Topology) NUniqueMolecules() (int, error) {
	return nUniqueMolecules.Get(T)
}

//NAtoms returns the number of atoms in all the molecules of the topology.
func (T *Topology) NAtoms() (int, error) {
	return topAtoms.Get(T)
}

//NBonds returns the number of bonds in all the molecules of the topology.
func (T *Topology) NBonds() (int, error) {
	return topBonds.Get(T)
}

//Molecules returns the molecules of the topology. They must be released by the caller.
func (T *Topology) Molecules() ([]*Molecule, error) {
	return molecules(T, "molecules")
}

//UniqueMolecules returns the first occurrence of each chemically distinct molecule.
//They must be released by the caller.
func (T *Topology) UniqueMolecules() ([]*Molecule, error) {
	return molecules(T, "unique_molecules")
}

//Molecule returns the i-th molecule of the topology.
func (T *Topology) Molecule(i int) (*Molecule, error) {
	h, err := foreign.Call[*foreign.Handle](T, "molecule", i)
	if err != nil {
		return nil, err
	}
	return &Molecule{h: h}, nil
}

func (T *Topology) Release() error {
	return T.h.Release()
}

func molecules(T *Topology, attr string) ([]*Molecule, error) {
	hs, err := foreign.GetAttr[[]*foreign.Handle](T, attr)
	if err != nil {
		return nil, err
	}
	ret := make([]*Molecule, len(hs))
	for i, h := range hs {
		ret[i] = &Molecule{h: h}
	}
	return ret, nil
}
