/*
 * chem_test.go, part of gopenff.
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
	"errors"
	"math"
	"testing"

	v3 "github.com/rmera/gopenff/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//CHFClBr, a tetrahedral carbon with 4 different substituents.
func chiral(Te *testing.T) (*Molecule, *v3.Matrix) {
	mol := NewMolecule("bromochlorofluoromethane")
	for _, z := range []int{6, 1, 9, 17, 35} {
		_, err := mol.AddAtom(z, 0, false)
		require.NoError(Te, err)
	}
	for i := 1; i < 5; i++ {
		_, err := mol.AddBond(0, i, 1, false, 0)
		require.NoError(Te, err)
	}
	coords, err := v3.NewMatrix([]float64{
		0, 0, 0,
		0.629, 0.629, 0.629,
		0.779, -0.779, -0.779,
		-1.022, 1.022, -1.022,
		-1.12, -1.12, 1.12,
	})
	require.NoError(Te, err)
	return mol, coords
}

func TestAddAtomBond(Te *testing.T) {
	mol := NewMolecule("water")
	for i, z := range []int{8, 1, 1} {
		idx, err := mol.AddAtom(z, 0, false)
		require.NoError(Te, err)
		assert.Equal(Te, i, idx)
	}
	b, err := mol.AddBond(0, 1, 1, false, 0)
	require.NoError(Te, err)
	assert.Equal(Te, 0, b)
	b, err = mol.AddBond(0, 2, 1, false, 0.98)
	require.NoError(Te, err)
	assert.Equal(Te, 1, b)
	assert.Equal(Te, "H2O", mol.Formula())

	_, err = mol.AddBond(0, 3, 1, false, 0)
	assert.True(Te, errors.Is(err, ErrInvalid))
	_, err = mol.AddBond(1, 1, 1, false, 0)
	assert.Error(Te, err)
	_, err = mol.AddBond(1, 0, 1, false, 0)
	assert.Error(Te, err, "duplicate bond")
	_, err = mol.AddAtom(0, 0, false)
	assert.Error(Te, err)
	_, err = mol.AddAtom(MaxAtomicNumber+1, 0, false)
	assert.Error(Te, err)

	assert.Error(Te, mol.SetCharges([]float64{-0.8, 0.4}))
	require.NoError(Te, mol.SetCharges([]float64{-0.8, 0.4, 0.4}))
	cp := mol.Copy()
	cp.Charges[0] = 0
	assert.Equal(Te, -0.8, mol.Charges[0])
	assert.Len(Te, cp.Atoms[0].Bonds, 2)
}

func TestAtomicData(Te *testing.T) {
	assert.Equal(Te, "Cl", Symbol(17))
	assert.Equal(Te, 35, AtomicNumber("BR"))
	assert.Equal(Te, 0, AtomicNumber("Xx"))
	r, ok := CovalentRadius("C")
	assert.True(Te, ok)
	assert.Equal(Te, 0.76, r)
	assert.Equal(Te, "C2H6O", HillFormula([]string{"C", "O", "H", "H", "C", "H", "H", "H", "H"}))
	assert.Equal(Te, "BrH", HillFormula([]string{"H", "Br"}))
}

func TestPerceiveBonds(Te *testing.T) {
	mol, coords := chiral(Te)
	pairs, err := PerceiveBonds(coords, mol.Symbols(), 1.2)
	require.NoError(Te, err)
	assert.Equal(Te, [][2]int{{0, 1}, {0, 2}, {0, 3}, {0, 4}}, pairs)
	same, _ := SameConnectivity(pairs, [][2]int{{4, 0}, {3, 0}, {0, 2}, {1, 0}})
	assert.True(Te, same)
	same, why := SameConnectivity(pairs, [][2]int{{0, 1}, {0, 2}, {0, 3}})
	assert.False(Te, same)
	assert.Contains(Te, why, "0-4")

	_, err = PerceiveBonds(coords, []string{"C", "H"}, 1.2)
	assert.Error(Te, err)
}

func TestRMSD(Te *testing.T) {
	_, coords := chiral(Te)
	n := coords.NVecs()
	//rotate 90 degrees around z and translate
	moved := v3.Zeros(n)
	for i := 0; i < n; i++ {
		r := coords.RawRowView(i)
		moved.Set(i, 0, -r[1]+3)
		moved.Set(i, 1, r[0]-1)
		moved.Set(i, 2, r[2]+0.5)
	}
	rmsd, err := RMSD(coords, moved, nil)
	require.NoError(Te, err)
	assert.InDelta(Te, 0.0, rmsd, 1e-6)

	//the enantiomer can't be superimposed
	mirror := v3.Zeros(n)
	for i := 0; i < n; i++ {
		r := coords.RawRowView(i)
		mirror.Set(i, 0, -r[0])
		mirror.Set(i, 1, r[1])
		mirror.Set(i, 2, r[2])
	}
	rmsd, err = RMSD(coords, mirror, nil)
	require.NoError(Te, err)
	assert.Greater(Te, rmsd, 0.1)

	rmsd, err = RMSD(coords, mirror, []int{0, 1})
	require.NoError(Te, err)
	assert.InDelta(Te, 0.0, rmsd, 1e-6, "two points can always be superimposed")

	rmsd, err = RMSD(coords, coords, nil)
	require.NoError(Te, err)
	assert.InDelta(Te, 0.0, rmsd, 1e-6, "a structure against itself")

	_, err = RMSD(coords, v3.Zeros(2), nil)
	assert.Error(Te, err)
	_, err = RMSD(coords, moved, []int{})
	assert.Error(Te, err, "no atoms to compare")
	assert.Equal(Te, []int{0, 2}, HeavyAtoms([]string{"C", "H", "O", "H"}))
}

func TestStereo(Te *testing.T) {
	mol, coords := chiral(Te)
	assert.Equal(Te, []int{0}, Stereocentres(mol))
	v := SignedVolume(coords, 0, 1, 2, 3)
	assert.InDelta(Te, 4/(3*math.Sqrt(3)), math.Abs(v), 1e-2)
	bad, err := UnperceivableStereo(mol, coords, 0)
	require.NoError(Te, err)
	assert.Empty(Te, bad)

	flat, _ := v3.NewMatrix([]float64{
		0, 0, 0,
		1.09, 0, 0,
		0, 1.35, 0,
		-1.77, 0, 0,
		0, -1.94, 0,
	})
	bad, err = UnperceivableStereo(mol, flat, 0)
	require.NoError(Te, err)
	assert.Equal(Te, []int{0}, bad)

	methane := NewMolecule("methane")
	methane.AddAtom(6, 0, false)
	for i := 1; i < 5; i++ {
		methane.AddAtom(1, 0, false)
		methane.AddBond(0, i, 1, false, 0)
	}
	assert.Empty(Te, Stereocentres(methane))
}

func TestRanks(Te *testing.T) {
	a := NewMolecule("ethanol")
	for _, z := range []int{6, 6, 8} {
		a.AddAtom(z, 0, false)
	}
	a.AddBond(0, 1, 1, false, 0)
	a.AddBond(1, 2, 1, false, 0)
	b := NewMolecule("ethanol, other order")
	for _, z := range []int{8, 6, 6} {
		b.AddAtom(z, 0, false)
	}
	b.AddBond(2, 1, 1, false, 0)
	b.AddBond(0, 1, 1, false, 0)
	assert.Equal(Te, GraphHash(a), GraphHash(b))
	c := NewMolecule("dimethyl ether")
	for _, z := range []int{6, 8, 6} {
		c.AddAtom(z, 0, false)
	}
	c.AddBond(0, 1, 1, false, 0)
	c.AddBond(1, 2, 1, false, 0)
	assert.NotEqual(Te, GraphHash(a), GraphHash(c))
	r := Ranks(c)
	assert.Equal(Te, r[0], r[2])
	assert.NotEqual(Te, r[0], r[1])
}

func TestHydrogenBonds(Te *testing.T) {
	mol := NewMolecule("")
	mol.AddAtom(8, 0, false)
	mol.AddAtom(1, 0, false)
	mol.AddAtom(8, 0, false)
	mol.AddBond(0, 1, 1, false, 0)
	linear, _ := v3.NewMatrix([]float64{0, 0, 0, 0.96, 0, 0, 2.9, 0, 0})
	hb, err := HydrogenBonds(mol, linear)
	require.NoError(Te, err)
	require.Len(Te, hb, 1)
	assert.Equal(Te, HBond{Donor: 0, Hydrogen: 1, Acceptor: 2, Dist: hb[0].Dist, Angle: hb[0].Angle}, hb[0])
	assert.InDelta(Te, 1.94, hb[0].Dist, 1e-9)
	assert.InDelta(Te, 180.0, hb[0].Angle, 1e-6)

	bent, _ := v3.NewMatrix([]float64{0, 0, 0, 0.96, 0, 0, 0.96, 1.9, 0})
	hb, err = HydrogenBonds(mol, bent)
	require.NoError(Te, err)
	assert.Empty(Te, hb)
}

func TestSymbolsFromSMILES(Te *testing.T) {
	table := []struct {
		smiles string
		want   []string
	}{
		{"[C:1]([H:2])([H:3])([H:4])[O:5][H:6]", []string{"C", "H", "H", "H", "O", "H"}},
		{"c1ccccc1Cl", []string{"C", "C", "C", "C", "C", "C", "Cl"}},
		{"[NH4+]", []string{"N", "H", "H", "H", "H"}},
		{"[13CH3]Br", []string{"C", "H", "H", "H", "Br"}},
		{"c1cc[nH]c1", []string{"C", "C", "C", "N", "H", "C"}},
		{"[C@@H:1](F)(Cl)I", []string{"C", "H", "F", "Cl", "I"}},
	}
	for _, v := range table {
		got, err := SymbolsFromSMILES(v.smiles)
		require.NoError(Te, err, v.smiles)
		assert.Equal(Te, v.want, got, v.smiles)
	}
	_, err := SymbolsFromSMILES("[CH3")
	assert.Error(Te, err)
	_, err = SymbolsFromSMILES("CQ")
	assert.Error(Te, err)
}
