/*
 * toolkit_test.go, part of gopenff.
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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/foreign/foreigntest"
	"github.com/rmera/gopenff/foreign/native"
	"github.com/rmera/gopenff/units"
)

func newInterp(Te *testing.T) (*native.Backend, *foreign.Interpreter) {
	b := native.New(native.Options{})
	ip := foreign.NewInterpreter(b)
	Te.Cleanup(func() { ip.Close() })
	return b, ip
}

//water builds a water molecule, checking the indexes returned.
func water(Te *testing.T, ip *foreign.Interpreter) *Molecule {
	Te.Helper()
	mol, err := NewMolecule(ip)
	require.NoError(Te, err)
	for i, z := range []uint8{8, 1, 1} {
		idx, err := mol.AddAtom(z, 0, false)
		require.NoError(Te, err)
		assert.Equal(Te, i, idx)
	}
	one := 1.0
	for i, frac := range []*float64{nil, &one} {
		idx, err := mol.AddBond(0, i+1, 1, false, frac)
		require.NoError(Te, err)
		assert.Equal(Te, i, idx)
	}
	return mol
}

func TestMolecule(Te *testing.T) {
	_, ip := newInterp(Te)
	mol := water(Te, ip)
	defer mol.Release()
	n, err := mol.NAtoms()
	require.NoError(Te, err)
	assert.Equal(Te, 3, n)
	n, err = mol.NBonds()
	require.NoError(Te, err)
	assert.Equal(Te, 2, n)
	f, err := mol.HillFormula()
	require.NoError(Te, err)
	assert.Equal(Te, "H2O", f)
	at, err := mol.Atoms()
	require.NoError(Te, err)
	assert.Equal(Te, Atom{AtomicNumber: 8, Element: "O"}, at[0])
	bo, err := mol.Bonds()
	require.NoError(Te, err)
	require.Len(Te, bo, 2)
	assert.Nil(Te, bo[0].FractionalBondOrder, "no fractional bond order was given")
	assert.Equal(Te, 2, bo[1].Atom2)
	require.NotNil(Te, bo[1].FractionalBondOrder)
	assert.Equal(Te, 1.0, *bo[1].FractionalBondOrder)

	_, err = mol.AddBond(0, 5, 1, false, nil)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	var fe *foreign.Error
	require.True(Te, errors.As(err, &fe))
	assert.Equal(Te, "Molecule", fe.Class)
	assert.Equal(Te, "add_bond", fe.Name)

	require.NoError(Te, mol.SetName("water"))
	name, err := mol.Name()
	require.NoError(Te, err)
	assert.Equal(Te, "water", name)

	none, err := mol.PartialCharges()
	require.NoError(Te, err)
	assert.Nil(Te, none)
	q, err := units.NewQuantity(ip, []float64{-0.8, 0.4, 0.4}, "elementary_charge")
	require.NoError(Te, err)
	defer q.Release()
	require.NoError(Te, mol.SetPartialCharges(q))
	charges, err := mol.PartialCharges()
	require.NoError(Te, err)
	mag, err := charges.Magnitude()
	require.NoError(Te, err)
	assert.Equal(Te, []float64{-0.8, 0.4, 0.4}, mag)
	require.NoError(Te, charges.Release())
	short, err := units.NewQuantity(ip, []float64{1}, "elementary_charge")
	require.NoError(Te, err)
	defer short.Release()
	assert.True(Te, errors.Is(mol.SetPartialCharges(short), foreign.ErrExternal))
	require.NoError(Te, mol.SetPartialCharges(nil))

	d, err := mol.ToDict()
	require.NoError(Te, err)
	copied, err := MoleculeFromDict(ip, d)
	require.NoError(Te, err)
	defer copied.Release()
	same, err := mol.IsIsomorphicWith(copied)
	require.NoError(Te, err)
	assert.True(Te, same)
}

func TestAddAtomIndexes(Te *testing.T) {
	_, ip := newInterp(Te)
	mol, err := NewMolecule(ip)
	require.NoError(Te, err)
	defer mol.Release()
	for i := 0; i < 20; i++ {
		idx, err := mol.AddAtom(uint8(1+i%9), 0, false)
		require.NoError(Te, err)
		assert.Equal(Te, i, idx)
	}
}

func TestTopology(Te *testing.T) {
	_, ip := newInterp(Te)
	a, b := water(Te, ip), water(Te, ip)
	defer foreign.ReleaseAll(a, b)
	top, err := TopologyFromMolecules(ip, []*Molecule{a, b})
	require.NoError(Te, err)
	defer top.Release()
	n, err := top.NMolecules()
	require.NoError(Te, err)
	assert.Equal(Te, 2, n)
	n, err = top.NUniqueMolecules()
	require.NoError(Te, err)
	assert.Equal(Te, 1, n)
	n, err = top.NAtoms()
	require.NoError(Te, err)
	assert.Equal(Te, 6, n)

	//a different charge distribution is not the same molecule
	ion, err := NewMolecule(ip)
	require.NoError(Te, err)
	_, err = ion.AddAtom(8, -1, false)
	require.NoError(Te, err)
	_, err = ion.AddAtom(1, 0, false)
	require.NoError(Te, err)
	_, err = ion.AddBond(0, 1, 1, false, nil)
	require.NoError(Te, err)
	i, err := top.AddMolecule(ion)
	require.NoError(Te, err)
	assert.Equal(Te, 2, i)
	uniq, err := top.UniqueMolecules()
	require.NoError(Te, err)
	assert.Len(Te, uniq, 2)
	require.NoError(Te, foreign.ReleaseAll(uniq...))

	single, err := ion.ToTopology()
	require.NoError(Te, err)
	defer single.Release()
	assert.True(Te, ion.Handle().Released(), "ToTopology consumes the molecule")
	_, err = ion.NAtoms()
	assert.True(Te, errors.Is(err, foreign.ErrReleased))
	m, err := single.Molecule(0)
	require.NoError(Te, err)
	defer m.Release()
	n, err = m.NAtoms()
	require.NoError(Te, err)
	assert.Equal(Te, 2, n)
	_, err = single.Molecule(1)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))

	empty, err := NewTopology(ip)
	require.NoError(Te, err)
	defer empty.Release()
	mols, err := empty.Molecules()
	require.NoError(Te, err)
	assert.Empty(Te, mols)
}

//The facades forward the exact names and arguments the toolkit expects.
func TestForwarding(Te *testing.T) {
	b := foreigntest.New()
	ip := foreign.NewInterpreter(b)
	b.Return(foreign.OpCall, "add_atom", int64(0))
	b.Return(foreign.OpCall, "add_bond", int64(0))
	mol, err := NewMolecule(ip)
	require.NoError(Te, err)
	_, err = mol.AddAtom(6, -1, true)
	require.NoError(Te, err)
	c, _ := b.Last(foreign.OpCall)
	assert.Equal(Te, "add_atom", c.Name)
	assert.Equal(Te, []any{int64(6), int64(-1), true}, c.Args)
	assert.Nil(Te, c.Kwargs)

	frac := 1.5
	_, err = mol.AddBond(0, 1, 2, false, &frac)
	require.NoError(Te, err)
	c, _ = b.Last(foreign.OpCall)
	assert.Equal(Te, []any{int64(0), int64(1), int64(2), false}, c.Args)
	assert.Equal(Te, map[string]any{"fractional_bond_order": 1.5}, c.Kwargs)
	_, err = mol.AddBond(0, 1, 1, false, nil)
	require.NoError(Te, err)
	c, _ = b.Last(foreign.OpCall)
	assert.Nil(Te, c.Kwargs, "an unset bond order is left to the toolkit default")

	q, err := units.NewQuantity(ip, []float64{0.1}, "elementary_charge")
	require.NoError(Te, err)
	require.NoError(Te, mol.SetPartialCharges(q))
	s, _ := b.Last(foreign.OpSetAttr)
	assert.Equal(Te, "partial_charges", s.Name)
	assert.Equal(Te, q.Handle().Ref(), s.Value)

	b.Return(foreign.OpCall, "add_atom", "zero")
	_, err = mol.AddAtom(1, 0, false)
	assert.True(Te, errors.Is(err, foreign.ErrConversion))

	b.ReturnObject(foreign.OpCall, "to_topology", "Topology")
	top, err := mol.ToTopology()
	require.NoError(Te, err)
	require.NoError(Te, foreign.ReleaseAll[foreign.Handler](top, q))
	assert.Equal(Te, 0, b.Live())
}
