/*
 * bonds.go, part of gopenff.
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
	"fmt"

	v3 "github.com/rmera/gopenff/v3"
)

//Atoms closer than this (in A) are never considered bonded.
const tooclose = 0.63

//DefaultBondTolerance is the multiplicative tolerance on the sum of covalent
//radii used when none is given.
const DefaultBondTolerance = 1.2

type Bond struct {
	Index      int
	At1        *Atom
	At2        *Atom
	Dist       float64
	Order      float64 //Order 0 means undetermined
	Aromatic   bool
	Fractional float64 //Fractional (e.g. Wiberg) bond order, 0 if not set
}

//Cross returns the atom at the other end of the bond from origin.
func (B *Bond) Cross(origin *Atom) *Atom {
	if origin.Index == B.At1.Index {
		return B.At2
	}
	if origin.Index == B.At2.Index {
		return B.At1
	}
	panic("Trying to cross a bond: The origin atom given is not present in the bond!") //I think this got to be a programming error, so a panic is warranted.
}

//Pair returns the indexes of the bonded atoms, the smallest first.
func (B *Bond) Pair() [2]int {
	if B.At1.Index < B.At2.Index {
		return [2]int{B.At1.Index, B.At2.Index}
	}
	return [2]int{B.At2.Index, B.At1.Index}
}

//PerceiveBonds returns the pairs of atoms (smallest index first, sorted) that are
//bonded according to a simple distance criterium: two atoms are bonded when their
//distance is below tolerance times the sum of their covalent radii.
//coord holds the positions, in A, of the atoms with the given element symbols.
func PerceiveBonds(coord *v3.Matrix, syms []string, tolerance float64) ([][2]int, error) {
	tot := len(syms)
	if coord.NVecs() != tot {
		return nil, newError("PerceiveBonds", "%d coordinates for %d atoms", coord.NVecs(), tot)
	}
	if tolerance <= 0 {
		tolerance = DefaultBondTolerance
	}
	radii := make([]float64, tot)
	for i, s := range syms {
		cov, ok := symbolCovrad[s]
		if !ok {
			return nil, newError("PerceiveBonds", "Couldn't find the covalent radius for %s %d", s, i)
		}
		radii[i] = cov
	}
	ret := make([][2]int, 0, tot)
	for i := 0; i < tot; i++ {
		for j := i + 1; j < tot; j++ {
			d := coord.Distance(i, j)
			if d < tolerance*(radii[i]+radii[j]) && d > tooclose {
				ret = append(ret, [2]int{i, j})
			}
		}
	}
	return ret, nil
}

//SameConnectivity returns true if the two lists of bonded pairs describe the same graph.
//The order of the pairs, and of the atoms in each pair, is not relevant. If they differ,
//a description of the first difference is also returned.
func SameConnectivity(a, b [][2]int) (bool, string) {
	set := make(map[[2]int]bool, len(a))
	for _, p := range a {
		set[normPair(p)] = true
	}
	seen := make(map[[2]int]bool, len(b))
	for _, p := range b {
		p = normPair(p)
		seen[p] = true
		if !set[p] {
			return false, fmt.Sprintf("bond %d-%d not present in the reference", p[0], p[1])
		}
	}
	for p := range set {
		if !seen[p] {
			return false, fmt.Sprintf("bond %d-%d missing", p[0], p[1])
		}
	}
	return true, ""
}

func normPair(p [2]int) [2]int {
	if p[0] > p[1] {
		return [2]int{p[1], p[0]}
	}
	return p
}
