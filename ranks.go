/*
 * ranks.go, part of gopenff.
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
	"encoding/binary"
	"hash/fnv"
	"sort"
)

//Ranks returns an invariant for each atom of the molecule, obtained by iterative refinement
//(Morgan / Weisfeiler-Lehman) of the element, formal charge, aromaticity and degree of the atom with
//those of its neighbors and the order of the bonds leading to them.
//Atoms that are topologically equivalent get the same rank. The ranks don't depend on the order of the atoms.
func Ranks(mol *Molecule) []uint64 {
	n := mol.Len()
	ranks := make([]uint64, n)
	for i, a := range mol.Atoms {
		ranks[i] = hashInts(int64(a.Z), int64(a.FormalCharge), boolInt(a.Aromatic), int64(len(a.Bonds)))
	}
	classes := countClasses(ranks)
	next := make([]uint64, n)
	for iter := 0; iter < n; iter++ {
		for i, a := range mol.Atoms {
			env := make([]uint64, 0, len(a.Bonds))
			for _, b := range a.Bonds {
				env = append(env, hashInts(int64(b.Order*2), boolInt(b.Aromatic), int64(ranks[b.Cross(a).Index])))
			}
			sort.Slice(env, func(i, j int) bool { return env[i] < env[j] })
			vals := make([]int64, 0, len(env)+1)
			vals = append(vals, int64(ranks[i]))
			for _, v := range env {
				vals = append(vals, int64(v))
			}
			next[i] = hashInts(vals...)
		}
		ranks, next = next, ranks
		c := countClasses(ranks)
		if c == classes {
			break
		}
		classes = c
	}
	return ranks
}

//GraphHash returns a value that is equal for isomorphic molecular graphs. Different graphs
//will very likely, but not certainly, get different values.
func GraphHash(mol *Molecule) uint64 {
	r := Ranks(mol)
	sorted := append([]uint64(nil), r...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	vals := make([]int64, 0, len(sorted)+2)
	vals = append(vals, int64(len(mol.Atoms)), int64(len(mol.Bonds)))
	for _, v := range sorted {
		vals = append(vals, int64(v))
	}
	return hashInts(vals...)
}

func countClasses(r []uint64) int {
	set := make(map[uint64]struct{}, len(r))
	for _, v := range r {
		set[v] = struct{}{}
	}
	return len(set)
}

func hashInts(vals ...int64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
