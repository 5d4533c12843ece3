/*
 * graph.go, part of gopenff.
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

//Package chemgraph exposes the molecular graphs of package chem as gonum graphs, and
//provides the topological comparisons used to find unique molecules in a topology.
package chemgraph

import (
	"sort"

	chem "github.com/rmera/gopenff"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

//Atom is a graph.Node wrapping a chem.Atom. Its ID is the atom index.
type Atom struct {
	*chem.Atom
}

func (A Atom) ID() int64 {
	return int64(A.Index)
}

//FromMolecule returns an undirected graph with one node per atom and one edge per bond.
//Edge weights are bond orders, or 1 if the order is undetermined.
func FromMolecule(mol *chem.Molecule) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for _, a := range mol.Atoms {
		g.AddNode(Atom{a})
	}
	for _, b := range mol.Bonds {
		w := b.Order
		if w == 0 {
			w = 1
		}
		g.SetWeightedEdge(g.NewWeightedEdge(Atom{b.At1}, Atom{b.At2}, w))
	}
	return g
}

//BondDistance returns the number of bonds in the shortest path between atoms i and j,
//or -1 if they are not connected.
func BondDistance(mol *chem.Molecule, i, j int) int {
	g := simple.NewUndirectedGraph()
	for _, a := range mol.Atoms {
		g.AddNode(Atom{a})
	}
	for _, b := range mol.Bonds {
		g.SetEdge(g.NewEdge(Atom{b.At1}, Atom{b.At2}))
	}
	sp := path.DijkstraFrom(g.Node(int64(i)), g)
	nodes, _ := sp.To(int64(j))
	if len(nodes) == 0 {
		return -1
	}
	return len(nodes) - 1
}

//Identical returns true if a and b are the same molecule: isomorphic graphs with the same
//formal charges, aromaticity and bond orders, and the same partial charges (or no partial
//charges in either of them), compared in the order of the canonical ranks.
func Identical(a, b *chem.Molecule) bool {
	if a.Len() != b.Len() || len(a.Bonds) != len(b.Bonds) {
		return false
	}
	if chem.GraphHash(a) != chem.GraphHash(b) {
		return false
	}
	if (a.Charges == nil) != (b.Charges == nil) {
		return false
	}
	if a.Charges == nil {
		return true
	}
	return sameCharges(a, b)
}

//sameCharges compares the multisets of (rank, charge) pairs of both molecules.
func sameCharges(a, b *chem.Molecule) bool {
	const tol = 1e-6
	type rq struct {
		r uint64
		q float64
	}
	collect := func(m *chem.Molecule) []rq {
		r := chem.Ranks(m)
		ret := make([]rq, len(r))
		for i := range r {
			ret[i] = rq{r[i], m.Charges[i]}
		}
		sort.Slice(ret, func(i, j int) bool {
			if ret[i].r != ret[j].r {
				return ret[i].r < ret[j].r
			}
			return ret[i].q < ret[j].q
		})
		return ret
	}
	ca, cb := collect(a), collect(b)
	for i := range ca {
		if ca[i].r != cb[i].r {
			return false
		}
		d := ca[i].q - cb[i].q
		if d > tol || d < -tol {
			return false
		}
	}
	return true
}

var _ graph.Node = Atom{}
