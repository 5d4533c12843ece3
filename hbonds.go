/*
 * hbonds.go, part of gopenff.
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
	"math"

	v3 "github.com/rmera/gopenff/v3"
)

//Default geometric criteria for hydrogen bonds.
const (
	HBondMaxDistance = 2.5   //H...A, in A
	HBondMinAngle    = 120.0 //D-H...A, in degrees
)

//HBond is a donor-hydrogen...acceptor contact.
type HBond struct {
	Donor    int
	Hydrogen int
	Acceptor int
	Dist     float64 //H...A distance
	Angle    float64 //D-H...A angle, in degrees
}

//HydrogenBonds returns the intramolecular hydrogen bonds in mol, with coordinates coord.
//Donors and acceptors are N, O and F atoms. The hydrogen must be bonded to the donor,
//and the acceptor can't be bonded to the donor.
func HydrogenBonds(mol *Molecule, coord *v3.Matrix) ([]HBond, error) {
	if coord.NVecs() != mol.Len() {
		return nil, newError("HydrogenBonds", "%d coordinates for %d atoms", coord.NVecs(), mol.Len())
	}
	ret := make([]HBond, 0)
	v1 := v3.Zeros(1)
	v2 := v3.Zeros(1)
	for _, h := range mol.Atoms {
		if h.Symbol != "H" || len(h.Bonds) != 1 {
			continue
		}
		d := h.Bonds[0].Cross(h)
		if !hbondHeavy[d.Symbol] {
			continue
		}
		for _, a := range mol.Atoms {
			if a.Index == d.Index || !hbondHeavy[a.Symbol] || mol.BondBetween(a.Index, d.Index) != nil {
				continue
			}
			dist := coord.Distance(h.Index, a.Index)
			if dist >= HBondMaxDistance {
				continue
			}
			v1.Sub(coord.VecView(d.Index), coord.VecView(h.Index))
			v2.Sub(coord.VecView(a.Index), coord.VecView(h.Index))
			angle := Angle(v1, v2) * 180 / math.Pi
			if angle > HBondMinAngle {
				ret = append(ret, HBond{Donor: d.Index, Hydrogen: h.Index, Acceptor: a.Index, Dist: dist, Angle: angle})
			}
		}
	}
	return ret, nil
}
