/*
 * stereo.go, part of gopenff.
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

//DefaultStereoVolume is the smallest absolute signed volume (see SignedVolume) that a stereocentre
//can have and still have its configuration perceived from the geometry. A perfect tetrahedron gives ~0.77.
const DefaultStereoVolume = 0.1

//Stereocentres returns the indexes of the tetrahedral stereocentres of the molecule, that
//is, atoms with 4 neighbors that are all topologically different, or N/P/S atoms with 3 such neighbors.
func Stereocentres(mol *Molecule) []int {
	ranks := Ranks(mol)
	ret := make([]int, 0)
	for i, a := range mol.Atoms {
		nb := len(a.Bonds)
		if a.Aromatic {
			continue
		}
		if nb != 4 && !(nb == 3 && (a.Symbol == "P" || a.Symbol == "S")) {
			continue
		}
		seen := make(map[uint64]bool, nb)
		unique := true
		for _, b := range a.Bonds {
			if b.Order > 1 && a.Symbol == "C" {
				unique = false
				break
			}
			r := ranks[b.Cross(a).Index]
			if seen[r] {
				unique = false
				break
			}
			seen[r] = true
		}
		if unique {
			ret = append(ret, i)
		}
	}
	return ret
}

//UnperceivableStereo returns the stereocentres of mol for which the geometry in coord
//is too flat to decide the configuration, i.e., the absolute signed volume of
//the first three neighbors is below minVolume. A minVolume <= 0 means DefaultStereoVolume.
func UnperceivableStereo(mol *Molecule, coord *v3.Matrix, minVolume float64) ([]int, error) {
	if coord.NVecs() != mol.Len() {
		return nil, newError("UnperceivableStereo", "%d coordinates for %d atoms", coord.NVecs(), mol.Len())
	}
	if minVolume <= 0 {
		minVolume = DefaultStereoVolume
	}
	ret := make([]int, 0)
	for _, c := range Stereocentres(mol) {
		nbs := mol.Atoms[c].Neighbors()
		v := SignedVolume(coord, c, nbs[0].Index, nbs[1].Index, nbs[2].Index)
		if math.Abs(v) < minVolume {
			ret = append(ret, c)
		}
	}
	return ret, nil
}
