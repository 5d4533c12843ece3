/*
 * geometric.go, part of gopenff.
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
	"gonum.org/v1/gonum/mat"
)

//Angle takes 2 vectors and calculate the angle in radians between them
//It does not check for correctness or return errors!
func Angle(v1, v2 *v3.Matrix) float64 {
	normproduct := v1.Norm() * v2.Norm()
	dotprod := v1.Dot(v2)
	argument := dotprod / normproduct
	//Take care of floating point math errors
	if math.Abs(argument-1) <= 1e-9 {
		argument = 1
	} else if math.Abs(argument+1) <= 1e-9 {
		argument = -1
	}
	return math.Acos(argument)
}

//RMSD returns the root mean square deviation between test and template after
//optimally superimposing them (Kabsch). Only the vectors listed in atoms are
//considered. If atoms is nil, all are used.
func RMSD(test, template *v3.Matrix, atoms []int) (float64, error) {
	if test.NVecs() != template.NVecs() {
		return 0, newError("RMSD", "Ill formed matrices for RMSD calculation: %d vs %d vectors", test.NVecs(), template.NVecs())
	}
	var err error
	ctest, ctempla := test, template
	if atoms != nil {
		if len(atoms) == 0 {
			return 0, newError("RMSD", "No atoms to compare")
		}
		ctest, err = test.SomeVecs(atoms)
		if err != nil {
			return 0, newError("RMSD", "%s", err.Error())
		}
		ctempla, _ = template.SomeVecs(atoms)
	}
	n := ctest.NVecs()
	p := v3.Zeros(n)
	q := v3.Zeros(n)
	p.SubVec(ctest, ctest.Centroid())
	q.SubVec(ctempla, ctempla.Centroid())
	var e0 float64
	for i := 0; i < n; i++ {
		e0 += mat.Dot(p.RowView(i), p.RowView(i)) + mat.Dot(q.RowView(i), q.RowView(i))
	}
	//covariance matrix
	H := mat.NewDense(3, 3, nil)
	H.Mul(p.Dense.T(), q.Dense)
	var svd mat.SVD
	if ok := svd.Factorize(H, mat.SVDNone); !ok {
		return 0, newError("RMSD", "SVD factorization failed")
	}
	s := svd.Values(nil)
	sign := 1.0
	if mat.Det(H) < 0 {
		sign = -1 //improper rotation would be needed, so we flip the smallest singular value.
	}
	msd := (e0 - 2*(s[0]+s[1]+sign*s[2])) / float64(n)
	if msd < 0 {
		msd = 0 //floating point noise for identical structures
	}
	return math.Sqrt(msd), nil
}

//HeavyAtoms returns the indexes of the non-hydrogen atoms in syms.
func HeavyAtoms(syms []string) []int {
	ret := make([]int, 0, len(syms))
	for i, s := range syms {
		if s != "H" {
			ret = append(ret, i)
		}
	}
	return ret
}

//SignedVolume returns the signed volume of the parallelepiped spanned by the unit vectors going from center
//to a, b and c. It is ~0 for coplanar points, and its sign gives the handedness.
func SignedVolume(coord *v3.Matrix, center, a, b, c int) float64 {
	cen := coord.VecView(center)
	units := make([]*v3.Matrix, 3)
	for i, k := range []int{a, b, c} {
		u := v3.Zeros(1)
		u.Sub(coord.VecView(k), cen)
		if norm := u.Norm(); norm > 0 {
			u.Scale(1/norm, u.Dense)
		}
		units[i] = u
	}
	cross := v3.Zeros(1)
	cross.Cross(units[1], units[2])
	return units[0].Dot(cross)
}
