/*
 * gonum.go, part of gopenff.
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

//gonum.go contains most of what is needed for handling the gonum/mat types.

//All the *Vec functions will operate/produce row vectors, as the underlying Dense is
//row major.

package v3

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//Matrix is a set of vectors in 3D space. Within the package it is understood that
//a "vector" is a row vector, i.e. the cartesian coordinates of a point in 3D space.
type Matrix struct {
	*mat.Dense
}

func Matrix2Dense(A *Matrix) *mat.Dense {
	return A.Dense
}

func Dense2Matrix(A *mat.Dense) *Matrix {
	return &Matrix{A}
}

//NewMatrix generates and returns a Matrix with 3 columns from data.
//data is used as backing storage, not copied.
func NewMatrix(data []float64) (*Matrix, error) {
	const cols int = 3
	l := len(data)
	rows := l / cols
	if l%cols != 0 || l == 0 {
		return nil, Error{fmt.Sprintf("Input slice length %d not divisible by %d or empty", l, cols), []string{"NewMatrix"}, true}
	}
	r := mat.NewDense(rows, cols, data)
	return &Matrix{r}, nil
}

//Zeros returns a zero-filled Matrix with vecs vectors and 3 columns.
func Zeros(vecs int) *Matrix {
	f := make([]float64, cols*vecs)
	return &Matrix{mat.NewDense(vecs, cols, f)}
}

const cols int = 3

//NVecs returns the number of vectors (rows) in the matrix.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != cols {
		panic(ErrNotXx3Matrix)
	}
	return r
}

//VecView returns a view of the ith vector of the matrix.
func (F *Matrix) VecView(i int) *Matrix {
	r := F.Dense.Slice(i, i+1, 0, cols).(*mat.Dense)
	return &Matrix{r}
}

//SomeVecs returns a new matrix with a copy of the vectors of A listed in clist.
func (F *Matrix) SomeVecs(clist []int) (*Matrix, error) {
	if len(clist) == 0 {
		return nil, Error{"No vectors requested", []string{"SomeVecs"}, true}
	}
	ret := Zeros(len(clist))
	n := F.NVecs()
	for i, v := range clist {
		if v < 0 || v >= n {
			return nil, Error{fmt.Sprintf("Vector index %d out of range (%d vectors)", v, n), []string{"SomeVecs"}, true}
		}
		ret.SetRow(i, F.RawRowView(v))
	}
	return ret, nil
}

//Centroid returns the geometric center of the vectors in F.
func (F *Matrix) Centroid() *Matrix {
	var sum [cols]float64
	n := F.NVecs()
	for i := 0; i < n; i++ {
		row := F.RawRowView(i)
		for j := range sum {
			sum[j] += row[j]
		}
	}
	c := Zeros(1)
	for j, v := range sum {
		c.Set(0, j, v/float64(n))
	}
	return c
}

//SubVec puts in the receiver each vector of A minus vec.
func (F *Matrix) SubVec(A, vec *Matrix) {
	n := A.NVecs()
	v := vec.RawRowView(0)
	for i := 0; i < n; i++ {
		row := A.RawRowView(i)
		F.Set(i, 0, row[0]-v[0])
		F.Set(i, 1, row[1]-v[1])
		F.Set(i, 2, row[2]-v[2])
	}
}

//Cross puts the cross product of the row vectors a and b in the receiver.
func (F *Matrix) Cross(a, b *Matrix) {
	if a.NVecs() != 1 || b.NVecs() != 1 || F.NVecs() != 1 {
		panic(ErrNoCrossProduct)
	}
	x := a.RawRowView(0)
	y := b.RawRowView(0)
	F.Set(0, 0, x[1]*y[2]-x[2]*y[1])
	F.Set(0, 1, x[2]*y[0]-x[0]*y[2])
	F.Set(0, 2, x[0]*y[1]-x[1]*y[0])
}

//Dot returns the dot product of the row vectors F and B.
func (F *Matrix) Dot(B *Matrix) float64 {
	if F.NVecs() != 1 || B.NVecs() != 1 {
		panic(ErrShape)
	}
	return mat.Dot(F.RowView(0), B.RowView(0))
}

//Norm returns the euclidean norm of the row vector F.
func (F *Matrix) Norm() float64 {
	return mat.Norm(F.Dense, 2)
}

//Distance returns the distance between the ith and jth vectors of F.
func (F *Matrix) Distance(i, j int) float64 {
	a := F.RawRowView(i)
	b := F.RawRowView(j)
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

//String returns a nicely formatted representation of the matrix.
func (F *Matrix) String() string {
	return fmt.Sprintf("%v", mat.Formatted(F.Dense, mat.Squeeze()))
}

//Errors

type Error struct {
	message  string
	deco     []string
	critical bool
}

//Error returns a string with an error message.
func (err Error) Error() string {
	return err.message
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (err Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

//Critical return whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

//PanicMsg is a message used for panics, even though it does satisfy the error interface.
//for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix   = PanicMsg("gopenff/v3: A Matrix should have 3 columns")
	ErrNoCrossProduct = PanicMsg("gopenff/v3: Invalid matrix for cross product")
	ErrShape          = PanicMsg("gopenff/v3: Dimension mismatch")
)
