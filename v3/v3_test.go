/*
 * v3_test.go, part of gopenff.
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

package v3

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatrix(Te *testing.T) {
	A, err := NewMatrix([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(Te, err)
	assert.Equal(Te, 3, A.NVecs())
	View := A.VecView(1)
	View.Set(0, 0, 100)
	assert.Equal(Te, 100.0, A.At(1, 0))

	_, err = NewMatrix([]float64{1, 2})
	assert.Error(Te, err)
	_, err = NewMatrix(nil)
	assert.Error(Te, err)
}

func TestSomeVecs(Te *testing.T) {
	A, err := NewMatrix([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	require.NoError(Te, err)
	B, err := A.SomeVecs([]int{1, 3})
	require.NoError(Te, err)
	assert.Equal(Te, []float64{4, 5, 6}, B.RawRowView(0))
	assert.Equal(Te, []float64{10, 11, 12}, B.RawRowView(1))
	B.Set(0, 0, 55)
	assert.Equal(Te, 4.0, A.At(1, 0), "SomeVecs must copy")
	_, err = A.SomeVecs([]int{4})
	assert.Error(Te, err)
	_, err = A.SomeVecs(nil)
	assert.Error(Te, err)
}

func TestGeometry(Te *testing.T) {
	A, _ := NewMatrix([]float64{0, 0, 0, 2, 0, 0, 0, 2, 0, 2, 2, 0})
	c := A.Centroid()
	assert.InDelta(Te, 1.0, c.At(0, 0), 1e-12)
	assert.InDelta(Te, 1.0, c.At(0, 1), 1e-12)
	assert.InDelta(Te, 2*math.Sqrt2, A.Distance(0, 3), 1e-12)

	x := Zeros(1)
	x.Cross(A.VecView(1), A.VecView(2))
	assert.Equal(Te, []float64{0, 0, 4}, x.RawRowView(0))
	assert.InDelta(Te, 4.0, x.Norm(), 1e-12)
	assert.InDelta(Te, 0.0, x.Dot(A.VecView(1)), 1e-12)

	B := Zeros(4)
	B.SubVec(A, c)
	assert.InDelta(Te, 0.0, B.Centroid().Norm(), 1e-12)

	//the centroid of a view doesn't touch the viewed matrix
	v := A.VecView(3)
	assert.Equal(Te, []float64{2, 2, 0}, v.Centroid().RawRowView(0))
	assert.Equal(Te, []float64{2, 2, 0}, A.RawRowView(3))
}
