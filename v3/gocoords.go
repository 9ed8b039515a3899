/*
 * gocoords.go, part of chemlive.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
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
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package v3

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//METHODS

// NVecs returns the number of vecs in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return r
}

// VecView returns a view of the ith vector of the matrix.
// Changes in the view are reflected in F and vice-versa.
func (F *Matrix) VecView(i int) *Matrix {
	if i < 0 || i >= F.NVecs() {
		panic(ErrIndexOutOfRange)
	}
	r := F.Dense.Slice(i, i+1, 0, 3).(*mat.Dense)
	return &Matrix{r}
}

// Clone returns a deep copy of F, which shares no memory with it.
func (F *Matrix) Clone() *Matrix {
	c := Zeros(F.NVecs())
	c.Copy(F.Dense)
	return c
}

// Flat copies the elements of F, row by row, in dst, and returns it.
// If dst is nil or too short, a new slice is allocated.
func (F *Matrix) Flat(dst []float64) []float64 {
	n := F.NVecs()
	if len(dst) < 3*n {
		dst = make([]float64, 3*n)
	}
	for i := 0; i < n; i++ {
		copy(dst[3*i:3*i+3], F.RawRowView(i))
	}
	return dst[:3*n]
}

// SetFlat sets the elements of F from data, row by row.
// Panics if data doesn't have 3*NVecs elements.
func (F *Matrix) SetFlat(data []float64) {
	n := F.NVecs()
	if len(data) != 3*n {
		panic(ErrShape)
	}
	for i := 0; i < n; i++ {
		copy(F.RawRowView(i), data[3*i:3*i+3])
	}
}

// VecNorm returns the euclidean norm of the ith vector of F.
func (F *Matrix) VecNorm(i int) float64 {
	r := F.RawRowView(i)
	return math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
}

// MaxVecNorm returns the largest euclidean norm among the vectors of F.
func (F *Matrix) MaxVecNorm() float64 {
	var top float64
	for i := 0; i < F.NVecs(); i++ {
		if n := F.VecNorm(i); n > top {
			top = n
		}
	}
	return top
}

// ScaleVecs multiplies each vector i of A by factors[i], putting
// the result in the receiver.
func (F *Matrix) ScaleVecs(A *Matrix, factors []float64) {
	ar := A.NVecs()
	if ar != F.NVecs() || len(factors) != ar {
		panic(ErrShape)
	}
	for i := 0; i < ar; i++ {
		a := A.RawRowView(i)
		f := F.RawRowView(i)
		for j := 0; j < 3; j++ {
			f[j] = a[j] * factors[i]
		}
	}
}

// AddVec adds the vector vec to each vector of the matrix A, putting
// the result on the receiver. Panics if matrices are mismatched.
func (F *Matrix) AddVec(A, vec *Matrix) {
	F.addScaledVec(A, vec, 1)
}

// SubVec subtracts the vector vec from each vector of the matrix A, putting
// the result on the receiver. Panics if matrices are mismatched.
func (F *Matrix) SubVec(A, vec *Matrix) {
	F.addScaledVec(A, vec, -1)
}

func (F *Matrix) addScaledVec(A, vec *Matrix, sign float64) {
	ar := A.NVecs()
	if vec.NVecs() != 1 || ar != F.NVecs() {
		panic(ErrShape)
	}
	v := [3]float64{vec.At(0, 0), vec.At(0, 1), vec.At(0, 2)}
	for i := 0; i < ar; i++ {
		a := A.RawRowView(i)
		f := F.RawRowView(i)
		for j := 0; j < 3; j++ {
			f[j] = a[j] + sign*v[j]
		}
	}
}

// SumVecs returns a 1x3 Matrix with the sum of all the vectors of F.
func (F *Matrix) SumVecs() *Matrix {
	ret := Zeros(1)
	s := ret.RawRowView(0)
	for i := 0; i < F.NVecs(); i++ {
		r := F.RawRowView(i)
		s[0] += r[0]
		s[1] += r[1]
		s[2] += r[2]
	}
	return ret
}

// Cross puts the cross product of the first vecs of a and b in the first vec of F. Panics if error.
func (F *Matrix) Cross(a, b *Matrix) {
	if a.NVecs() < 1 || b.NVecs() < 1 || F.NVecs() < 1 {
		panic(ErrNoCrossProduct)
	}
	x := a.At(0, 1)*b.At(0, 2) - a.At(0, 2)*b.At(0, 1)
	y := a.At(0, 2)*b.At(0, 0) - a.At(0, 0)*b.At(0, 2)
	z := a.At(0, 0)*b.At(0, 1) - a.At(0, 1)*b.At(0, 0)
	F.Set(0, 0, x)
	F.Set(0, 1, y)
	F.Set(0, 2, z)
}

// String returns a neat string representation of a Matrix
func (F *Matrix) String() string {
	r := F.NVecs()
	v := make([]string, 0, r+2)
	v = append(v, "\n[")
	for i := 0; i < r; i++ {
		row := F.RawRowView(i)
		sep := "\n"
		if i == r-1 {
			sep = ""
		}
		v = append(v, fmt.Sprintf(" %6.2f %6.2f %6.2f%s", row[0], row[1], row[2], sep))
	}
	v = append(v, " ]")
	return strings.Join(v, "")
}

// Det returns the determinant of a 3x3 matrix. Panics if the matrix is not 3x3.
func Det(A mat.Matrix) float64 {
	r, c := A.Dims()
	if r != 3 || c != 3 {
		panic(ErrDeterminant)
	}
	return A.At(0, 0)*(A.At(1, 1)*A.At(2, 2)-A.At(2, 1)*A.At(1, 2)) -
		A.At(1, 0)*(A.At(0, 1)*A.At(2, 2)-A.At(2, 1)*A.At(0, 2)) +
		A.At(2, 0)*(A.At(0, 1)*A.At(1, 2)-A.At(1, 1)*A.At(0, 2))
}
