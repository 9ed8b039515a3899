/*
 * gonum.go, part of chemlive.
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

//gonum.go contains the Matrix type itself, its constructors and the errors of the package.

package v3

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a set of vectors in 3D space, one vector per row.
// It embeds a *mat.Dense, so it can be given to any gonum function
// that takes a mat.Matrix.
type Matrix struct {
	*mat.Dense
}

// NewMatrix generates and returns a Matrix with 3 columns from data.
// data is used as the backing slice, it is not copied.
func NewMatrix(data []float64) (*Matrix, error) {
	const cols int = 3
	l := len(data)
	if l == 0 || l%cols != 0 {
		return nil, &Error{fmt.Sprintf("Input slice length %d not a positive multiple of %d", l, cols), []string{"NewMatrix"}, true}
	}
	rows := l / cols
	return &Matrix{mat.NewDense(rows, cols, data)}, nil
}

// Zeros returns a zero-filled Matrix with vecs vectors.
func Zeros(vecs int) *Matrix {
	const cols int = 3
	f := make([]float64, cols*vecs)
	return &Matrix{mat.NewDense(vecs, cols, f)}
}

// dense returns the *mat.Dense embedded in A if A is a *Matrix, and A otherwise.
// gonum can only tell that two operands are the same matrix if it sees the
// same *mat.Dense in both places.
func dense(A mat.Matrix) mat.Matrix {
	if m, ok := A.(*Matrix); ok {
		return m.Dense
	}
	return A
}

// Add puts A+B in the receiver. A and B can be the receiver itself.
func (F *Matrix) Add(A, B mat.Matrix) {
	F.Dense.Add(dense(A), dense(B))
}

// Sub puts A-B in the receiver. A and B can be the receiver itself.
func (F *Matrix) Sub(A, B mat.Matrix) {
	F.Dense.Sub(dense(A), dense(B))
}

// Scale puts f*A in the receiver. A can be the receiver itself.
func (F *Matrix) Scale(f float64, A mat.Matrix) {
	F.Dense.Scale(f, dense(A))
}

//Errors

// Error is the error type of the package. It carries a trail of
// the functions it went through, and whether it is critical.
type Error struct {
	message  string
	deco     []string
	critical bool
}

// Error returns a string with an error message.
func (err *Error) Error() string {
	return err.message
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err *Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

// Critical returns whether the error is critical or it can be ignored
func (err *Error) Critical() bool { return err.critical }

// PanicMsg is a message used for panics, even though it does satisfy the error interface.
// for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix    = PanicMsg("chemlive/v3: A Matrix should have 3 columns")
	ErrNoCrossProduct  = PanicMsg("chemlive/v3: Invalid matrix for cross product")
	ErrDeterminant     = PanicMsg("chemlive/v3: Determinants are only available for 3x3 matrices")
	ErrShape           = PanicMsg("chemlive/v3: Dimension mismatch")
	ErrIndexOutOfRange = PanicMsg("chemlive/v3: index out of range")
)
