/*
 * lbfgs.go, part of chemlive.
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

package opt

import (
	"context"

	chem "github.com/rmera/chemlive"
	v3 "github.com/rmera/chemlive/v3"
	"gonum.org/v1/gonum/floats"
)

// LBFGSOpt is the limited memory BFGS optimizer. Instead of a Hessian, it keeps the
// last Memory position and force differences.
type LBFGSOpt struct {
	MaxStep float64
	Memory  int
	Damping float64
	Alpha   float64

	s         *chem.Structure
	iteration int
	ds, dy    [][]float64
	rho       []float64
	r0, f0    []float64
}

// NewLBFGS returns an LBFGS optimizer for s with MaxStep 0.2, Memory 100, Damping 1 and Alpha 70.
func NewLBFGS(s *chem.Structure) *LBFGSOpt {
	return &LBFGSOpt{MaxStep: 0.2, Memory: 100, Damping: 1, Alpha: 70, s: s}
}

// Structure returns the structure being optimized.
func (L *LBFGSOpt) Structure() *chem.Structure { return L.s }

// Step performs one LBFGS step.
func (L *LBFGSOpt) Step(ctx context.Context) error {
	f, err := L.s.Forces(ctx)
	if err != nil {
		return err
	}
	r := L.s.Positions.Flat(nil)
	forces := f.Flat(nil)
	L.update(r, forces)
	loopmax := min(L.Memory, L.iteration)
	a := make([]float64, loopmax)
	q := make([]float64, len(forces))
	floats.ScaleTo(q, -1, forces)
	for i := loopmax - 1; i >= 0; i-- {
		a[i] = L.rho[i] * floats.Dot(L.ds[i], q)
		floats.AddScaled(q, -a[i], L.dy[i])
	}
	z := q
	floats.Scale(1/L.Alpha, z)
	for i := 0; i < loopmax; i++ {
		b := L.rho[i] * floats.Dot(L.dy[i], z)
		floats.AddScaled(z, a[i]-b, L.ds[i])
	}
	floats.Scale(-1, z)
	dr, err := v3.NewMatrix(z)
	if err != nil {
		return err
	}
	limitStep(dr, L.MaxStep)
	dr.Scale(L.Damping, dr)
	if err := displace(L.s, dr); err != nil {
		return err
	}
	L.iteration++
	L.r0 = r
	L.f0 = forces
	return nil
}

func (L *LBFGSOpt) update(r, f []float64) {
	if L.iteration > 0 {
		s0 := make([]float64, len(r))
		floats.SubTo(s0, r, L.r0)
		y0 := make([]float64, len(f))
		floats.SubTo(y0, L.f0, f)
		L.ds = append(L.ds, s0)
		L.dy = append(L.dy, y0)
		L.rho = append(L.rho, 1/floats.Dot(y0, s0))
	}
	if L.iteration > L.Memory {
		L.ds = L.ds[1:]
		L.dy = L.dy[1:]
		L.rho = L.rho[1:]
	}
}
