/*
 * bfgs.go, part of chemlive.
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
	"math"

	chem "github.com/rmera/chemlive"
	v3 "github.com/rmera/chemlive/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BFGSOpt is a quasi-Newton optimizer keeping a full approximate Hessian, which
// is diagonalized at each step.
type BFGSOpt struct {
	MaxStep float64 //largest displacement of any atom in one step, A
	Alpha   float64 //initial Hessian, eV/A^2

	s       *chem.Structure
	h       *mat.SymDense
	pos0    []float64
	forces0 []float64
}

// NewBFGS returns a BFGS optimizer for s with MaxStep 0.2 and Alpha 70.
func NewBFGS(s *chem.Structure) *BFGSOpt {
	return &BFGSOpt{MaxStep: 0.2, Alpha: 70, s: s}
}

// Structure returns the structure being optimized.
func (B *BFGSOpt) Structure() *chem.Structure { return B.s }

// Step performs one BFGS step.
func (B *BFGSOpt) Step(ctx context.Context) error {
	f, err := B.s.Forces(ctx)
	if err != nil {
		return err
	}
	r := B.s.Positions.Flat(nil)
	forces := f.Flat(nil)
	B.update(r, forces)
	var es mat.EigenSym
	if ok := es.Factorize(B.h, true); !ok {
		return chem.NewError("Hessian diagonalization failed", "BFGSOpt.Step")
	}
	omega := es.Values(nil)
	var V mat.Dense
	es.VectorsTo(&V)
	var proj mat.VecDense
	proj.MulVec(V.T(), mat.NewVecDense(len(forces), forces))
	for i, w := range omega {
		proj.SetVec(i, proj.AtVec(i)/math.Abs(w))
	}
	dr := make([]float64, len(forces))
	mat.NewVecDense(len(dr), dr).MulVec(&V, &proj)
	drm, err := v3.NewMatrix(dr)
	if err != nil {
		return err
	}
	limitStep(drm, B.MaxStep)
	if err := displace(B.s, drm); err != nil {
		return err
	}
	B.pos0 = r
	B.forces0 = forces
	return nil
}

func (B *BFGSOpt) update(pos, forces []float64) {
	if B.h == nil {
		n := len(pos)
		B.h = mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			B.h.SetSym(i, i, B.Alpha)
		}
		return
	}
	dpos := make([]float64, len(pos))
	floats.SubTo(dpos, pos, B.pos0)
	if math.Max(floats.Max(dpos), -floats.Min(dpos)) < 1e-7 {
		return
	}
	dforces := make([]float64, len(forces))
	floats.SubTo(dforces, forces, B.forces0)
	a := floats.Dot(dpos, dforces)
	var dg mat.VecDense
	dg.MulVec(B.h, mat.NewVecDense(len(dpos), dpos))
	b := floats.Dot(dpos, dg.RawVector().Data)
	B.h.SymRankOne(B.h, -1/a, mat.NewVecDense(len(dforces), dforces))
	B.h.SymRankOne(B.h, -1/b, &dg)
}
