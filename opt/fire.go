/*
 * fire.go, part of chemlive.
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
)

// FIREOpt is the Fast Inertial Relaxation Engine of Bitzek et al., Phys. Rev. Lett. 97, 170201 (2006).
type FIREOpt struct {
	DT      float64
	MaxStep float64 //largest norm of the whole displacement in one step
	DTMax   float64
	NMin    int
	FInc    float64
	FDec    float64
	AStart  float64
	FA      float64

	s      *chem.Structure
	a      float64
	nsteps int
	v      []float64
}

// NewFIRE returns a FIRE optimizer for s with the usual parameters.
func NewFIRE(s *chem.Structure) *FIREOpt {
	return &FIREOpt{
		DT:      0.1,
		MaxStep: 0.2,
		DTMax:   1.0,
		NMin:    5,
		FInc:    1.1,
		FDec:    0.5,
		AStart:  0.1,
		FA:      0.99,
		s:       s,
		a:       0.1,
	}
}

// Structure returns the structure being optimized.
func (F *FIREOpt) Structure() *chem.Structure { return F.s }

// Step performs one FIRE step.
func (F *FIREOpt) Step(ctx context.Context) error {
	fm, err := F.s.Forces(ctx)
	if err != nil {
		return err
	}
	f := fm.Flat(nil)
	if F.v == nil {
		F.v = make([]float64, len(f))
	} else if vf := floats.Dot(f, F.v); vf > 0 {
		fnorm := vecNorm(f)
		vnorm := vecNorm(F.v)
		floats.Scale(1-F.a, F.v)
		if fnorm > 0 {
			floats.AddScaled(F.v, F.a*vnorm/fnorm, f)
		}
		if F.nsteps > F.NMin {
			F.DT = math.Min(F.DT*F.FInc, F.DTMax)
			F.a *= F.FA
		}
		F.nsteps++
	} else {
		for i := range F.v {
			F.v[i] = 0
		}
		F.a = F.AStart
		F.DT *= F.FDec
		F.nsteps = 0
	}
	floats.AddScaled(F.v, F.DT, f)
	dr := make([]float64, len(f))
	floats.ScaleTo(dr, F.DT, F.v)
	if n := vecNorm(dr); n > F.MaxStep {
		floats.Scale(F.MaxStep/n, dr)
	}
	drm, err := v3.NewMatrix(dr)
	if err != nil {
		return err
	}
	return displace(F.s, drm)
}
