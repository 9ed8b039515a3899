/*
 * opt.go, part of chemlive.
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

/*
Package opt implements geometry optimizers that move the atoms of a chem.Structure
towards a minimum of the potential energy given by its calculator.

The optimizers and their default parameters follow those of the ASE package, so
results are comparable. Optimizations are driven with Irun:

	o, err := opt.New(opt.LBFGS, structure)
	run := opt.Irun(ctx, o, 0.05)
	for run.Next() {
		//structure holds the current state
	}
	if run.Err() != nil {
		...
	}
*/
package opt

import (
	"context"
	"fmt"
	"math"

	chem "github.com/rmera/chemlive"
	v3 "github.com/rmera/chemlive/v3"
)

// Kind names an optimization algorithm.
type Kind string

const (
	LBFGS Kind = "LBFGS"
	FIRE  Kind = "FIRE"
	BFGS  Kind = "BFGS"
)

// Valid returns true if k is one of the supported algorithms.
func (k Kind) Valid() bool {
	switch k {
	case LBFGS, FIRE, BFGS:
		return true
	}
	return false
}

// Optimizer moves the atoms of a structure one step towards a minimum.
// Step uses the forces at the current positions, computing them if needed.
type Optimizer interface {
	Step(ctx context.Context) error
	Structure() *chem.Structure
}

// New returns an optimizer of the given kind for s, with default parameters.
func New(kind Kind, s *chem.Structure) (Optimizer, error) {
	if err := s.Corrupted(); err != nil {
		return nil, err
	}
	switch kind {
	case LBFGS:
		return NewLBFGS(s), nil
	case FIRE:
		return NewFIRE(s), nil
	case BFGS:
		return NewBFGS(s), nil
	}
	return nil, chem.NewError(fmt.Sprintf("Unknown optimizer %q", kind), "opt.New")
}

// Run iterates over the states of an optimization. See Irun.
type Run struct {
	MaxSteps int //0 means no limit.

	ctx       context.Context
	o         Optimizer
	fmax      float64
	idx       int
	started   bool
	converged bool
	err       error
}

// Irun returns an iterator over the states of the optimization driven by o. The first call
// to Next yields the initial state, and each further call performs one step and yields the
// new state. The iteration stops after yielding a converged state, that is, one in which no
// atom has a force larger than fmax (eV/A), or after an error.
func Irun(ctx context.Context, o Optimizer, fmax float64) *Run {
	return &Run{ctx: ctx, o: o, fmax: fmax, idx: -1}
}

// Next advances the iteration. It returns false when the iteration is over.
func (R *Run) Next() bool {
	if R.err != nil || R.converged {
		return false
	}
	if R.started {
		if R.MaxSteps > 0 && R.idx >= R.MaxSteps {
			return false
		}
		if R.err = R.o.Step(R.ctx); R.err != nil {
			return false
		}
	}
	R.started = true
	f, err := R.o.Structure().Forces(R.ctx)
	if err != nil {
		R.err = fmt.Errorf("optimization step %d: %w", R.idx+1, err)
		return false
	}
	R.converged = f.MaxVecNorm() < R.fmax
	R.idx++
	return true
}

// Index returns the index of the current state, 0 being the initial one.
func (R *Run) Index() int { return R.idx }

// Converged returns true if the current state is converged.
func (R *Run) Converged() bool { return R.converged }

// Err returns the error that stopped the iteration, if any.
func (R *Run) Err() error { return R.err }

// limitStep scales dr so no atom moves more than maxstep.
func limitStep(dr *v3.Matrix, maxstep float64) {
	longest := dr.MaxVecNorm()
	if longest >= maxstep {
		dr.Scale(maxstep/longest, dr)
	}
}

// displace moves the atoms of s by dr.
func displace(s *chem.Structure, dr *v3.Matrix) error {
	pos := s.Positions.Clone()
	pos.Add(pos, dr)
	return s.SetPositions(pos)
}

func vecNorm(v []float64) float64 {
	var n float64
	for _, x := range v {
		n += x * x
	}
	return math.Sqrt(n)
}
