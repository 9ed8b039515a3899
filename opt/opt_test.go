/*
 * opt_test.go, part of chemlive.
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
	"testing"

	chem "github.com/rmera/chemlive"
	"github.com/rmera/chemlive/calc"
	v3 "github.com/rmera/chemlive/v3"
	"gonum.org/v1/gonum/mat"
)

func trimer(Te *testing.T) *chem.Structure {
	pos, _ := v3.NewMatrix([]float64{0, 0, 0, 1.4, 0, 0, 0.5, 1.0, 0.2})
	S, err := chem.NewStructure([]int{18, 18, 18}, pos, nil, [3]bool{})
	if err != nil {
		Te.Fatal(err)
	}
	S.SetCalculator(calc.NewLennardJones())
	return S
}

// The minimum of a Lennard-Jones trimer is an equilateral triangle with sides 2^(1/6).
func TestConvergence(Te *testing.T) {
	e0 := 4 * (math.Pow(1.0/3, 12) - math.Pow(1.0/3, 6))
	emin := 3 * (-1 - e0)
	for _, kind := range []Kind{LBFGS, FIRE, BFGS} {
		S := trimer(Te)
		o, err := New(kind, S)
		if err != nil {
			Te.Fatal(err)
		}
		run := Irun(context.Background(), o, 0.01)
		run.MaxSteps = 2000
		states := 0
		for run.Next() {
			states++
		}
		if run.Err() != nil {
			Te.Fatalf("%s: %v", kind, run.Err())
		}
		if !run.Converged() {
			Te.Fatalf("%s didn't converge in %d steps", kind, run.Index())
		}
		if states != run.Index()+1 {
			Te.Errorf("%s: %d states for index %d", kind, states, run.Index())
		}
		e, _ := S.Energy(context.Background())
		if math.Abs(e-emin) > 1e-3 {
			Te.Errorf("%s: expected energy %f, got %f", kind, emin, e)
		}
		d := S.Positions.VecView(0).Clone()
		d.Sub(d, S.Positions.VecView(1))
		if r := d.VecNorm(0); math.Abs(r-math.Pow(2, 1.0/6)) > 1e-2 {
			Te.Errorf("%s: wrong distance %f", kind, r)
		}
	}
}

func TestIrunConvergedStart(Te *testing.T) {
	S := trimer(Te)
	o, _ := New(FIRE, S)
	before := S.Positions.Clone()
	run := Irun(context.Background(), o, 100)
	n := 0
	for run.Next() {
		n++
	}
	if n != 1 || run.Index() != 0 || !run.Converged() {
		Te.Errorf("A converged structure should yield only its initial state, got %d states", n)
	}
	if !mat.Equal(S.Positions, before) {
		Te.Errorf("A converged structure shouldn't be moved")
	}
}

func TestMaxSteps(Te *testing.T) {
	S := trimer(Te)
	o, _ := New(LBFGS, S)
	run := Irun(context.Background(), o, 1e-12)
	run.MaxSteps = 3
	n := 0
	for run.Next() {
		n++
	}
	if n != 4 || run.Converged() || run.Err() != nil {
		Te.Errorf("Expected the initial state and 3 steps, got %d states", n)
	}
}

func TestErrors(Te *testing.T) {
	S := trimer(Te)
	if _, err := New(Kind("MDMin"), S); err == nil {
		Te.Error("An unknown optimizer should give an error")
	}
	if Kind("MDMin").Valid() || !BFGS.Valid() {
		Te.Error("Wrong validity of optimizer kinds")
	}
	S.SetCalculator(nil)
	o, _ := New(BFGS, S)
	run := Irun(context.Background(), o, 0.05)
	if run.Next() || run.Err() == nil {
		Te.Error("An optimization without calculator should fail at once")
	}
}
