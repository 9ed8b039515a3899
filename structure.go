/*
 * structure.go, part of chemlive.
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

package chem

import (
	"context"
	"fmt"

	v3 "github.com/rmera/chemlive/v3"
)

// Structure is a live atomic configuration: atomic numbers, positions, a periodic cell
// and the periodicity along each cell vector. A Calculator can be attached to it, in which
// case the Structure keeps the results for its current positions until they change.
// A Structure is not safe for concurrent use.
type Structure struct {
	Numbers    []int
	Positions  *v3.Matrix //Nx3, in A
	Cell       *v3.Matrix //3x3, lattice vectors as rows, in A
	PBC        [3]bool
	Velocities *v3.Matrix //Nx3, or nil, which means all zeros.

	calc    Calculator
	results *Results
}

// NewStructure returns a Structure with the given data, or an error if the data is inconsistent.
// A nil cell is replaced by a zero cell. The slices and matrices are not copied.
func NewStructure(numbers []int, positions, cell *v3.Matrix, pbc [3]bool) (*Structure, error) {
	if cell == nil {
		cell = v3.Zeros(3)
	}
	S := &Structure{Numbers: numbers, Positions: positions, Cell: cell, PBC: pbc}
	if err := S.Corrupted(); err != nil {
		return nil, errDecorate(err, "NewStructure")
	}
	return S, nil
}

// Len returns the number of atoms in the structure.
func (S *Structure) Len() int {
	return len(S.Numbers)
}

// Corrupted returns an error if the geometric data of the structure is absent or
// inconsistent, nil otherwise.
func (S *Structure) Corrupted() error {
	if S == nil {
		return structureError("nil structure", "Corrupted")
	}
	if S.Positions == nil {
		return structureError("no positions", "Corrupted")
	}
	r, c := S.Positions.Dims()
	if r == 0 {
		return structureError("no atoms", "Corrupted")
	}
	if c != 3 {
		return structureError(fmt.Sprintf("positions have %d columns", c), "Corrupted")
	}
	if r != len(S.Numbers) {
		return structureError(fmt.Sprintf("%d positions for %d atoms", r, len(S.Numbers)), "Corrupted")
	}
	if S.Cell == nil {
		return structureError("no cell", "Corrupted")
	}
	if r, c := S.Cell.Dims(); r != 3 || c != 3 {
		return structureError(fmt.Sprintf("cell is %dx%d", r, c), "Corrupted")
	}
	if S.Velocities != nil {
		if r, c := S.Velocities.Dims(); r != len(S.Numbers) || c != 3 {
			return structureError(fmt.Sprintf("%d velocities for %d atoms", r, len(S.Numbers)), "Corrupted")
		}
	}
	return nil
}

// Periodic returns true if the structure is periodic along any cell vector.
func (S *Structure) Periodic() bool {
	return S.PBC[0] || S.PBC[1] || S.PBC[2]
}

// SetCalculator attaches c to the structure, dropping any previous results.
func (S *Structure) SetCalculator(c Calculator) {
	S.calc = c
	S.results = nil
}

// Calculator returns the attached Calculator, or nil.
func (S *Structure) Calculator() Calculator {
	return S.calc
}

// Results returns the results the attached calculator produced for the
// current positions, or nil if there are none. It never triggers a calculation.
func (S *Structure) Results() *Results {
	return S.results
}

// SetPositions copies p into the positions of the structure and drops the results of any previous calculation.
func (S *Structure) SetPositions(p *v3.Matrix) error {
	if p == nil {
		return structureError("nil positions", "SetPositions")
	}
	if r, c := p.Dims(); r != S.Len() || c != 3 {
		return structureError(fmt.Sprintf("%dx%d positions for %d atoms", r, c, S.Len()), "SetPositions")
	}
	S.Positions.Copy(p)
	S.results = nil
	return nil
}

// Masses returns the mass, in amu, of each atom.
func (S *Structure) Masses() ([]float64, error) {
	ret := make([]float64, S.Len())
	for i, z := range S.Numbers {
		m, err := Mass(z)
		if err != nil {
			return nil, errDecorate(err, "Masses")
		}
		ret[i] = m
	}
	return ret, nil
}

// Energy returns the potential energy, in eV, of the structure, computing it with
// the attached calculator if needed.
func (S *Structure) Energy(ctx context.Context) (float64, error) {
	if S.results == nil || S.results.Energy == nil {
		if err := S.calculate(ctx); err != nil {
			return 0, errDecorate(err, "Energy")
		}
	}
	if S.results.Energy == nil {
		return 0, NewError("The attached calculator doesn't provide energies", "Energy")
	}
	return *S.results.Energy, nil
}

// Forces returns the forces, in eV/A, on each atom, computing them with the attached
// calculator if needed. The returned matrix belongs to the results, and must not be modified.
func (S *Structure) Forces(ctx context.Context) (*v3.Matrix, error) {
	if S.results == nil || S.results.Forces == nil {
		if err := S.calculate(ctx); err != nil {
			return nil, errDecorate(err, "Forces")
		}
	}
	if S.results.Forces == nil {
		return nil, NewError("The attached calculator doesn't provide forces", "Forces")
	}
	return S.results.Forces, nil
}

func (S *Structure) calculate(ctx context.Context) error {
	if S.calc == nil {
		return NewError("No calculator attached to the structure", "calculate")
	}
	if err := S.Corrupted(); err != nil {
		return errDecorate(err, "calculate")
	}
	r, err := S.calc.Calculate(ctx, S)
	if err != nil {
		return err
	}
	if r == nil {
		return NewError("Calculator returned no results", "calculate")
	}
	if r.Forces != nil {
		if fr, fc := r.Forces.Dims(); fr != S.Len() || fc != 3 {
			return structureError(fmt.Sprintf("calculator returned %dx%d forces for %d atoms", fr, fc, S.Len()), "calculate")
		}
	}
	S.results = r
	return nil
}
