/*
 * snapshot.go, part of chemlive.
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
	"fmt"

	v3 "github.com/rmera/chemlive/v3"
)

// Snapshot is an immutable copy of the state of a Structure at one instant: atomic numbers,
// positions, cell, periodicity and, if they were available, the energy and forces.
// It shares no memory with the Structure it was taken from, and its accessors return copies.
type Snapshot struct {
	numbers   []int
	positions *v3.Matrix
	cell      *v3.Matrix
	pbc       [3]bool
	energy    *float64
	forces    *v3.Matrix
}

// NewSnapshot takes a snapshot of S. Only the energy and forces are kept from the results
// of the attached calculator, and only if they were already computed: NewSnapshot never
// triggers a calculation, and it doesn't modify S.
// The returned error matches ErrInvalidStructureState if the geometric data of S
// is absent or malformed.
func NewSnapshot(S *Structure) (*Snapshot, error) {
	if err := S.Corrupted(); err != nil {
		return nil, errDecorate(err, "NewSnapshot")
	}
	snap := &Snapshot{
		numbers:   append(make([]int, 0, S.Len()), S.Numbers...),
		positions: S.Positions.Clone(),
		cell:      S.Cell.Clone(),
		pbc:       S.PBC,
	}
	r := S.Results()
	if r == nil {
		return snap, nil
	}
	if r.Energy != nil {
		e := *r.Energy
		snap.energy = &e
	}
	if r.Forces != nil {
		if fr, fc := r.Forces.Dims(); fr != S.Len() || fc != 3 {
			return nil, structureError(fmt.Sprintf("%dx%d forces for %d atoms", fr, fc, S.Len()), "NewSnapshot")
		}
		snap.forces = r.Forces.Clone()
	}
	return snap, nil
}

// Len returns the number of atoms in the snapshot.
func (S *Snapshot) Len() int {
	return len(S.numbers)
}

// Numbers returns a copy of the atomic numbers.
func (S *Snapshot) Numbers() []int {
	return append(make([]int, 0, len(S.numbers)), S.numbers...)
}

// Positions returns a copy of the positions.
func (S *Snapshot) Positions() *v3.Matrix {
	return S.positions.Clone()
}

// Cell returns a copy of the cell.
func (S *Snapshot) Cell() *v3.Matrix {
	return S.cell.Clone()
}

// PBC returns the periodicity flags.
func (S *Snapshot) PBC() [3]bool {
	return S.pbc
}

// Energy returns the energy and true, or 0 and false if the snapshot has no energy.
func (S *Snapshot) Energy() (float64, bool) {
	if S.energy == nil {
		return 0, false
	}
	return *S.energy, true
}

// Forces returns a copy of the forces and true, or nil and false if the snapshot has no forces.
func (S *Snapshot) Forces() (*v3.Matrix, bool) {
	if S.forces == nil {
		return nil, false
	}
	return S.forces.Clone(), true
}

// Structure returns a new live Structure, with no calculator attached, with the geometry of the snapshot.
// The energy and forces of the snapshot, if any, are kept as the results of the new structure until
// its positions change or a calculator is attached.
func (S *Snapshot) Structure() *Structure {
	ret := &Structure{
		Numbers:   S.Numbers(),
		Positions: S.Positions(),
		Cell:      S.Cell(),
		PBC:       S.pbc,
	}
	if S.energy == nil && S.forces == nil {
		return ret
	}
	r := new(Results)
	if e, ok := S.Energy(); ok {
		r.Energy = &e
	}
	if f, ok := S.Forces(); ok {
		r.Forces = f
	}
	ret.results = r
	return ret
}
