/*
 * json.go, part of chemlive.
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

package chem

import (
	"encoding/json"
	"fmt"

	v3 "github.com/rmera/chemlive/v3"
)

//A ready-to-serialize container for a snapshot.
type jsonSnapshot struct {
	Numbers   []int         `json:"numbers"`
	Positions [][3]float64  `json:"positions"`
	Cell      [3][3]float64 `json:"cell"`
	PBC       [3]bool       `json:"pbc"`
	Energy    *float64      `json:"energy,omitempty"`
	Forces    [][3]float64  `json:"forces,omitempty"`
}

// MarshalJSON serializes the snapshot as an object with the fields
// numbers, positions, cell, pbc and, if present, energy and forces.
func (S *Snapshot) MarshalJSON() ([]byte, error) {
	j := jsonSnapshot{
		Numbers:   S.numbers,
		Positions: matrix2Rows(S.positions),
		PBC:       S.pbc,
		Energy:    S.energy,
	}
	for i := 0; i < 3; i++ {
		copy(j.Cell[i][:], S.cell.RawRowView(i))
	}
	if S.forces != nil {
		j.Forces = matrix2Rows(S.forces)
	}
	return json.Marshal(j)
}

// UnmarshalJSON fills an empty snapshot from its JSON form. The returned error matches
// ErrInvalidStructureState if the arrays are inconsistent.
func (S *Snapshot) UnmarshalJSON(b []byte) error {
	var j jsonSnapshot
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	if len(j.Positions) == 0 || len(j.Positions) != len(j.Numbers) {
		return structureError(fmt.Sprintf("%d positions for %d atoms", len(j.Positions), len(j.Numbers)), "UnmarshalJSON")
	}
	if j.Forces != nil && len(j.Forces) != len(j.Numbers) {
		return structureError(fmt.Sprintf("%d forces for %d atoms", len(j.Forces), len(j.Numbers)), "UnmarshalJSON")
	}
	cell := v3.Zeros(3)
	for i := 0; i < 3; i++ {
		copy(cell.RawRowView(i), j.Cell[i][:])
	}
	S.numbers = j.Numbers
	S.positions = rows2Matrix(j.Positions)
	S.cell = cell
	S.pbc = j.PBC
	S.energy = j.Energy
	S.forces = nil
	if j.Forces != nil {
		S.forces = rows2Matrix(j.Forces)
	}
	return nil
}

func matrix2Rows(m *v3.Matrix) [][3]float64 {
	ret := make([][3]float64, m.NVecs())
	for i := range ret {
		copy(ret[i][:], m.RawRowView(i))
	}
	return ret
}

func rows2Matrix(rows [][3]float64) *v3.Matrix {
	m := v3.Zeros(len(rows))
	for i, r := range rows {
		copy(m.RawRowView(i), r[:])
	}
	return m
}
