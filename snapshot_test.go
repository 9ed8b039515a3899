/*
 * snapshot_test.go, part of chemlive.
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
	"encoding/json"
	"errors"
	"strings"
	"testing"

	v3 "github.com/rmera/chemlive/v3"
)

//energyOnly is a calculator that only computes an energy.
type energyOnly struct{ e float64 }

func (E energyOnly) Calculate(ctx context.Context, s *Structure) (*Results, error) {
	e := E.e
	return &Results{Energy: &e, Extra: map[string]float64{"gap": 1.5}}, nil
}

func water(Te *testing.T) *Structure {
	pos, err := v3.NewMatrix([]float64{0, 0, 0.119, 0, 0.763, -0.477, 0, -0.763, -0.477})
	if err != nil {
		Te.Fatal(err)
	}
	S, err := NewStructure([]int{8, 1, 1}, pos, nil, [3]bool{})
	if err != nil {
		Te.Fatal(err)
	}
	return S
}

func TestSnapshotNoCalculator(Te *testing.T) {
	S := water(Te)
	snap, err := NewSnapshot(S)
	if err != nil {
		Te.Fatal(err)
	}
	if _, ok := snap.Energy(); ok {
		Te.Error("A snapshot of a structure without calculator can't have an energy")
	}
	if _, ok := snap.Forces(); ok {
		Te.Error("A snapshot of a structure without calculator can't have forces")
	}
	//the snapshot must be detached from the structure
	S.Positions.Set(0, 0, 10)
	if snap.Positions().At(0, 0) != 0 {
		Te.Error("The snapshot shares positions with the structure")
	}
	S.Numbers[0] = 6
	if snap.Numbers()[0] != 8 {
		Te.Error("The snapshot shares atomic numbers with the structure")
	}
}

func TestSnapshotEnergyOnly(Te *testing.T) {
	S := water(Te)
	S.SetCalculator(energyOnly{-14.2})
	//No calculation has happened yet, so nothing is copied.
	snap, err := NewSnapshot(S)
	if err != nil {
		Te.Fatal(err)
	}
	if _, ok := snap.Energy(); ok {
		Te.Error("NewSnapshot should never trigger a calculation")
	}
	if _, err := S.Energy(context.Background()); err != nil {
		Te.Fatal(err)
	}
	snap, err = NewSnapshot(S)
	if err != nil {
		Te.Fatal(err)
	}
	e, ok := snap.Energy()
	if !ok || e != -14.2 {
		Te.Errorf("Expected energy -14.2, got %f (%v)", e, ok)
	}
	if _, ok := snap.Forces(); ok {
		Te.Error("The calculator doesn't compute forces, the snapshot shouldn't have them")
	}
	if _, err := S.Forces(context.Background()); err == nil {
		Te.Error("Asking for forces to an energy-only calculator should fail")
	}
}

func TestSnapshotInvalid(Te *testing.T) {
	if _, err := NewSnapshot(nil); !errors.Is(err, ErrInvalidStructureState) {
		Te.Errorf("Expected an invalid structure error, got %v", err)
	}
	S := water(Te)
	S.Numbers = S.Numbers[:2]
	_, err := NewSnapshot(S)
	if !errors.Is(err, ErrInvalidStructureState) {
		Te.Errorf("Expected an invalid structure error, got %v", err)
	}
	if !strings.Contains(Trail(err), "NewSnapshot") {
		Te.Errorf("The error should be decorated with its trail, got %q", Trail(err))
	}
	S = water(Te)
	S.Cell = nil
	if _, err := NewSnapshot(S); !errors.Is(err, ErrInvalidStructureState) {
		Te.Errorf("Expected an invalid structure error for a missing cell, got %v", err)
	}
}

func TestSnapshotJSON(Te *testing.T) {
	S := water(Te)
	S.SetCalculator(energyOnly{-3})
	S.Energy(context.Background())
	snap, err := NewSnapshot(S)
	if err != nil {
		Te.Fatal(err)
	}
	b, err := json.Marshal(snap)
	if err != nil {
		Te.Fatal(err)
	}
	if strings.Contains(string(b), "forces") || strings.Contains(string(b), "gap") {
		Te.Errorf("Only energy should be serialized: %s", b)
	}
	back := new(Snapshot)
	if err := json.Unmarshal(b, back); err != nil {
		Te.Fatal(err)
	}
	if e, _ := back.Energy(); e != -3 || back.Len() != 3 || back.Positions().At(1, 1) != 0.763 {
		Te.Errorf("Wrong decoded snapshot %s", b)
	}
	bad := `{"numbers":[1,1],"positions":[[0,0,0]],"cell":[[0,0,0],[0,0,0],[0,0,0]],"pbc":[false,false,false]}`
	if err := json.Unmarshal([]byte(bad), new(Snapshot)); !errors.Is(err, ErrInvalidStructureState) {
		Te.Errorf("Expected an invalid structure error, got %v", err)
	}
}
