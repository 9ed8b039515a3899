/*
 * langevin_test.go, part of chemlive.
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

package md

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	chem "github.com/rmera/chemlive"
	"github.com/rmera/chemlive/calc"
	v3 "github.com/rmera/chemlive/v3"
	"gonum.org/v1/gonum/mat"
)

func argonTrimer(Te *testing.T) *chem.Structure {
	pos, _ := v3.NewMatrix([]float64{0, 0, 0, 1.5, 0, 0, 0.6, 1.2, 0.1})
	S, err := chem.NewStructure([]int{18, 18, 18}, pos, nil, [3]bool{})
	if err != nil {
		Te.Fatal(err)
	}
	S.SetCalculator(calc.NewLennardJones())
	return S
}

func totalEnergy(Te *testing.T, L *Langevin, S *chem.Structure) float64 {
	e, err := S.Energy(context.Background())
	if err != nil {
		Te.Fatal(err)
	}
	return e + L.KineticEnergy()
}

// Without friction and temperature the integrator is velocity Verlet, which conserves the energy.
func TestLangevinNVE(Te *testing.T) {
	S := argonTrimer(Te)
	L, err := NewLangevin(S, 0.5, 0, 0, rand.New(rand.NewSource(1)))
	if err != nil {
		Te.Fatal(err)
	}
	e0 := totalEnergy(Te, L, S)
	for i := 0; i < 200; i++ {
		if err := L.Step(context.Background()); err != nil {
			Te.Fatal(err)
		}
	}
	if L.Steps() != 200 {
		Te.Errorf("Expected 200 steps, got %d", L.Steps())
	}
	if e := totalEnergy(Te, L, S); math.Abs(e-e0) > 1e-2 {
		Te.Errorf("Energy not conserved: %f -> %f", e0, e)
	}
	if L.KineticEnergy() == 0 {
		Te.Errorf("The atoms should have moved")
	}
}

func TestLangevinMomentum(Te *testing.T) {
	S := argonTrimer(Te)
	L, err := NewLangevin(S, 0.5, 300, 0.02, rand.New(rand.NewSource(3)))
	if err != nil {
		Te.Fatal(err)
	}
	masses, _ := S.Masses()
	for i := 0; i < 50; i++ {
		if err := L.Step(context.Background()); err != nil {
			Te.Fatal(err)
		}
	}
	var p [3]float64
	for i, m := range masses {
		for j := 0; j < 3; j++ {
			p[j] += m * S.Velocities.At(i, j)
		}
	}
	for j := 0; j < 3; j++ {
		if math.Abs(p[j]) > 1e-9 {
			Te.Errorf("The total momentum should stay zero: %v", p)
		}
	}
	if L.Temperature() <= 0 {
		Te.Errorf("The thermostat should heat the system")
	}
}

func TestLangevinReproducible(Te *testing.T) {
	S1 := argonTrimer(Te)
	S2 := argonTrimer(Te)
	L1, _ := NewLangevin(S1, 0.5, 300, 0.002, rand.New(rand.NewSource(42)))
	L2, _ := NewLangevin(S2, 0.5, 300, 0.002, rand.New(rand.NewSource(42)))
	for i := 0; i < 10; i++ {
		L1.Step(context.Background())
		L2.Step(context.Background())
	}
	if !mat.Equal(S1.Positions, S2.Positions) {
		Te.Errorf("The same seed should give the same trajectory")
	}
}

func TestLangevinErrors(Te *testing.T) {
	S := argonTrimer(Te)
	if _, err := NewLangevin(S, 0, 300, 0.002, nil); err == nil {
		Te.Error("A zero time step should give an error")
	}
	if _, err := NewLangevin(S, 0.5, -1, 0.002, nil); err == nil {
		Te.Error("A negative temperature should give an error")
	}
	L, err := NewLangevin(S, 0.5, 300, 0.002, nil)
	if err != nil {
		Te.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := L.Step(ctx); !errors.Is(err, context.Canceled) {
		Te.Errorf("Expected a cancellation error, got %v", err)
	}
	S.SetCalculator(nil)
	if err := L.Step(context.Background()); err == nil {
		Te.Error("A structure without calculator can't be integrated")
	}
}
