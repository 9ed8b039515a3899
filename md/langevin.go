/*
 * langevin.go, part of chemlive.
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

// Package md implements molecular dynamics integrators that advance a chem.Structure in time.
package md

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	chem "github.com/rmera/chemlive"
	v3 "github.com/rmera/chemlive/v3"
)

// Langevin integrates the Langevin equation of motion (NVT ensemble) with the
// scheme of Vanden-Eijnden and Ciccotti, one step at a time. The structure needs an
// attached calculator. The velocities of the structure are used as starting
// velocities, and updated after each step.
type Langevin struct {
	FixCOM bool //keep the center of mass fixed. True by default.

	s    *chem.Structure
	dt   float64 //internal time units
	kT   float64 //eV
	fr   float64
	rng  *rand.Rand
	step int

	masses         []float64
	c1, c2         float64
	c3, c4, c5     []float64 //per atom
	xi, eta        []float64
	rndPos, rndVel *v3.Matrix
}

// NewLangevin returns a Langevin integrator for s, with a time step in fs, a temperature in K,
// and a friction coefficient in inverse internal time units. If rng is nil, a time-seeded
// source is used.
func NewLangevin(s *chem.Structure, timestep, temperature, friction float64, rng *rand.Rand) (*Langevin, error) {
	if err := s.Corrupted(); err != nil {
		return nil, err
	}
	if timestep <= 0 {
		return nil, chem.NewError(fmt.Sprintf("Time step must be positive, got %f", timestep), "NewLangevin")
	}
	if temperature < 0 || friction < 0 {
		return nil, chem.NewError(fmt.Sprintf("Negative temperature (%f) or friction (%f)", temperature, friction), "NewLangevin")
	}
	masses, err := s.Masses()
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	n := s.Len()
	L := &Langevin{
		FixCOM: true,
		s:      s,
		dt:     timestep * chem.Fs,
		kT:     temperature * chem.KB,
		fr:     friction,
		rng:    rng,
		masses: masses,
		c3:     make([]float64, n),
		c4:     make([]float64, n),
		c5:     make([]float64, n),
		xi:     make([]float64, 3*n),
		eta:    make([]float64, 3*n),
		rndPos: v3.Zeros(n),
		rndVel: v3.Zeros(n),
	}
	L.updateCoefficients()
	return L, nil
}

func (L *Langevin) updateCoefficients() {
	dt, fr := L.dt, L.fr
	L.c1 = dt/2 - dt*dt*fr/8
	L.c2 = dt*fr/2 - dt*dt*fr*fr/8
	for i, m := range L.masses {
		sigma := math.Sqrt(2 * L.kT * fr / m)
		L.c3[i] = math.Sqrt(dt)*sigma/2 - math.Pow(dt, 1.5)*fr*sigma/8
		L.c5[i] = math.Pow(dt, 1.5) * sigma / (2 * math.Sqrt(3))
		L.c4[i] = fr / 2 * L.c5[i]
	}
}

// Steps returns the number of steps taken so far.
func (L *Langevin) Steps() int {
	return L.step
}

// Step advances the structure one time step. The forces at the new positions are left
// computed in the structure, so they can be read without a new calculation.
func (L *Langevin) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := L.s
	n := s.Len()
	forces, err := s.Forces(ctx)
	if err != nil {
		return fmt.Errorf("langevin step %d: %w", L.step, err)
	}
	if s.Velocities == nil {
		s.Velocities = v3.Zeros(n)
	}
	v := s.Velocities
	for i := range L.xi {
		L.xi[i] = L.rng.NormFloat64()
		L.eta[i] = L.rng.NormFloat64()
	}
	for i := 0; i < n; i++ {
		p := L.rndPos.RawRowView(i)
		r := L.rndVel.RawRowView(i)
		for j := 0; j < 3; j++ {
			p[j] = L.c5[i] * L.eta[3*i+j]
			r[j] = L.c3[i]*L.xi[3*i+j] - L.c4[i]*L.eta[3*i+j]
		}
	}
	if L.FixCOM {
		L.fixCOM()
	}
	L.halfKick(v, forces)
	old := s.Positions.Clone()
	pos := v3.Zeros(n)
	for i := 0; i < n; i++ {
		o := old.RawRowView(i)
		vi := v.RawRowView(i)
		p := L.rndPos.RawRowView(i)
		np := pos.RawRowView(i)
		for j := 0; j < 3; j++ {
			np[j] = o[j] + L.dt*vi[j] + p[j]
		}
	}
	if err := s.SetPositions(pos); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		o := old.RawRowView(i)
		np := s.Positions.RawRowView(i)
		p := L.rndPos.RawRowView(i)
		vi := v.RawRowView(i)
		for j := 0; j < 3; j++ {
			vi[j] = (np[j] - o[j] - p[j]) / L.dt
		}
	}
	forces, err = s.Forces(ctx)
	if err != nil {
		return fmt.Errorf("langevin step %d: %w", L.step, err)
	}
	L.halfKick(v, forces)
	L.step++
	return nil
}

func (L *Langevin) halfKick(v, forces *v3.Matrix) {
	for i, m := range L.masses {
		vi := v.RawRowView(i)
		f := forces.RawRowView(i)
		r := L.rndVel.RawRowView(i)
		for j := 0; j < 3; j++ {
			vi[j] += L.c1*f[j]/m - L.c2*vi[j] + r[j]
		}
	}
}

// fixCOM removes the displacement of the center of geometry and the momentum
// carried by the random terms.
func (L *Langevin) fixCOM() {
	n := float64(len(L.masses))
	mean := L.rndPos.SumVecs()
	mean.Scale(1/n, mean)
	L.rndPos.SubVec(L.rndPos, mean)
	var mom [3]float64
	for i, m := range L.masses {
		r := L.rndVel.RawRowView(i)
		for j := 0; j < 3; j++ {
			mom[j] += r[j] * m
		}
	}
	for i, m := range L.masses {
		r := L.rndVel.RawRowView(i)
		for j := 0; j < 3; j++ {
			r[j] -= mom[j] / (m * n)
		}
	}
}

// KineticEnergy returns the kinetic energy of the structure, in eV.
func (L *Langevin) KineticEnergy() float64 {
	if L.s.Velocities == nil {
		return 0
	}
	var e float64
	for i, m := range L.masses {
		v := L.s.Velocities.RawRowView(i)
		e += 0.5 * m * (v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	}
	return e
}

// Temperature returns the instantaneous temperature of the structure, in K.
func (L *Langevin) Temperature() float64 {
	return 2 * L.KineticEnergy() / (3 * float64(len(L.masses)) * chem.KB)
}
