/*
 * lj.go, part of chemlive.
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

package calc

import (
	"context"
	"math"

	chem "github.com/rmera/chemlive"
	v3 "github.com/rmera/chemlive/v3"
)

// LennardJones is a Lennard-Jones pair potential, with energy in eV and lengths in A.
// The energy is shifted so it is zero at the cutoff. A Cutoff of zero means 3 Sigma.
type LennardJones struct {
	Epsilon float64
	Sigma   float64
	Cutoff  float64
}

// NewLennardJones returns a potential with Epsilon=1, Sigma=1 and a cutoff of 3 Sigma.
func NewLennardJones() *LennardJones {
	return &LennardJones{Epsilon: 1, Sigma: 1, Cutoff: 3}
}

// Calculate returns the energy and forces for s. Periodic images are considered
// along the periodic axes of s.
func (L *LennardJones) Calculate(ctx context.Context, s *chem.Structure) (*chem.Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Corrupted(); err != nil {
		return nil, err
	}
	rc := L.Cutoff
	if rc == 0 {
		rc = 3 * L.Sigma
	}
	rc2 := rc * rc
	s2 := L.Sigma * L.Sigma
	sr6 := math.Pow(s2/rc2, 3)
	e0 := 4 * L.Epsilon * (sr6*sr6 - sr6)
	images, err := imageShifts(s, rc)
	if err != nil {
		return nil, err
	}
	n := s.Len()
	forces := v3.Zeros(n)
	var energy float64
	for i := 0; i < n; i++ {
		ri := s.Positions.RawRowView(i)
		fi := forces.RawRowView(i)
		for j := 0; j < n; j++ {
			rj := s.Positions.RawRowView(j)
			for _, t := range images {
				if i == j && t == [3]float64{} {
					continue
				}
				d := [3]float64{rj[0] + t[0] - ri[0], rj[1] + t[1] - ri[1], rj[2] + t[2] - ri[2]}
				r2 := d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
				if r2 > rc2 {
					continue
				}
				c6 := math.Pow(s2/r2, 3)
				c12 := c6 * c6
				//every pair is visited twice
				energy += 0.5 * (4*L.Epsilon*(c12-c6) - e0)
				f := 24 * L.Epsilon * (2*c12 - c6) / r2
				for k := 0; k < 3; k++ {
					fi[k] -= f * d[k]
				}
			}
		}
	}
	return &chem.Results{Energy: &energy, Forces: forces, Extra: map[string]float64{"free_energy": energy}}, nil
}

// imageShifts returns the lattice translations that can bring an image of any atom
// within rc of any other, including the null translation.
func imageShifts(s *chem.Structure, rc float64) ([][3]float64, error) {
	var nmax [3]int
	if s.Periodic() {
		vol := math.Abs(v3.Det(s.Cell))
		if vol < 1e-10 {
			return nil, &Error{ErrNoCell, BackendLJ, "", "", []string{"imageShifts"}, true}
		}
		for a := 0; a < 3; a++ {
			if !s.PBC[a] {
				continue
			}
			b := s.Cell.VecView((a + 1) % 3)
			c := s.Cell.VecView((a + 2) % 3)
			bc := v3.Zeros(1)
			bc.Cross(b, c)
			h := vol / bc.VecNorm(0) //distance between the planes of the cell perpendicular to a
			nmax[a] = int(math.Ceil(rc / h))
		}
	}
	var ret [][3]float64
	for i := -nmax[0]; i <= nmax[0]; i++ {
		for j := -nmax[1]; j <= nmax[1]; j++ {
			for k := -nmax[2]; k <= nmax[2]; k++ {
				var t [3]float64
				for x := 0; x < 3; x++ {
					t[x] = float64(i)*s.Cell.At(0, x) + float64(j)*s.Cell.At(1, x) + float64(k)*s.Cell.At(2, x)
				}
				ret = append(ret, t)
			}
		}
	}
	return ret, nil
}
