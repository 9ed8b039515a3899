/*
 * interfaces.go, part of chemlive.
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

	v3 "github.com/rmera/chemlive/v3"
)

// Calculator is a backend that computes energy and forces for a Structure.
// Implementations must not modify the structure they are given.
type Calculator interface {
	Calculate(ctx context.Context, s *Structure) (*Results, error)
}

// Results holds what a Calculator computed for a given state of a Structure.
// A nil Energy or Forces means the backend didn't compute that quantity.
// Results are shared, not copied, so they must be treated as read-only.
type Results struct {
	Energy *float64
	Forces *v3.Matrix
	Extra  map[string]float64 //other quantities a backend might produce (free energy, gaps...)
}

//Errors

// Error is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
type Error interface {
	Error() string
	Decorate(string) []string //Each call adds the caller to the trail and returns the current trail. An empty string only returns the trail.
	Critical() bool
}
