/*
 * doc.go, part of chemlive.
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

/*
Package v3 implements a Matrix type representing a row-major Nx3 matrix.
The v3.Matrix holds the cartesian positions and forces of a set of atoms,
and the 3 lattice vectors of a periodic cell, in chemlive.
It is based on gonum's (gonum.org/v1/gonum/mat) Dense type, with the
restriction of a fixed number of columns and a few additional functions
that the integrators and optimizers need.

Within the package a "vector" is a row of the matrix, i.e. the cartesian
coordinates of one point in 3D space.
*/
package v3
