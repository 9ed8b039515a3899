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
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

/*
Package chem is the main package of chemlive. It provides the live Structure that
simulation routines operate on, the immutable Snapshot that is streamed to a
remote viewer, the Calculator contract for energy and force backends, atomic data,
units and xyz input/output.

	**chemlive Capabilities**

	Runs Langevin molecular dynamics (package md) and BFGS, LBFGS and FIRE
	geometry optimizations (package opt) on structures taken from a
	remote viewing session.

	Computes energies and forces with a Lennard-Jones potential or with
	the external xtb program (package calc).

	Streams the frames produced by a run to the session in batches, after
	trimming the frames ahead of the viewing position (package modifier).

	Keeps a compressed local archive of every run (packages traj/stf and
	archive) and a ledger of the runs (package runlog).

Units are those of the ASE package: A for lengths, eV for energies, amu for
masses, and A*sqrt(amu/eV) for time (see Fs).
*/
package chem
