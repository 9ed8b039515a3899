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
Package calc implements the energy and force backends that chemlive attaches to a
chem.Structure.

LennardJones is a lightweight pair potential, useful for tests and for quick
demonstrations. XTB runs the external xtb program from Prof. Stefan Grimme's group,
which must be installed separately; please cite the xtb references if you use it.
Cached wraps any other backend with an LRU cache of results.

All backends produce energies in eV and forces in eV/A.
*/
package calc
