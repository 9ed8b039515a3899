/*
 * conversion.go, part of chemlive.
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

//This provides the unit system and some conversion factors.
//Lengths are in Angstrom, energies in eV, masses in amu. Time is in the
//derived unit Angstrom*sqrt(amu/eV), so a time step given in fs has to be
//multiplied by Fs.

//Conversions
const (
	Hartree2EV = 27.211386024367243
	Bohr2A     = 0.52917721067
	A2Bohr     = 1 / Bohr2A
	H2Kcal     = 627.509 //Hartree 2 Kcal/mol
	EV2Kcal    = H2Kcal / Hartree2EV
)

//Others
const (
	Fs = 0.09822694788464063   //one femtosecond in internal time units
	KB = 8.617330337217213e-05 //Boltzmann constant in eV/K
)
