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
Package stf implements the simple trajectory format, the format chemlive uses
to keep a local archive of the frames a run produces.
stf aims to produce reasonably small files and to be very easy to read and write, so readers/writers
can be easily implemented in other programing languages, while also being reasonably fast to
write and, especially, to read.

Format

A STF file has the extension stf, and it is compressed with z-standard (zstd). Files which
name ends in 'z' (say, traj.stz) are compressed with gzip instead.

A STF file may only contain ASCII symbols.

A STF file has a "header" starting in the first line, and ending with a line that starts with the
characters "**" followed by one or more spaces, and the number of atoms per frame.

Each line of the header must be a pair key=value. The precision (a non-negative integer,
see below) must be included in the header with the key "prec". The atomic numbers of the
atoms, separated by commas, go with the key "numbers". For example:

	prec=2
	numbers=8,1,1
	kind=geometry_optimization
	** 3

After the header, the file has one line per atom, per frame. Each line contains 3 integers,
the x y and z cartesian coordinates, in Angstrom, multiplied by 10 to the power of the
precision, and rounded. This package uses a default precision of 2.

Each frame ends with a line starting with the character "*" (no whitespaces before), optionally
followed by one or more whitespace and 9 floating-point numbers separated by spaces. If present,
these numbers are the 3 vectors defining the simulation box, in Angstrom.

The "**" sequence may only be used as a header termination, and can not appear
anywhere else in the file.

The zstd compression level can be given to NewWriter. This package uses
zstd.SpeedBetterCompression by default.
*/
package stf
