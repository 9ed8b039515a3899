/*
 * files.go, part of chemlive.
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

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/rmera/chemlive/v3"
)

// XYZFileRead reads a (possibly multi-frame) xyz file and returns one Structure per frame.
// The extended-xyz keys Lattice and pbc are read from the comment line, if present.
func XYZFileRead(xyzname string) ([]*Structure, error) {
	xyzfile, err := os.Open(xyzname)
	if err != nil {
		return nil, err
	}
	defer xyzfile.Close()
	ret, err := XYZRead(xyzfile)
	if err != nil {
		return nil, errDecorate(err, "XYZFileRead "+xyzname)
	}
	return ret, nil
}

// XYZRead reads all the frames of xyz data from r.
func XYZRead(r io.Reader) ([]*Structure, error) {
	xyz := bufio.NewReader(r)
	var ret []*Structure
	for {
		S, err := xyzReadFrame(xyz)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errDecorate(err, fmt.Sprintf("XYZRead frame %d", len(ret)))
		}
		ret = append(ret, S)
	}
	if len(ret) == 0 {
		return nil, NewError("No frames in xyz data", "XYZRead")
	}
	return ret, nil
}

func xyzReadFrame(xyz *bufio.Reader) (*Structure, error) {
	var line string
	var err error
	//blank lines between frames are tolerated
	for strings.TrimSpace(line) == "" {
		line, err = xyz.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			return nil, err
		}
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || natoms <= 0 {
		return nil, NewError(fmt.Sprintf("Ill formatted XYZ atom number line %q", line), "xyzReadFrame")
	}
	comment, err := xyz.ReadString('\n')
	if err != nil {
		return nil, NewError("Ill formatted XYZ file: no comment line", "xyzReadFrame")
	}
	numbers := make([]int, natoms)
	coords := make([]float64, natoms*3)
	for i := 0; i < natoms; i++ {
		line, err = xyz.ReadString('\n')
		if err != nil && (err != io.EOF || i != natoms-1) {
			return nil, NewError(fmt.Sprintf("Expected %d atoms, read %d", natoms, i), "xyzReadFrame")
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, NewError(fmt.Sprintf("Line number %d ill formed", i), "xyzReadFrame")
		}
		numbers[i], err = Number(fields[0])
		if err != nil {
			return nil, errDecorate(err, "xyzReadFrame")
		}
		for j := 0; j < 3; j++ {
			coords[i*3+j], err = strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, NewError(fmt.Sprintf("Can't parse coordinate %d of atom %d: %s", j, i, err.Error()), "xyzReadFrame")
			}
		}
	}
	positions, err := v3.NewMatrix(coords)
	if err != nil {
		return nil, err
	}
	cell, pbc, err := parseExtendedComment(comment)
	if err != nil {
		return nil, errDecorate(err, "xyzReadFrame")
	}
	return NewStructure(numbers, positions, cell, pbc)
}

// parseExtendedComment reads the Lattice and pbc keys of an extended xyz comment line.
// A lattice without a pbc key is taken as periodic in all directions.
func parseExtendedComment(comment string) (*v3.Matrix, [3]bool, error) {
	var pbc [3]bool
	cell := v3.Zeros(3)
	lat, ok := quotedValue(comment, "Lattice=")
	if !ok {
		return cell, pbc, nil
	}
	fields := strings.Fields(lat)
	if len(fields) != 9 {
		return nil, pbc, NewError(fmt.Sprintf("Lattice with %d components", len(fields)), "parseExtendedComment")
	}
	data := make([]float64, 9)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, pbc, NewError("Can't parse lattice: "+err.Error(), "parseExtendedComment")
		}
		data[i] = v
	}
	cell.SetFlat(data)
	pbc = [3]bool{true, true, true}
	if p, ok := quotedValue(comment, "pbc="); ok {
		flags := strings.Fields(p)
		for i := 0; i < 3 && i < len(flags); i++ {
			pbc[i] = strings.EqualFold(flags[i], "T") || strings.EqualFold(flags[i], "true")
		}
	}
	return cell, pbc, nil
}

func quotedValue(s, key string) (string, bool) {
	i := strings.Index(s, key+`"`)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(key)+1:]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// XYZFileWrite writes the given structures as frames of an xyz file with name xyzname, which will
// be created for that. If the file exists it will be overwritten.
func XYZFileWrite(xyzname string, frames ...*Structure) error {
	out, err := os.Create(xyzname)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	for _, S := range frames {
		if err := XYZWrite(w, S); err != nil {
			return errDecorate(err, "XYZFileWrite")
		}
	}
	return w.Flush()
}

// XYZWrite writes S as one frame of an extended xyz file. The cell is written only for periodic
// structures, and the energy only if it was already computed.
func XYZWrite(out io.Writer, S *Structure) error {
	if err := S.Corrupted(); err != nil {
		return errDecorate(err, "XYZWrite")
	}
	comment := ""
	if S.Periodic() {
		c := S.Cell.Flat(nil)
		strs := make([]string, len(c))
		for i, v := range c {
			strs[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		comment = fmt.Sprintf(`Lattice="%s" pbc="%s %s %s"`, strings.Join(strs, " "), tf(S.PBC[0]), tf(S.PBC[1]), tf(S.PBC[2]))
	}
	if r := S.Results(); r != nil && r.Energy != nil {
		comment = strings.TrimSpace(fmt.Sprintf("%s energy=%.8f", comment, *r.Energy))
	}
	if _, err := fmt.Fprintf(out, "%-4d\n%s\n", S.Len(), comment); err != nil {
		return err
	}
	for i, z := range S.Numbers {
		sym, err := Symbol(z)
		if err != nil {
			return errDecorate(err, "XYZWrite")
		}
		c := S.Positions.RawRowView(i)
		if _, err = fmt.Fprintf(out, "%-2s  %12.6f%12.6f%12.6f\n", sym, c[0], c[1], c[2]); err != nil {
			return err
		}
	}
	return nil
}

func tf(b bool) string {
	if b {
		return "T"
	}
	return "F"
}
