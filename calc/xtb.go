/*
 * xtb.go, part of chemlive.
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
//In order to use this part of the library you need the xtb program, which must be obtained from Prof. Stefan Grimme's group.
//Please cite the the xtb references if you used the program.

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package calc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	chem "github.com/rmera/chemlive"
	v3 "github.com/rmera/chemlive/v3"
)

// XTB computes energies and gradients by running the xtb program on each structure.
// Each calculation runs in its own scratch directory, so an XTB value can be used
// by several goroutines at the same time.
// Note that the default method may change with the xtb version, and is not considered part of the API.
type XTB struct {
	Command  string //the xtb executable, "xtb" by default.
	Method   string //gfn0, gfn1, gfn2 or gfnff. Anything else means gfn2.
	Charge   int
	Unpaired int
	NCPU     int
	Solvent  string //ALPB implicit solvent name, or empty for gas phase.
	Dir      string //parent of the scratch directories, empty means the system's temporary directory.
}

// NewXTB returns an XTB backend with the default settings.
func NewXTB() *XTB {
	X := new(XTB)
	X.SetDefaults()
	return X
}

// SetDefaults sets the command, method and number of CPUs to their default values.
func (X *XTB) SetDefaults() {
	X.Command = "xtb"
	X.Method = "gfn2"
	X.NCPU = runtime.NumCPU() / 2
}

// args returns the command line arguments for the input file inp.
func (X *XTB) args(inp string) []string {
	ret := []string{inp, "--grad", "-c", strconv.Itoa(X.Charge), "-u", strconv.Itoa(X.Unpaired)}
	if X.NCPU > 1 {
		ret = append(ret, "-P", strconv.Itoa(X.NCPU))
	}
	switch X.Method {
	case "gfnff":
		ret = append(ret, "--gfnff")
	case "gfn0", "gfn1", "gfn2":
		ret = append(ret, "--gfn", strings.TrimPrefix(X.Method, "gfn"))
	default:
		ret = append(ret, "--gfn", "2")
	}
	//as of the current version, gfn0 doesn't support implicit solvation
	if X.Solvent != "" && X.Method != "gfn0" {
		ret = append(ret, "--alpb", X.Solvent)
	}
	return ret
}

// Calculate runs xtb for s and returns the energy and forces. Periodic structures give an error.
// The calculation is killed if ctx is cancelled.
func (X *XTB) Calculate(ctx context.Context, s *chem.Structure) (*chem.Results, error) {
	if err := s.Corrupted(); err != nil {
		return nil, err
	}
	if s.Periodic() {
		return nil, &Error{ErrPeriodic, BackendXTB, "", "", []string{"Calculate"}, true}
	}
	dir, err := os.MkdirTemp(X.Dir, "chemlive-xtb")
	if err != nil {
		return nil, &Error{ErrCantInput, BackendXTB, "", err.Error(), []string{"os.MkdirTemp", "Calculate"}, true}
	}
	defer os.RemoveAll(dir)
	geo := &chem.Structure{Numbers: s.Numbers, Positions: s.Positions, Cell: s.Cell}
	if err := chem.XYZFileWrite(filepath.Join(dir, "in.xyz"), geo); err != nil {
		return nil, &Error{ErrCantInput, BackendXTB, dir, err.Error(), []string{"chem.XYZFileWrite", "Calculate"}, true}
	}
	command := exec.CommandContext(ctx, X.Command, X.args("in.xyz")...)
	command.Dir = dir
	command.Env = append(os.Environ(), fmt.Sprintf("OMP_NUM_THREADS=%d", max(X.NCPU, 1)))
	out, err := command.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{ErrNotRunning, BackendXTB, dir, tail(string(out), 5), []string{"exec.Run", "Calculate"}, true}
	}
	grad, err := os.Open(filepath.Join(dir, "gradient"))
	if err != nil {
		return nil, &Error{ErrNoGradient, BackendXTB, dir, err.Error(), []string{"os.Open", "Calculate"}, true}
	}
	defer grad.Close()
	energy, forces, err := readGradient(grad, s.Len())
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.name = dir
			e.Decorate("Calculate")
			return nil, e
		}
		return nil, err
	}
	return &chem.Results{Energy: &energy, Forces: forces}, nil
}

// readGradient reads a Turbomole-format gradient file for natoms atoms, as written by xtb.
// It returns the energy in eV and the forces (minus the gradient) in eV/A.
func readGradient(r io.Reader, natoms int) (float64, *v3.Matrix, error) {
	scanner := bufio.NewScanner(r)
	var energy float64
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		_, after, ok := strings.Cut(line, "SCF energy =")
		if !ok {
			continue
		}
		fields := strings.Fields(after)
		if len(fields) == 0 {
			return 0, nil, &Error{ErrNoEnergy, BackendXTB, "", line, []string{"readGradient"}, true}
		}
		e, err := parseFortranFloat(fields[0])
		if err != nil {
			return 0, nil, &Error{ErrNoEnergy, BackendXTB, "", err.Error(), []string{"strconv.ParseFloat", "readGradient"}, true}
		}
		energy = e * chem.Hartree2EV
		found = true
		break
	}
	if !found {
		return 0, nil, &Error{ErrNoEnergy, BackendXTB, "", "no energy line in gradient file", []string{"readGradient"}, true}
	}
	//the coordinates come first, then the gradient, one line per atom each.
	for i := 0; i < natoms; i++ {
		if !scanner.Scan() {
			return 0, nil, &Error{ErrNoGradient, BackendXTB, "", "truncated coordinates", []string{"readGradient"}, true}
		}
	}
	forces := v3.Zeros(natoms)
	const conv = -chem.Hartree2EV / chem.Bohr2A
	for i := 0; i < natoms; i++ {
		if !scanner.Scan() {
			return 0, nil, &Error{ErrNoGradient, BackendXTB, "", fmt.Sprintf("%d gradient lines for %d atoms", i, natoms), []string{"readGradient"}, true}
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			return 0, nil, &Error{ErrNoGradient, BackendXTB, "", "ill formed line " + scanner.Text(), []string{"readGradient"}, true}
		}
		row := forces.RawRowView(i)
		for j := 0; j < 3; j++ {
			g, err := parseFortranFloat(fields[j])
			if err != nil {
				return 0, nil, &Error{ErrNoGradient, BackendXTB, "", err.Error(), []string{"strconv.ParseFloat", "readGradient"}, true}
			}
			row[j] = g * conv
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, nil, err
	}
	return energy, forces, nil
}

func parseFortranFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(s), 64)
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
