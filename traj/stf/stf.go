/*
 * stf.go, part of chemlive.
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

package stf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	v3 "github.com/rmera/chemlive/v3"
)

// DefaultPrec is the number of decimal places kept for each coordinate
// when the header doesn't ask for something else.
const DefaultPrec = 2

// Header keys with a meaning for this package. Any other key is kept
// as given and returned by New.
const (
	PrecKey    = "prec"
	NumbersKey = "numbers"
)

//Write!

// StfW is a handle to write a STF trajectory.
type StfW struct {
	f         io.WriteCloser
	z         io.WriteCloser
	h         *bufio.Writer
	natoms    int
	filename  string
	writeable bool
	prec      int
	temp      [3]int
	frames    int
}

// Close flushes the pending data and closes the file. The handle can not be used after this call.
func (S *StfW) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.h.Flush()
	if err2 := S.z.Close(); err == nil {
		err = err2
	}
	if err2 := S.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return &Error{err.Error(), S.filename, []string{"Close"}, true}
	}
	return nil
}

// Len returns the number of atoms per frame.
func (S *StfW) Len() int {
	return S.natoms
}

// Frames returns the number of frames written so far.
func (S *StfW) Frames() int {
	return S.frames
}

// WNext writes the coordinates in coord as a new frame. If box is not nil, its
// 3 vectors are written in the frame termination line.
func (S *StfW) WNext(coord *v3.Matrix, box *v3.Matrix) error {
	if !S.writeable {
		return &Error{TrajUnIniWrite, S.filename, []string{"WNext"}, true}
	}
	if coord == nil {
		return &Error{NilCoordinates, S.filename, []string{"WNext"}, true}
	}
	v := coord.NVecs()
	if v != S.natoms {
		return &Error{fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), S.filename, []string{"WNext"}, true}
	}
	var floats [3]float64
	for i := 0; i < v; i++ {
		floats[0] = coord.At(i, 0)
		floats[1] = coord.At(i, 1)
		floats[2] = coord.At(i, 2)
		S.h.WriteString(coordsEncode(floats, S.temp, S.prec))
	}
	var err error
	if box != nil && box.NVecs() == 3 {
		b := box.Flat(nil)
		_, err = fmt.Fprintf(S.h, "* %.4f %.4f %.4f %.4f %.4f %.4f %.4f %.4f %.4f\n", b[0],
			b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
	} else {
		_, err = S.h.WriteString("*\n")
	}
	if err != nil {
		return &Error{err.Error(), S.filename, []string{"WNext"}, true}
	}
	S.frames++
	return nil
}

// NewWriter creates the file name and returns a handle to write a trajectory of
// the atoms with the given atomic numbers on it. The compression is chosen by the
// last letter of the name: 'z' for gzip, and zstd for anything else.
// The header may be nil. If it has a "prec" key, that will be the number of
// decimal places kept for the coordinates.
func NewWriter(name string, numbers []int, header map[string]string, compressionLevel ...int) (*StfW, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, &Error{UnableToOpen + ": " + err.Error(), name, []string{"NewWriter"}, true}
	}
	S, err := NewStream(f, name, numbers, header, compressionLevel...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return S, nil
}

// NewStream is like NewWriter, but writes to w. The name is only used to
// choose the compression and to report errors. Closing the handle closes w.
func NewStream(w io.WriteCloser, name string, numbers []int, header map[string]string, compressionLevel ...int) (*StfW, error) {
	S := &StfW{f: w, natoms: len(numbers), filename: name, prec: DefaultPrec}
	if p, ok := header[PrecKey]; ok {
		prec, err := strconv.Atoi(p)
		if err != nil || prec < 0 {
			return nil, &Error{fmt.Sprintf("Invalid precision '%s'", p), name, []string{"NewStream"}, true}
		}
		S.prec = prec
	}
	var err error
	if name != "" && strings.ToLower(name)[len(name)-1] == 'z' {
		level := gzip.DefaultCompression
		if len(compressionLevel) > 0 {
			level = compressionLevel[0]
		}
		S.z, err = gzip.NewWriterLevel(w, level)
	} else {
		level := zstd.SpeedBetterCompression
		if len(compressionLevel) > 0 {
			level = zstd.EncoderLevelFromZstd(compressionLevel[0])
		}
		S.z, err = zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	}
	if err != nil {
		return nil, &Error{"Can't start the compressor: " + err.Error(), name, []string{"NewStream"}, true}
	}
	S.h = bufio.NewWriter(S.z)
	keys := make([]string, 0, len(header)+2)
	for k := range header {
		if k == NumbersKey || k == PrecKey {
			continue
		}
		if strings.ContainsAny(k, "=\n") || strings.Contains(header[k], "\n") || strings.HasPrefix(k, "*") {
			return nil, &Error{fmt.Sprintf("Invalid header entry '%s'", k), name, []string{"NewStream"}, true}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(S.h, "%s=%d\n", PrecKey, S.prec)
	nums := make([]string, len(numbers))
	for i, v := range numbers {
		nums[i] = strconv.Itoa(v)
	}
	fmt.Fprintf(S.h, "%s=%s\n", NumbersKey, strings.Join(nums, ","))
	for _, k := range keys {
		fmt.Fprintf(S.h, "%s=%s\n", k, header[k])
	}
	if _, err := fmt.Fprintf(S.h, "** %d\n", S.natoms); err != nil {
		return nil, &Error{"Can't write header: " + err.Error(), name, []string{"NewStream"}, true}
	}
	S.writeable = true
	return S, nil
}

func coordsEncode(f [3]float64, temp [3]int, prec int) string {
	p := 100.0
	if prec != 2 {
		p = math.Pow(10.0, float64(prec))
	}
	for i, v := range f {
		temp[i] = int(math.RoundToEven(v * p))
	}
	return fmt.Sprintf("%d %d %d\n", temp[0], temp[1], temp[2])
}

//Read!

// StfR is a handle to read a STF trajectory.
type StfR struct {
	f        io.Closer
	z        io.ReadCloser
	h        *bufio.Reader
	natoms   int
	numbers  []int
	filename string
	prec     int
	readable bool
}

// zstd's Decoder Close doesn't return an error.
type zstdCloser struct {
	*zstd.Decoder
}

func (s zstdCloser) Close() error {
	s.Decoder.Close()
	return nil
}

// New opens a STF trajectory for reading, and returns a pointer
// to the handle, a map with the metadata and error or nil.
func New(name string) (*StfR, map[string]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, &Error{UnableToOpen + ": " + err.Error(), name, []string{"New"}, true}
	}
	S, m, err := NewReader(f, name)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return S, m, nil
}

// NewReader is like New, but reads from r. The name is only used to choose
// the decompressor and to report errors. If r is an io.Closer, it is closed
// with the handle.
func NewReader(r io.Reader, name string) (*StfR, map[string]string, error) {
	S := &StfR{natoms: -1, filename: name, prec: DefaultPrec}
	if c, ok := r.(io.Closer); ok {
		S.f = c
	}
	var err error
	intermediate := bufio.NewReader(r)
	if name != "" && strings.ToLower(name)[len(name)-1] == 'z' {
		S.z, err = gzip.NewReader(intermediate)
	} else {
		var d *zstd.Decoder
		d, err = zstd.NewReader(intermediate)
		if err == nil {
			S.z = zstdCloser{d}
		}
	}
	if err != nil {
		return nil, nil, &Error{"Can't read header: " + err.Error(), name, []string{"NewReader"}, true}
	}
	S.h = bufio.NewReader(S.z)
	m := make(map[string]string)
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			return nil, nil, &Error{"Can't read header: " + err.Error(), name, []string{"NewReader"}, true}
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				return nil, nil, &Error{fmt.Sprintf("Can't read atom number from '%s'", str), name, []string{"NewReader"}, true}
			}
			S.natoms, err = strconv.Atoi(nat[1])
			if err != nil {
				return nil, nil, &Error{fmt.Sprintf("Can't read atom number from '%s': %s", nat[1], err.Error()), name, []string{"NewReader"}, true}
			}
			break
		}
		k, v, ok := strings.Cut(str, "=")
		if !ok {
			return nil, nil, &Error{"Malformed header line: " + str, name, []string{"NewReader"}, true}
		}
		m[k] = v
	}
	if p, ok := m[PrecKey]; ok {
		S.prec, err = strconv.Atoi(p)
		if err != nil {
			return nil, nil, &Error{fmt.Sprintf("Invalid precision '%s'", p), name, []string{"NewReader"}, true}
		}
	}
	if n, ok := m[NumbersKey]; ok && n != "" {
		fields := strings.Split(n, ",")
		S.numbers = make([]int, len(fields))
		for i, v := range fields {
			S.numbers[i], err = strconv.Atoi(v)
			if err != nil {
				return nil, nil, &Error{fmt.Sprintf("Invalid atomic number '%s'", v), name, []string{"NewReader"}, true}
			}
		}
		if len(S.numbers) != S.natoms {
			return nil, nil, &Error{fmt.Sprintf("%d atomic numbers for %d atoms", len(S.numbers), S.natoms), name, []string{"NewReader"}, true}
		}
	}
	S.readable = true
	return S, m, nil
}

// Readable returns true if the handle is readable (if it is possible to call Next on it)
func (S *StfR) Readable() bool {
	return S.readable
}

// Numbers returns the atomic numbers stored in the header, or nil if
// the file doesn't have them.
func (S *StfR) Numbers() []int {
	return S.numbers
}

func coordsDecode(str string, temp *[3]float64, prec int) error {
	p := 100.0
	if prec != 2 {
		p = math.Pow(10.0, float64(prec))
	}
	s := strings.Fields(str)
	if len(s) != 3 {
		return fmt.Errorf("Ill formated coordinates line in stf: %d fields: %s", len(s), str)
	}
	for i, v := range s {
		f, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Can't parse coordinate %d (%s). Error: %s", i, v, err.Error())
		}
		temp[i] = float64(f) / p
	}
	return nil
}

// Next puts in c the coordinates for the next frame of the trajectory
// and, if box is not nil and the frame has the information, the 3 box vectors in box.
// If c is nil, the frame is read and checked, but discarded.
// At the end of the trajectory, it returns an error for which IsLastFrame is true.
func (S *StfR) Next(c *v3.Matrix, box *v3.Matrix) error {
	if !S.readable {
		return &Error{TrajUnIniRead, S.filename, []string{"Next"}, true}
	}
	if c != nil && c.NVecs() != S.natoms {
		return &Error{fmt.Sprintf("Matrix for %d atoms given, but the trajectory has %d", c.NVecs(), S.natoms), S.filename, []string{"Next"}, true}
	}
	var temp [3]float64
	for i := 0; i < S.natoms; i++ {
		b, err := S.h.ReadString('\n')
		if err != nil {
			// EOF is only normal when reading the first atom
			if err == io.EOF && i == 0 && b == "" {
				S.Close()
				return newlastFrameError(S.filename, "Next")
			}
			return &Error{ReadError + ": " + err.Error(), S.filename, []string{"Next"}, true}
		}
		if err := coordsDecode(strings.TrimSuffix(b, "\n"), &temp, S.prec); err != nil {
			return &Error{err.Error(), S.filename, []string{"Next"}, true}
		}
		if c == nil {
			continue
		}
		for j, v := range temp {
			c.Set(i, j, v)
		}
	}
	s, err := S.h.ReadString('\n')
	if err != nil {
		return &Error{"Can't read the frame termination mark: " + err.Error(), S.filename, []string{"Next"}, true}
	}
	if s == "" || s[0] != '*' {
		return &Error{WrongFormat + ": wrong number of atoms in frame", S.filename, []string{"Next"}, true}
	}
	if box == nil {
		return nil
	}
	fields := strings.Fields(s)
	if len(fields) != 10 {
		return nil
	}
	b := make([]float64, 9)
	for j, v := range fields[1:] {
		b[j], err = strconv.ParseFloat(v, 64)
		if err != nil {
			return &Error{fmt.Sprintf("Can't read box value '%s'", v), S.filename, []string{"Next"}, true}
		}
	}
	box.SetFlat(b)
	return nil
}

// Close closes the object, and marks it as unreadable
func (S *StfR) Close() {
	if !S.readable {
		return
	}
	S.z.Close()
	if S.f != nil {
		S.f.Close()
	}
	S.readable = false
}

// Len returns the number of atoms in each frame of the trajectory.
func (S *StfR) Len() int {
	return S.natoms
}

//Errors

// Error is the general structure for STF trajectory errors.
type Error struct {
	message  string
	filename string //the file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err *Error) Error() string {
	return fmt.Sprintf("stf file %s error: %s", err.filename, err.message)
}

// Decorate Adds new information to the error
func (E *Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// Critical returns true if the error is critical, false otherwise
func (err *Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	NilCoordinates = "Given nil coordinates"
	WrongFormat    = "Wrong format in the STF file or frame"
)

// lastFrameError signals the normal end of a trajectory.
type lastFrameError struct {
	deco     []string
	fileName string
}

func (E *lastFrameError) Error() string { return "stf file " + E.fileName + ": EOF" }

func (E *lastFrameError) Critical() bool { return false }

func (E *lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	return &lastFrameError{fileName: filename, deco: []string{caller}}
}

// IsLastFrame returns true if err only signals that a trajectory has no more frames.
func IsLastFrame(err error) bool {
	_, ok := err.(*lastFrameError)
	return ok
}
