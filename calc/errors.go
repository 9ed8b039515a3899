/*
 * errors.go, part of chemlive.
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

import "fmt"

// Error is the error type of the package. It records the backend that failed, the name of
// the job and any additional information (such as the tail of the program's output).
type Error struct {
	message    string
	backend    string
	name       string
	additional string
	deco       []string
	critical   bool
}

// Error returns a string with an error message.
func (err *Error) Error() string {
	msg := fmt.Sprintf("%s (%s %s)", err.message, err.backend, err.name)
	if err.additional != "" {
		msg += ": " + err.additional
	}
	return msg
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err *Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

// Backend returns the name of the backend that produced the error.
func (err *Error) Backend() string { return err.backend }

// Critical returns whether the error is critical or it can be ignored
func (err *Error) Critical() bool { return err.critical }

const (
	BackendXTB    = "xtb"
	BackendLJ     = "LJ"
	ErrNotRunning = "Program can't be executed"
	ErrCantInput  = "Can't build input"
	ErrNoEnergy   = "Can't obtain energy"
	ErrNoGradient = "Can't obtain gradient"
	ErrPeriodic   = "Periodic structures are not supported"
	ErrNoCell     = "Periodic structure with a degenerate cell"
)
