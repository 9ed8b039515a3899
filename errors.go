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

package chem

import (
	"errors"
	"strings"
)

// ErrInvalidStructureState is matched (errors.Is) by every error signaling that
// the geometric arrays of a Structure or Snapshot are absent or malformed.
var ErrInvalidStructureState = errors.New("invalid structure state")

// chemError is the general error of the package. It fulfills the Error interface.
type chemError struct {
	message  string
	cause    error
	deco     []string
	critical bool
}

// NewError returns a critical error with the given message, decorated with caller.
func NewError(message, caller string) error {
	return &chemError{message: message, deco: []string{caller}, critical: true}
}

func structureError(message, caller string) error {
	return &chemError{message: message, cause: ErrInvalidStructureState, deco: []string{caller}, critical: true}
}

func (err *chemError) Error() string {
	if err.cause != nil {
		return err.cause.Error() + ": " + err.message
	}
	return err.message
}

func (err *chemError) Unwrap() error { return err.cause }

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err *chemError) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

// Critical returns whether the error is critical or it can be ignored
func (err *chemError) Critical() bool { return err.critical }

// Trail returns the functions an error went through, if it carries
// that information, as a single string.
func Trail(err error) string {
	var e Error
	if !errors.As(err, &e) {
		return ""
	}
	return strings.Join(e.Decorate(""), " <- ")
}

// errDecorate decorates err with the caller's name, if err implements Error, and returns it.
func errDecorate(err error, caller string) error {
	if e, ok := err.(Error); ok {
		e.Decorate(caller)
	}
	return err
}
