/*
 * interfaces.go, part of gopenff.
 *
 * Copyright 2026 The gopenff authors.
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
	"fmt"
)

//Errors

// Error is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
type Error interface {
	Error() string
	Decorate(string) []string //Each call returns the "decoration" slice resulting from the current call. If passed an empty string, it just returns the current value.
}

//CError is the error type returned by the functions of this package.
type CError struct {
	msg  string
	deco []string
	err  error
}

//Error returns a string with an error message.
func (err *CError) Error() string { return err.msg }

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (err *CError) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

//Unwrap returns the error that caused err, if any.
func (err *CError) Unwrap() error { return err.err }

//ErrInvalid is matched, with errors.Is, by all the errors produced when
//a molecule is given an impossible atom or bond.
var ErrInvalid = errors.New("invalid molecule")

func newError(caller, format string, args ...interface{}) *CError {
	err := &CError{msg: fmt.Sprintf(format, args...), err: ErrInvalid}
	err.Decorate(caller)
	return err
}

//errDecorate is a helper function that asserts that the error is
//implements chem.Error and decorates the error with the caller's name before returning it.
//if used with a non-chem.Error error, it will cause a panic.
func errDecorate(err error, caller string) error {
	err2 := err.(Error)
	err2.Decorate(caller)
	return err2
}
