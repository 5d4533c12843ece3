/*
 * errors.go, part of gopenff.
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

package foreign

import (
	"fmt"
	"strings"
)

//Kind classifies the errors produced while talking to the foreign runtime.
type Kind int

const (
	_ Kind = iota
	//KindNoSuchAttribute: the foreign object has no attribute with the requested name.
	KindNoSuchAttribute
	//KindNoSuchMethod: the foreign object has no callable with the requested name.
	KindNoSuchMethod
	//KindConversion: a value could not be converted to or from the foreign representation.
	KindConversion
	//KindExternal: the foreign call itself raised.
	KindExternal
	//KindStartup: the foreign runtime could not be started, or a required package is missing.
	KindStartup
	//KindReleased: the handle was used after being released, or the interpreter was closed.
	KindReleased
)

func (k Kind) String() string {
	switch k {
	case KindNoSuchAttribute:
		return "no such attribute"
	case KindNoSuchMethod:
		return "no such method"
	case KindConversion:
		return "conversion error"
	case KindExternal:
		return "external error"
	case KindStartup:
		return "startup error"
	case KindReleased:
		return "released handle"
	}
	return "unknown error"
}

//Sentinels to be used with errors.Is.
var (
	ErrNoSuchAttribute = &Error{Kind: KindNoSuchAttribute}
	ErrNoSuchMethod    = &Error{Kind: KindNoSuchMethod}
	ErrConversion      = &Error{Kind: KindConversion}
	ErrExternal        = &Error{Kind: KindExternal}
	ErrStartup         = &Error{Kind: KindStartup}
	ErrReleased        = &Error{Kind: KindReleased}
)

//Error is the error returned by every operation that crosses into the foreign runtime.
//Class and Name identify the facade type and the attribute or method involved, so a binding
//mismatch can be found from the message alone.
type Error struct {
	Kind    Kind
	Class   string
	Name    string
	Type    string //the type of the foreign exception, if any
	Message string
	Cause   error
	deco    []string
}

//Errorf returns a new *Error.
func Errorf(kind Kind, class, name, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Class: class, Name: name, Message: fmt.Sprintf(format, args...)}
}

func (err *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("gopenff: ")
	if err.Class != "" || err.Name != "" {
		sb.WriteString(err.Class)
		if err.Name != "" {
			sb.WriteString(".")
			sb.WriteString(err.Name)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(err.Kind.String())
	if err.Type != "" {
		sb.WriteString(": ")
		sb.WriteString(err.Type)
	}
	if err.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(err.Message)
	}
	if err.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(err.Cause.Error())
	}
	return sb.String()
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (err *Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

func (err *Error) Unwrap() error { return err.Cause }

//Is reports whether target is the sentinel for the kind of err.
func (err *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == err.Kind && t.Class == "" && t.Name == "" && t.Message == ""
}

//locate fills the class and name of err if they are not set. Errors that are not
//*Error become external errors.
func locate(err error, class, name string) *Error {
	e, ok := err.(*Error)
	if !ok {
		return &Error{Kind: KindExternal, Class: class, Name: name, Cause: err}
	}
	if e.Class == "" {
		e.Class = class
	}
	if e.Name == "" {
		e.Name = name
	}
	return e
}

//errDecorate decorates a foreign error with the caller's name before returning it.
//Other errors are returned unchanged.
func errDecorate(err error, caller string) error {
	if e, ok := err.(*Error); ok {
		e.Decorate(caller)
	}
	return err
}
