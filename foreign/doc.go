/*
 * doc.go, part of gopenff.
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

/*Package foreign is the bridge between Go and the runtime hosting the OpenFF, QCSubmit and
QCPortal objects.

A foreign object is held through a Handle. Handles are reference counted: Clone shares the
object, and Release drops one reference. The object is released in the foreign runtime when
the last reference is dropped.

Every interaction with the runtime (import, attribute get, attribute set, call, release) goes
through an Interpreter, which holds the runtime-wide lock for exactly the duration of the
interaction, and releases it on every path, including errors.

Facades are built declaratively, from typed accessors:

	var author = foreign.NewRWProp[string]("author")

	func (F *ForceField) Author() (string, error) { return author.Get(F.h) }

and from the generic forwarders Call, CallKw and Invoke. Conversion from the foreign values to
Go types is strict: a string never becomes a number, and a foreign list never becomes a string.

The runtime itself is abstracted by the Backend interface. The pybridge package implements it
with a Python subprocess, and the native package implements it in-process.
*/
package foreign
