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

//Package chemjson implements the line-delimited JSON protocol used to talk to a foreign
//runtime living in another process, usually a Python worker hosting the OpenFF toolkits.
//
//Every message is one JSON object in one line. The Go side sends Requests and the worker
//answers each of them, in order, with one Response carrying the same ID. Foreign objects
//never cross the pipe: they are replaced by references of the form
//{"$ref": id, "$class": name}, which the worker keeps in its object table until they are
//released.
package chemjson
