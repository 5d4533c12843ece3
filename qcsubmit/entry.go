/*
 * entry.go, part of gopenff.
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

package qcsubmit

import (
	"github.com/rmera/gopenff/foreign"
)

var (
	recordID = foreign.NewProp[int64]("record_id")
	cmiles   = foreign.NewProp[string]("cmiles")
	inchiKey = foreign.NewProp[string]("inchi_key")
)

//Entry is a reference to one record of a server. Entries are immutable.
type Entry struct {
	h *foreign.Handle
}

//NewEntry returns an entry for a collection of the given kind.
func NewEntry(ip *foreign.Interpreter, kind Kind, id int64, mappedSMILES, key string) (*Entry, error) {
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, entryClasses[kind], foreign.Kwargs{
		"record_id": id,
		"cmiles":    mappedSMILES,
		"inchi_key": key,
	})
	if err != nil {
		return nil, err
	}
	return &Entry{h: h}, nil
}

func (E *Entry) Handle() *foreign.Handle {
	if E == nil {
		return nil
	}
	return E.h
}

//RecordID returns the id of the record in its server.
func (E *Entry) RecordID() (int64, error) {
	return recordID.Get(E)
}

//CMILES returns the mapped SMILES of the molecule of the record.
func (E *Entry) CMILES() (string, error) {
	return cmiles.Get(E)
}

func (E *Entry) InChIKey() (string, error) {
	return inchiKey.Get(E)
}

//Dict returns all the data of the entry, including the offline record data if present.
func (E *Entry) Dict() (map[string]any, error) {
	return foreign.Call[map[string]any](E, "dict")
}

//Clone returns a new reference to the same entry.
func (E *Entry) Clone() (*Entry, error) {
	h, err := E.h.Clone()
	if err != nil {
		return nil, err
	}
	return &Entry{h: h}, nil
}

func (E *Entry) Release() error {
	return E.h.Release()
}
