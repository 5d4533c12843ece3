/*
 * collection.go, part of gopenff.
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

//Package qcsubmit wraps the result collections of OpenFF QCSubmit: sets of QCArchive records
//grouped by server, and the filters used to curate them before a fit.
//
//Collections are never modified by filters. Each filter returns a new collection, and Apply
//keeps a record of every step in the Provenance of the collection it returns.
package qcsubmit

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/qcportal"
	"github.com/rmera/gopenff/toolkit"
)

const module = "openff.qcsubmit.results"

//Kind is the kind of computation in a collection.
type Kind int

const (
	Optimization Kind = iota
	TorsionDrive
	Basic
)

var kindClasses = map[Kind]string{
	Optimization: "OptimizationResultCollection",
	TorsionDrive: "TorsionDriveResultCollection",
	Basic:        "BasicResultCollection",
}

var entryClasses = map[Kind]string{
	Optimization: "OptimizationResult",
	TorsionDrive: "TorsionDriveResult",
	Basic:        "BasicResult",
}

//Class returns the name of the collection class for K.
func (K Kind) Class() string {
	return kindClasses[K]
}

func (K Kind) String() string {
	switch K {
	case Optimization:
		return "optimization"
	case TorsionDrive:
		return "torsiondrive"
	case Basic:
		return "basic"
	}
	return fmt.Sprintf("Kind(%d)", int(K))
}

//ParseKind returns the kind named s, which can also be abbreviated as "opt" or "td".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "opt", "optimization":
		return Optimization, nil
	case "td", "torsiondrive", "torsion":
		return TorsionDrive, nil
	case "basic", "singlepoint":
		return Basic, nil
	}
	return 0, fmt.Errorf("qcsubmit: unknown collection kind %q", s)
}

var (
	nResults   = foreign.NewProp[int]("n_results")
	nMolecules = foreign.NewProp[int]("n_molecules")
	provenance = foreign.NewProp[map[string]any]("provenance")
	entries    = foreign.NewProp[map[string][]*foreign.Handle]("entries")
)

//ResultCollection is a set of entries, grouped by the address of the server they come from.
type ResultCollection struct {
	h    *foreign.Handle
	kind Kind
	prov *Provenance
}

func classCall(ip *foreign.Interpreter, kind Kind, method string, kw foreign.Kwargs, args ...any) (*ResultCollection, error) {
	cls, err := ip.Import(module, kind.Class())
	if err != nil {
		return nil, err
	}
	defer cls.Release()
	h, err := foreign.CallKw[*foreign.Handle](cls, method, kw, args...)
	if err != nil {
		return nil, err
	}
	return &ResultCollection{h: h, kind: kind}, nil
}

//FromServer downloads the entries computed with the specification spec in the given datasets.
//Records present in more than one dataset are included once.
func FromServer(ip *foreign.Interpreter, kind Kind, client *qcportal.PortalClient, datasets []string, spec string) (*ResultCollection, error) {
	return classCall(ip, kind, "from_server", foreign.Kwargs{
		"client":    client,
		"datasets":  datasets,
		"spec_name": spec,
	})
}

//ParseFile reads a collection from a JSON file, which can be compressed.
func ParseFile(ip *foreign.Interpreter, kind Kind, path string) (*ResultCollection, error) {
	return classCall(ip, kind, "parse_file", nil, path)
}

//ParseRaw reads a collection from its JSON representation.
func ParseRaw(ip *foreign.Interpreter, kind Kind, data string) (*ResultCollection, error) {
	return classCall(ip, kind, "parse_raw", nil, data)
}

//CollectionFromHandle wraps h, which must hold a collection of the given kind. The collection takes ownership of h.
func CollectionFromHandle(kind Kind, h *foreign.Handle) *ResultCollection {
	return &ResultCollection{h: h, kind: kind}
}

func (R *ResultCollection) Handle() *foreign.Handle {
	if R == nil {
		return nil
	}
	return R.h
}

func (R *ResultCollection) Kind() Kind {
	return R.kind
}

//Provenance returns the filters applied to R with Apply, or nil if R doesn't come from Apply.
func (R *ResultCollection) Provenance() *Provenance {
	return R.prov
}

//ForeignProvenance returns the provenance recorded by the toolkit itself, which includes
//the filters applied, under "applied-filters".
func (R *ResultCollection) ForeignProvenance() (map[string]any, error) {
	return provenance.Get(R)
}

//JSON returns the collection serialized. indent 0 means no indentation.
func (R *ResultCollection) JSON(indent int) (string, error) {
	var kw foreign.Kwargs
	if indent > 0 {
		kw = foreign.Kwargs{"indent": indent}
	}
	return foreign.CallKw[string](R, "json", kw)
}

//Entries returns the entries of R by server address. The entries must be released by the caller.
func (R *ResultCollection) Entries() (map[string][]*Entry, error) {
	m, err := entries.Get(R)
	if err != nil {
		return nil, err
	}
	ret := make(map[string][]*Entry, len(m))
	for k, hs := range m {
		l := make([]*Entry, len(hs))
		for i, h := range hs {
			l[i] = &Entry{h: h}
		}
		ret[k] = l
	}
	return ret, nil
}

//SetEntries replaces all the entries of R.
func (R *ResultCollection) SetEntries(m map[string][]*Entry) error {
	return foreign.SetAttr(R, "entries", m)
}

//NResults returns the number of entries in R.
func (R *ResultCollection) NResults() (int, error) {
	return nResults.Get(R)
}

//NMolecules returns the number of different molecules in R.
func (R *ResultCollection) NMolecules() (int, error) {
	return nMolecules.Get(R)
}

//RecordIDs returns the record ids of all the entries, with the servers in lexical order.
func (R *ResultCollection) RecordIDs() ([]int64, error) {
	m, err := R.Entries()
	if err != nil {
		return nil, err
	}
	defer releaseEntries(m)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ret := make([]int64, 0)
	for _, k := range keys {
		for _, e := range m[k] {
			id, err := e.RecordID()
			if err != nil {
				return nil, err
			}
			ret = append(ret, id)
		}
	}
	return ret, nil
}

//Record is the data of one record, and the molecule it was computed for, with one
//conformer per geometry of the record.
type Record struct {
	Data     map[string]any
	Molecule *toolkit.Molecule
}

//ToRecords returns the records of all the entries. The molecules must be released by the caller.
func (R *ResultCollection) ToRecords() ([]Record, error) {
	l, err := foreign.Call[[][]any](R, "to_records")
	if err != nil {
		return nil, err
	}
	ret := make([]Record, 0, len(l))
	for i, pair := range l {
		if len(pair) != 2 {
			return nil, foreign.Errorf(foreign.KindConversion, R.h.Class(), "to_records", "item %d has %d elements, not 2", i, len(pair))
		}
		d, _ := pair[0].(map[string]any)
		h, _ := pair[1].(*foreign.Handle)
		ret = append(ret, Record{Data: d, Molecule: toolkit.MoleculeFromHandle(h)})
	}
	return ret, nil
}

//TorsiondriveRecords returns the torsion drive records of the collection, which must be
//of kind TorsionDrive.
func (R *ResultCollection) TorsiondriveRecords() ([]*qcportal.TorsiondriveRecord, error) {
	if R.kind != TorsionDrive {
		return nil, foreign.Errorf(foreign.KindConversion, R.h.Class(), "to_records", "a %s collection has no torsion drive records", R.kind)
	}
	recs, err := R.ToRecords()
	if err != nil {
		return nil, err
	}
	ret := make([]*qcportal.TorsiondriveRecord, 0, len(recs))
	var errs error
	for _, r := range recs {
		td, err := qcportal.TorsiondriveRecordFromDict(R.h.Interpreter(), r.Data)
		errs = multierr.Append(errs, multierr.Append(err, r.Molecule.Release()))
		ret = append(ret, td)
	}
	if errs != nil {
		return nil, errs
	}
	return ret, nil
}

//withEntries returns a new collection of the kind of R, with the given entries and the
//provenance of R plus the step name/params.
func (R *ResultCollection) withEntries(m map[string][]*Entry, name string, params map[string]any) (*ResultCollection, error) {
	prov, err := R.ForeignProvenance()
	if err != nil {
		return nil, err
	}
	if prov == nil {
		prov = make(map[string]any)
	}
	applied, ok := prov["applied-filters"].(map[string]any)
	if !ok {
		applied = make(map[string]any)
	}
	applied[fmt.Sprintf("%s-%d", name, len(applied))] = params
	prov["applied-filters"] = applied
	ret, err := foreign.ImportCall[*foreign.Handle](R.h.Interpreter(), module, R.kind.Class(), foreign.Kwargs{"entries": m, "provenance": prov})
	if err != nil {
		return nil, err
	}
	return &ResultCollection{h: ret, kind: R.kind}, nil
}

func (R *ResultCollection) Release() error {
	return R.h.Release()
}

func releaseEntries(m map[string][]*Entry) error {
	var all []*Entry
	for _, l := range m {
		all = append(all, l...)
	}
	return foreign.ReleaseAll(all...)
}
