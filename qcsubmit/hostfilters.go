/*
 * hostfilters.go, part of gopenff.
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
	"fmt"
	"os"
	"sort"

	"github.com/samber/lo"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
	"go.uber.org/multierr"

	chem "github.com/rmera/gopenff"
	"github.com/rmera/gopenff/foreign"
)

//RecordIDFilter removes the entries with the given record ids, like the records
//known to be broken in a dataset.
type RecordIDFilter struct {
	Remove []int64
}

func (F *RecordIDFilter) Name() string {
	return "RecordIDFilter"
}

func (F *RecordIDFilter) Params() map[string]any {
	ids := lo.Uniq(F.Remove)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return map[string]any{"records_to_remove": ids}
}

func (F *RecordIDFilter) Apply(c *ResultCollection) (*ResultCollection, error) {
	remove := lo.SliceToMap(F.Remove, func(id int64) (int64, bool) { return id, true })
	return keepEntries(c, F, func(e *Entry) (bool, error) {
		id, err := e.RecordID()
		return !remove[id], err
	})
}

//keepEntries returns a copy of c with the entries for which keep returns true.
func keepEntries(c *ResultCollection, f Filter, keep func(e *Entry) (bool, error)) (ret *ResultCollection, err error) {
	m, err := c.Entries()
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, releaseEntries(m)) }()
	kept := make(map[string][]*Entry, len(m))
	for k, l := range m {
		kept[k] = make([]*Entry, 0, len(l))
		for _, e := range l {
			ok, err := keep(e)
			if err != nil {
				return nil, err
			}
			if ok {
				kept[k] = append(kept[k], e)
			}
		}
	}
	return c.withEntries(kept, f.Name(), f.Params())
}

//ScriptFilter keeps the entries for which the Starlark function keep(entry) returns true.
//entry has the attributes record_id, cmiles, inchi_key and record (a dict, or None
//if the entry has no record data). The script can call elements(cmiles), which returns the
//element symbols of the molecule.
type ScriptFilter struct {
	name    string
	source  string
	keep    starlark.Callable
	globals starlark.StringDict
}

var scriptBuiltins = starlark.StringDict{
	"struct":   starlark.NewBuiltin("struct", starlarkstruct.Make),
	"elements": starlark.NewBuiltin("elements", elements),
}

func elements(th *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var smiles string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "cmiles", &smiles); err != nil {
		return nil, err
	}
	syms, err := chem.SymbolsFromSMILES(smiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	vals := make([]starlark.Value, len(syms))
	for i, s := range syms {
		vals[i] = starlark.String(s)
	}
	return starlark.NewList(vals), nil
}

//NewScriptFilter compiles the Starlark source src. name identifies the script in
//error messages and provenance records.
func NewScriptFilter(name, src string) (*ScriptFilter, error) {
	th := &starlark.Thread{Name: name}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, th, name, src, scriptBuiltins)
	if err != nil {
		return nil, fmt.Errorf("qcsubmit: script %s: %w", name, err)
	}
	keep, ok := globals["keep"].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("qcsubmit: script %s doesn't define a keep(entry) function", name)
	}
	globals.Freeze()
	return &ScriptFilter{name: name, source: src, keep: keep, globals: globals}, nil
}

//ReadScriptFilter compiles the Starlark script in the file path.
func ReadScriptFilter(path string) (*ScriptFilter, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewScriptFilter(path, string(src))
}

func (F *ScriptFilter) Name() string {
	return "ScriptFilter"
}

func (F *ScriptFilter) Params() map[string]any {
	return map[string]any{"script": F.name, "source": F.source}
}

func (F *ScriptFilter) Apply(c *ResultCollection) (*ResultCollection, error) {
	th := &starlark.Thread{Name: F.name}
	return keepEntries(c, F, func(e *Entry) (bool, error) {
		d, err := e.Dict()
		if err != nil {
			return false, err
		}
		entry := starlarkstruct.FromStringDict(starlark.String("entry"), starlark.StringDict{
			"record_id": toStarlark(d["record_id"]),
			"cmiles":    toStarlark(d["cmiles"]),
			"inchi_key": toStarlark(d["inchi_key"]),
			"record":    toStarlark(d["record"]),
		})
		v, err := starlark.Call(th, F.keep, starlark.Tuple{entry}, nil)
		if err != nil {
			return false, fmt.Errorf("qcsubmit: script %s: %w", F.name, err)
		}
		b, ok := v.(starlark.Bool)
		if !ok {
			return false, fmt.Errorf("qcsubmit: script %s: keep returned a %s, not a bool", F.name, v.Type())
		}
		return bool(b), nil
	})
}

//toStarlark converts a canonical foreign value. Foreign objects become their description.
func toStarlark(v any) starlark.Value {
	switch t := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(t)
	case int64:
		return starlark.MakeInt64(t)
	case float64:
		return starlark.Float(t)
	case string:
		return starlark.String(t)
	case []any:
		l := make([]starlark.Value, len(t))
		for i, e := range t {
			l[i] = toStarlark(e)
		}
		return starlark.NewList(l)
	case map[string]any:
		d := starlark.NewDict(len(t))
		keys := lo.Keys(t)
		sort.Strings(keys)
		for _, k := range keys {
			d.SetKey(starlark.String(k), toStarlark(t[k]))
		}
		return d
	case *foreign.Handle:
		s := t.String()
		t.Release()
		return starlark.String(s)
	}
	return starlark.String(fmt.Sprint(v))
}
