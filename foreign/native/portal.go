/*
 * portal.go, part of gopenff.
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

package native

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/rmera/gopenff/internal/zio"
)

//portalClient is a client of a QCFractal server. Only local archives, with addresses
//like file:///path/to/dir, can be read by the native runtime.
type portalClient struct {
	address string
}

func (p *portalClient) class() *class { return portalClientClass }

//dir returns the archive directory, or false for remote servers.
func (p *portalClient) dir() (string, bool) {
	if !strings.HasPrefix(p.address, "file://") {
		return "", false
	}
	return strings.TrimPrefix(p.address, "file://"), true
}

//dataset reads a dataset from the archive. Its kind must be the one given.
func (p *portalClient) dataset(kind, name string) (map[string][]map[string]any, error) {
	dir, ok := p.dir()
	if !ok {
		return nil, external(p, "get_dataset", "ConnectionError: the native runtime can't reach %s, only file:// archives are supported", p.address)
	}
	var data []byte
	var err error
	for _, ext := range []string{".json", ".json.gz", ".json.zst"} {
		data, err = zio.ReadFile(filepath.Join(dir, name+ext))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, external(p, "get_dataset", "MissingDataError: dataset %q not found in %s", name, p.address)
	}
	if t := gjson.GetBytes(data, "type").String(); t != kind {
		return nil, external(p, "get_dataset", "ValueError: dataset %q is of type %q, not %q", name, t, kind)
	}
	var ds map[string]any
	if err := decodeJSON(data, &ds); err != nil {
		return nil, external(p, "get_dataset", "ValueError: dataset %q: %s", name, err.Error())
	}
	specs, _ := ds["entries"].(map[string]any)
	ret := make(map[string][]map[string]any, len(specs))
	for spec, v := range specs {
		l, _ := v.([]any)
		for _, e := range l {
			if m, ok := e.(map[string]any); ok {
				ret[spec] = append(ret[spec], m)
			}
		}
	}
	return ret, nil
}

//listDatasets returns the names of the datasets in the archive.
func (p *portalClient) listDatasets() ([]any, error) {
	dir, ok := p.dir()
	if !ok {
		return nil, external(p, "list_datasets", "ConnectionError: the native runtime can't reach %s", p.address)
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, external(p, "list_datasets", "%s", err.Error())
	}
	ret := make([]any, 0, len(files))
	for _, f := range files {
		name := zio.TrimExt(f.Name())
		if strings.HasSuffix(name, ".json") {
			data, err := zio.ReadFile(filepath.Join(dir, f.Name()))
			if err != nil {
				continue
			}
			ret = append(ret, map[string]any{
				"dataset_name": strings.TrimSuffix(name, ".json"),
				"dataset_type": gjson.GetBytes(data, "type").String(),
			})
		}
	}
	return ret, nil
}

//decodeJSON decodes a JSON object keeping integers as int64, as the runtime canonical values.
func decodeJSON(data []byte, v *map[string]any) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		return err
	}
	canonicalize(*v)
	return nil
}

//canonicalize replaces the json.Numbers in v, in place where possible.
func canonicalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = canonicalize(t[i])
		}
	case map[string]any:
		for k := range t {
			t[k] = canonicalize(t[k])
		}
	}
	return v
}

var portalClientClass = &class{
	name: "PortalClient",
	props: map[string]prop{
		"address": {get: func(b *Backend, self object) (any, error) { return self.(*portalClient).address, nil }},
	},
	methods: map[string]method{
		"list_datasets": func(b *Backend, self object, a *args) (any, error) {
			if err := a.done(); err != nil {
				return nil, err
			}
			return self.(*portalClient).listDatasets()
		},
	},
	new: func(b *Backend, _ object, a *args) (any, error) {
		addr, err := a.str(0, "address", ptr("https://api.qcarchive.molssi.org:443/"))
		if err != nil {
			return nil, err
		}
		for i, k := range []string{"username", "password", "verify", "show_motd", "cache_dir"} {
			a.get(i+1, k)
		}
		if err := a.done(); err != nil {
			return nil, err
		}
		return &portalClient{address: addr}, nil
	},
}

//Statuses of records, as in qcportal.
var recordStatuses = []string{"cancelled", "complete", "deleted", "error", "invalid", "running", "waiting"}

type recordStatus struct {
	name string
}

func (s *recordStatus) class() *class { return recordStatusClass }

var statusMembers = func() map[string]*recordStatus {
	ret := make(map[string]*recordStatus, len(recordStatuses))
	for _, s := range recordStatuses {
		ret[s] = &recordStatus{name: s}
	}
	return ret
}()

//statusArg returns the status given as an enum member or its value.
func statusArg(b *Backend, a *args, i int, name string) (string, error) {
	v, err := a.required(i, name)
	if err != nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		if _, ok := statusMembers[strings.ToLower(s)]; ok {
			return strings.ToLower(s), nil
		}
		return "", external(nil, name, "ValueError: '%s' is not a valid RecordStatusEnum", s)
	}
	o, err := a.obj(b, i, name, false)
	if err != nil {
		return "", err
	}
	st, ok := o.(*recordStatus)
	if !ok {
		return "", a.err("argument '%s': expected RecordStatusEnum, got %s", name, o.class().name)
	}
	return st.name, nil
}

var recordStatusClass = &class{
	name: "RecordStatusEnum",
	props: map[string]prop{
		"name":  {get: func(b *Backend, self object) (any, error) { return self.(*recordStatus).name, nil }},
		"value": {get: func(b *Backend, self object) (any, error) { return self.(*recordStatus).name, nil }},
	},
	methods: map[string]method{
		"__str__": func(b *Backend, self object, a *args) (any, error) {
			return "RecordStatusEnum." + self.(*recordStatus).name, a.done()
		},
	},
}

var recordStatusEnumClass = &class{
	name: "RecordStatusEnum",
	meta: &class{
		name: "RecordStatusEnum",
		dynamic: func(b *Backend, self object, name string) (any, bool, error) {
			s, ok := statusMembers[name]
			if !ok {
				return nil, false, nil
			}
			return s, true, nil
		},
		props: map[string]prop{
			"__members__": {get: func(b *Backend, self object) (any, error) {
				names := make([]string, 0, len(statusMembers))
				for k := range statusMembers {
					names = append(names, k)
				}
				sort.Strings(names)
				ret := make(map[string]any, len(names))
				for _, k := range names {
					ret[k] = statusMembers[k]
				}
				return ret, nil
			}},
		},
		new: func(b *Backend, _ object, a *args) (any, error) {
			s, err := statusArg(b, a, 0, "value")
			if err != nil {
				return nil, err
			}
			return statusMembers[s], a.done()
		},
	},
}
