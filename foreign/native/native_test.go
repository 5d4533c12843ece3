/*
 * native_test.go, part of gopenff.
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

package native_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/foreign/native"
)

const (
	testDir = "../../test"
	archive = "file://../../test/archive"
	results = "openff.qcsubmit.results"
	filters = "openff.qcsubmit.results.filters"
)

func newInterp(Te *testing.T) (*native.Backend, *foreign.Interpreter) {
	b := native.New(native.Options{SearchPaths: []string{testDir}})
	ip := foreign.NewInterpreter(b)
	Te.Cleanup(func() { ip.Close() })
	return b, ip
}

func newObj(Te *testing.T, ip *foreign.Interpreter, module, class string, kw foreign.Kwargs, args ...any) *foreign.Handle {
	Te.Helper()
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, class, kw, args...)
	require.NoError(Te, err)
	Te.Cleanup(func() { h.Release() })
	return h
}

func water(Te *testing.T, ip *foreign.Interpreter) *foreign.Handle {
	mol := newObj(Te, ip, "openff.toolkit", "Molecule", nil)
	for i, z := range []int{8, 1, 1} {
		idx, err := foreign.Call[int](mol, "add_atom", z, 0, false)
		require.NoError(Te, err)
		assert.Equal(Te, i, idx)
	}
	for i, pair := range [][2]int{{0, 1}, {0, 2}} {
		idx, err := foreign.CallKw[int](mol, "add_bond", foreign.Kwargs{"fractional_bond_order": 1.0}, pair[0], pair[1], 1, false)
		require.NoError(Te, err)
		assert.Equal(Te, i, idx)
	}
	return mol
}

func TestMolecule(Te *testing.T) {
	b, ip := newInterp(Te)
	mol := water(Te, ip)
	n, err := foreign.GetAttr[int](mol, "n_atoms")
	require.NoError(Te, err)
	assert.Equal(Te, 3, n)
	formula, err := foreign.GetAttr[string](mol, "hill_formula")
	require.NoError(Te, err)
	assert.Equal(Te, "H2O", formula)

	//bad endpoints, self bonds and repeated bonds are all errors of the runtime
	for _, pair := range [][2]int{{0, 7}, {1, 1}, {1, 0}} {
		_, err = foreign.Call[int](mol, "add_bond", pair[0], pair[1], 1, false)
		assert.True(Te, errors.Is(err, foreign.ErrExternal), "bond %v: %v", pair, err)
	}
	_, err = foreign.Call[int](mol, "add_atom", "O", 0, false)
	assert.True(Te, errors.Is(err, foreign.ErrConversion))

	require.NoError(Te, foreign.SetAttr(mol, "name", "water"))
	name, err := foreign.GetAttr[string](mol, "name")
	require.NoError(Te, err)
	assert.Equal(Te, "water", name)

	q := newObj(Te, ip, "openff.units", "Quantity", nil, []float64{-0.8, 0.4, 0.4}, "elementary_charge")
	require.NoError(Te, foreign.SetAttr(mol, "partial_charges", q))
	charges, err := foreign.GetAttr[*foreign.Handle](mol, "partial_charges")
	require.NoError(Te, err)
	mag, err := foreign.GetAttr[[]float64](charges, "magnitude")
	require.NoError(Te, err)
	assert.Equal(Te, []float64{-0.8, 0.4, 0.4}, mag)
	require.NoError(Te, charges.Release())

	short := newObj(Te, ip, "openff.units", "Quantity", nil, []float64{-0.8, 0.4}, "elementary_charge")
	err = foreign.SetAttr(mol, "partial_charges", short)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	nm := newObj(Te, ip, "openff.units", "Quantity", nil, []float64{1, 2, 3}, "nanometer")
	err = foreign.SetAttr(mol, "partial_charges", nm)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))

	_, err = foreign.GetAttr[int](mol, "n_residues")
	assert.True(Te, errors.Is(err, foreign.ErrNoSuchAttribute))
	_, err = foreign.Call[string](mol, "to_smiles")
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	_, err = foreign.Call[string](mol, "to_smyles")
	assert.True(Te, errors.Is(err, foreign.ErrNoSuchMethod))

	other := water(Te, ip)
	iso, err := foreign.Call[bool](mol, "is_isomorphic_with", other)
	require.NoError(Te, err)
	assert.True(Te, iso)
	_, err = foreign.Call[int](other, "add_atom", 1, 0, false)
	require.NoError(Te, err)
	iso, err = foreign.Call[bool](mol, "is_isomorphic_with", other)
	require.NoError(Te, err)
	assert.False(Te, iso)

	before := b.Live()
	d, err := foreign.Call[map[string]any](mol, "to_dict")
	require.NoError(Te, err)
	assert.Equal(Te, "water", d["name"])
	assert.Equal(Te, before, b.Live(), "plain values hold no objects")
}

func TestTopology(Te *testing.T) {
	_, ip := newInterp(Te)
	a, b := water(Te, ip), water(Te, ip)
	top, err := foreign.ImportCall[*foreign.Handle](ip, "openff.toolkit", "Topology", nil)
	require.NoError(Te, err)
	defer top.Release()
	cls, err := ip.Import("openff.toolkit", "Topology")
	require.NoError(Te, err)
	defer cls.Release()
	top2, err := foreign.Call[*foreign.Handle](cls, "from_molecules", []*foreign.Handle{a, b})
	require.NoError(Te, err)
	defer top2.Release()
	for _, c := range []struct {
		prop string
		want int
	}{{"n_molecules", 2}, {"n_unique_molecules", 1}, {"n_atoms", 6}, {"n_bonds", 4}} {
		n, err := foreign.GetAttr[int](top2, c.prop)
		require.NoError(Te, err)
		assert.Equal(Te, c.want, n, c.prop)
	}
	//the topology holds copies
	_, err = foreign.Call[int](a, "add_atom", 1, 0, false)
	require.NoError(Te, err)
	n, err := foreign.GetAttr[int](top2, "n_atoms")
	require.NoError(Te, err)
	assert.Equal(Te, 6, n)

	_, err = foreign.Call[any](top, "add_molecule", a)
	require.NoError(Te, err)
	mols, err := foreign.GetAttr[[]*foreign.Handle](top, "molecules")
	require.NoError(Te, err)
	require.Len(Te, mols, 1)
	n, err = foreign.GetAttr[int](mols[0], "n_atoms")
	require.NoError(Te, err)
	assert.Equal(Te, 4, n)
	require.NoError(Te, foreign.ReleaseAll(mols...))
}

func TestUnits(Te *testing.T) {
	_, ip := newInterp(Te)
	unit, err := ip.Import("openff.units", "unit")
	require.NoError(Te, err)
	defer unit.Release()
	nm, err := foreign.GetAttr[*foreign.Handle](unit, "nanometer")
	require.NoError(Te, err)
	defer nm.Release()
	s, err := foreign.Call[string](nm, "__str__")
	require.NoError(Te, err)
	assert.Equal(Te, "nanometer", s)
	_, err = foreign.GetAttr[*foreign.Handle](unit, "parsec")
	assert.True(Te, errors.Is(err, foreign.ErrNoSuchAttribute))

	q := newObj(Te, ip, "openff.units", "Quantity", nil, 1.5, nm)
	ang, err := foreign.Call[float64](q, "m_as", "angstrom")
	require.NoError(Te, err)
	assert.InDelta(Te, 15.0, ang, 1e-9)
	bohr, err := foreign.Call[*foreign.Handle](q, "to", "bohr")
	require.NoError(Te, err)
	defer bohr.Release()
	m, err := foreign.GetAttr[float64](bohr, "magnitude")
	require.NoError(Te, err)
	assert.InDelta(Te, 28.3459, m, 1e-4)
	_, err = foreign.Call[float64](q, "m_as", "degree")
	assert.True(Te, errors.Is(err, foreign.ErrExternal))

	energy := newObj(Te, ip, "openff.units", "Quantity", nil, "1.0 * kilocalorie / mole")
	kj, err := foreign.Call[float64](energy, "m_as", "kilojoule_per_mole")
	require.NoError(Te, err)
	assert.InDelta(Te, 4.184, kj, 1e-9)
}

func TestForceFieldRoundTrip(Te *testing.T) {
	_, ip := newInterp(Te)
	want, err := os.ReadFile(filepath.Join(testDir, "ff.offxml"))
	require.NoError(Te, err)
	ff := newObj(Te, ip, "openff.toolkit", "ForceField", nil, "ff.offxml")
	got, err := foreign.Call[string](ff, "to_string")
	require.NoError(Te, err)
	assert.Equal(Te, string(want), got)

	out := filepath.Join(Te.TempDir(), "out.offxml")
	_, err = foreign.Call[any](ff, "to_file", out)
	require.NoError(Te, err)
	written, err := os.ReadFile(out)
	require.NoError(Te, err)
	assert.Equal(Te, want, written)
	_, err = foreign.Call[any](ff, "to_file", filepath.Join(Te.TempDir(), "out.txt"))
	assert.True(Te, errors.Is(err, foreign.ErrExternal))

	author, err := foreign.GetAttr[string](ff, "author")
	require.NoError(Te, err)
	assert.Equal(Te, "The gopenff authors", author)
	tags, err := foreign.GetAttr[[]string](ff, "registered_parameter_handlers")
	require.NoError(Te, err)
	assert.Equal(Te, []string{"Bonds", "Angles", "ProperTorsions", "vdW", "Electrostatics", "ToolkitAM1BCC"}, tags)

	d, err := foreign.Call[map[string]any](ff, "parse_smirnoff_from_source", "ff.offxml")
	require.NoError(Te, err)
	smirnoff := d["SMIRNOFF"].(map[string]any)
	assert.Len(Te, smirnoff["ProperTorsions"].(map[string]any)["Proper"], 9)
	assert.Equal(Te, "The gopenff authors", smirnoff["Author"])

	err = foreign.SetAttr(ff, "aromaticity_model", "OEAroModel_Tripos")
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	_, err = foreign.Call[any](ff, "create_openmm_system", nil)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))

	//the second file repeats SMIRKS of the first one
	_, err = foreign.Call[any](ff, "parse_sources", []string{"ff2.offxml"})
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	assert.Contains(Te, err.Error(), "DuplicateParameterError")

	available, err := foreign.ImportCall[[]string](ip, "openff.toolkit", "get_available_force_fields", nil)
	require.NoError(Te, err)
	assert.Subset(Te, available, []string{"ff.offxml", "ff2.offxml"})
}

func TestParameterHandler(Te *testing.T) {
	_, ip := newInterp(Te)
	ff := newObj(Te, ip, "openff.toolkit", "ForceField", nil, "ff.offxml")
	h, err := foreign.Call[*foreign.Handle](ff, "get_parameter_handler", "ProperTorsions")
	require.NoError(Te, err)
	defer h.Release()
	tag, err := foreign.GetAttr[string](h, "TAGNAME")
	require.NoError(Te, err)
	assert.Equal(Te, "ProperTorsions", tag)

	found, err := foreign.Call[[]*foreign.Handle](h, "get_parameter", map[string]any{"id": "t3"})
	require.NoError(Te, err)
	require.Len(Te, found, 1)
	t3 := found[0]
	defer t3.Release()
	smirks, err := foreign.GetAttr[string](t3, "smirks")
	require.NoError(Te, err)
	assert.Equal(Te, "[#1:1]-[#6X4:2]-[#6X4:3]-[#1:4]", smirks)
	ks, err := foreign.GetAttr[[]*foreign.Handle](t3, "k")
	require.NoError(Te, err)
	require.Len(Te, ks, 1)
	k, err := foreign.Call[float64](ks[0], "m_as", "kilocalorie_per_mole")
	require.NoError(Te, err)
	assert.InDelta(Te, 0.15, k, 1e-12)
	require.NoError(Te, foreign.ReleaseAll(ks...))

	require.NoError(Te, foreign.SetAttr(t3, "id", "t3-renamed"))
	none, err := foreign.Call[[]*foreign.Handle](h, "get_parameter", map[string]any{"id": "t3"})
	require.NoError(Te, err)
	assert.Empty(Te, none)

	params, err := foreign.GetAttr[*foreign.Handle](h, "parameters")
	require.NoError(Te, err)
	defer params.Release()
	n, err := foreign.Call[int](params, "__len__")
	require.NoError(Te, err)
	assert.Equal(Te, 9, n)

	//a parameter added to another force field is shared with the original
	ff2 := newObj(Te, ip, "openff.toolkit", "ForceField", nil)
	h2, err := foreign.Call[*foreign.Handle](ff2, "get_parameter_handler", "ProperTorsions")
	require.NoError(Te, err)
	defer h2.Release()
	_, err = foreign.CallKw[any](h2, "add_parameter", foreign.Kwargs{"parameter": t3})
	require.NoError(Te, err)
	_, err = foreign.CallKw[any](h2, "add_parameter", foreign.Kwargs{"parameter": t3})
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	_, err = foreign.CallKw[any](h2, "add_parameter", foreign.Kwargs{"parameter_kwargs": map[string]any{
		"smirks":      "[*:1]-[#7X3:2]-[#7X3:3]-[*:4]",
		"id":          "t100",
		"periodicity": []int{1, 2},
		"phase":       []string{"0.0 * degree", "180.0 * degree"},
		"k":           []string{"0.1 * kilocalorie_per_mole", "0.2 * kilocalorie_per_mole"},
		"idivf":       []float64{1, 1},
	}, "before": "t3-renamed"})
	require.NoError(Te, err)
	ids := []string{}
	all, err := foreign.Call[[]*foreign.Handle](params, "copy")
	require.NoError(Te, err)
	assert.Len(Te, all, 9)
	require.NoError(Te, foreign.ReleaseAll(all...))
	p2, err := foreign.GetAttr[*foreign.Handle](h2, "parameters")
	require.NoError(Te, err)
	defer p2.Release()
	copied, err := foreign.Call[[]*foreign.Handle](p2, "copy")
	require.NoError(Te, err)
	for _, p := range copied {
		id, err := foreign.GetAttr[string](p, "id")
		require.NoError(Te, err)
		ids = append(ids, id)
	}
	require.NoError(Te, foreign.SetAttr(copied[1], "id", "t3-shared"))
	id, err := foreign.GetAttr[string](t3, "id")
	require.NoError(Te, err)
	assert.Equal(Te, "t3-shared", id)
	require.NoError(Te, foreign.ReleaseAll(copied...))
	assert.Equal(Te, []string{"t100", "t3-renamed"}, ids)

	//unless it is copied first
	dup, err := foreign.ImportCall[*foreign.Handle](ip, "copy", "deepcopy", nil, t3)
	require.NoError(Te, err)
	require.NoError(Te, foreign.SetAttr(dup, "id", "t3-copy"))
	id, err = foreign.GetAttr[string](t3, "id")
	require.NoError(Te, err)
	assert.Equal(Te, "t3-shared", id)
	require.NoError(Te, dup.Release())
	_, err = foreign.ImportCall[any](ip, "copy", "deepcopy", nil, ff)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	same, err := foreign.ImportCall[[]any](ip, "copy", "deepcopy", nil, []any{int64(1), "a"})
	require.NoError(Te, err)
	assert.Equal(Te, []any{int64(1), "a"}, same)

	_, err = foreign.Call[any](p2, "clear")
	require.NoError(Te, err)
	n, err = foreign.Call[int](p2, "__len__")
	require.NoError(Te, err)
	assert.Equal(Te, 0, n)

	_, err = foreign.Call[*foreign.Handle](ff, "get_parameter_handler", "NoSuchHandler")
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	_, err = foreign.Call[any](ff, "deregister_parameter_handler", "Angles")
	require.NoError(Te, err)
	tags, err := foreign.GetAttr[[]string](ff, "registered_parameter_handlers")
	require.NoError(Te, err)
	assert.NotContains(Te, tags, "Angles")
}

func recordIDs(Te *testing.T, coll *foreign.Handle) []int {
	Te.Helper()
	entries, err := foreign.GetAttr[map[string][]*foreign.Handle](coll, "entries")
	require.NoError(Te, err)
	ids := make([]int, 0)
	for _, l := range entries {
		for _, e := range l {
			id, err := foreign.GetAttr[int](e, "record_id")
			require.NoError(Te, err)
			ids = append(ids, id)
		}
		require.NoError(Te, foreign.ReleaseAll(l...))
	}
	return ids
}

func parseFile(Te *testing.T, ip *foreign.Interpreter, class, name string) *foreign.Handle {
	Te.Helper()
	cls, err := ip.Import(results, class)
	require.NoError(Te, err)
	defer cls.Release()
	coll, err := foreign.Call[*foreign.Handle](cls, "parse_file", filepath.Join(testDir, name))
	require.NoError(Te, err)
	Te.Cleanup(func() { coll.Release() })
	return coll
}

func TestFromServer(Te *testing.T) {
	_, ip := newInterp(Te)
	client := newObj(Te, ip, "qcportal", "PortalClient", nil, archive)
	cls, err := ip.Import(results, "OptimizationResultCollection")
	require.NoError(Te, err)
	defer cls.Release()
	coll, err := foreign.CallKw[*foreign.Handle](cls, "from_server", foreign.Kwargs{
		"client":    client,
		"datasets":  []string{"opt-set", "opt-set-2"},
		"spec_name": "default",
	})
	require.NoError(Te, err)
	defer coll.Release()
	//101 is in both datasets
	n, err := foreign.GetAttr[int](coll, "n_results")
	require.NoError(Te, err)
	assert.Equal(Te, 8, n)
	n, err = foreign.GetAttr[int](coll, "n_molecules")
	require.NoError(Te, err)
	assert.Equal(Te, 4, n)
	entries, err := foreign.GetAttr[map[string]any](coll, "entries")
	require.NoError(Te, err)
	assert.Contains(Te, entries, archive)

	other, err := foreign.CallKw[*foreign.Handle](cls, "from_server", foreign.Kwargs{"client": client, "datasets": "opt-set", "spec_name": "other"})
	require.NoError(Te, err)
	defer other.Release()
	assert.Equal(Te, []int{111}, recordIDs(Te, other))

	_, err = foreign.CallKw[*foreign.Handle](cls, "from_server", foreign.Kwargs{"client": client, "datasets": "opt-set", "spec_name": "nope"})
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	_, err = foreign.CallKw[*foreign.Handle](cls, "from_server", foreign.Kwargs{"client": client, "datasets": "td-set"})
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	remote := newObj(Te, ip, "qcportal", "PortalClient", nil)
	_, err = foreign.CallKw[*foreign.Handle](cls, "from_server", foreign.Kwargs{"client": remote, "datasets": "opt-set"})
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	assert.Contains(Te, err.Error(), "ConnectionError")

	td, err := ip.Import(results, "TorsionDriveResultCollection")
	require.NoError(Te, err)
	defer td.Release()
	tdc, err := foreign.CallKw[*foreign.Handle](td, "from_server", foreign.Kwargs{"client": client, "datasets": []string{"td-set"}})
	require.NoError(Te, err)
	defer tdc.Release()
	assert.Equal(Te, []int{201, 202}, recordIDs(Te, tdc))
}

func TestCollectionJSON(Te *testing.T) {
	_, ip := newInterp(Te)
	for _, c := range []struct{ class, file string }{
		{"OptimizationResultCollection", "opt-collection.json"},
		{"TorsionDriveResultCollection", "td-collection.json"},
	} {
		want, err := os.ReadFile(filepath.Join(testDir, c.file))
		require.NoError(Te, err)
		coll := parseFile(Te, ip, c.class, c.file)
		got, err := foreign.CallKw[string](coll, "json", foreign.Kwargs{"indent": 2})
		require.NoError(Te, err)
		assert.Equal(Te, string(want), got, c.file)
	}
	cls, err := ip.Import(results, "TorsionDriveResultCollection")
	require.NoError(Te, err)
	defer cls.Release()
	_, err = foreign.Call[*foreign.Handle](cls, "parse_file", filepath.Join(testDir, "opt-collection.json"))
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	assert.Contains(Te, err.Error(), "ValidationError")
}

func TestSetEntries(Te *testing.T) {
	_, ip := newInterp(Te)
	coll := parseFile(Te, ip, "OptimizationResultCollection", "opt-collection.json")
	entries, err := foreign.GetAttr[map[string][]*foreign.Handle](coll, "entries")
	require.NoError(Te, err)
	kept := make(map[string][]*foreign.Handle)
	for k, l := range entries {
		for _, e := range l {
			id, err := foreign.GetAttr[int](e, "record_id")
			require.NoError(Te, err)
			if id != 104 && id != 105 {
				kept[k] = append(kept[k], e)
			}
		}
	}
	require.NoError(Te, foreign.SetAttr(coll, "entries", kept))
	for _, l := range entries {
		require.NoError(Te, foreign.ReleaseAll(l...))
	}
	assert.Equal(Te, []int{102, 101, 103, 106, 107}, recordIDs(Te, coll))
}

func newFilter(Te *testing.T, ip *foreign.Interpreter, class string, kw foreign.Kwargs) *foreign.Handle {
	Te.Helper()
	return newObj(Te, ip, filters, class, kw)
}

func TestFilters(Te *testing.T) {
	_, ip := newInterp(Te)
	coll := parseFile(Te, ip, "OptimizationResultCollection", "opt-collection.json")
	complete, err := ip.Import("qcportal.record_models", "RecordStatusEnum")
	require.NoError(Te, err)
	defer complete.Release()
	status, err := foreign.GetAttr[*foreign.Handle](complete, "complete")
	require.NoError(Te, err)
	defer status.Release()
	cases := []struct {
		class string
		kw    foreign.Kwargs
		want  []int
	}{
		{"RecordStatusFilter", foreign.Kwargs{"status": status}, []int{101, 103, 104, 105, 106, 107}},
		{"RecordStatusFilter", foreign.Kwargs{"status": "error"}, []int{102}},
		{"ConnectivityFilter", foreign.Kwargs{"tolerance": 1.2}, []int{102, 101, 103, 105, 106, 107}},
		{"ElementFilter", foreign.Kwargs{"allowed_elements": []string{"H", "C", "N", "O"}}, []int{102, 101, 104, 105}},
		{"ElementFilter", foreign.Kwargs{"allowed_elements": []any{"H", "O", 17}}, []int{102, 101, 103, 104, 105}},
		{"HydrogenBondFilter", nil, []int{102, 101, 103, 104, 106, 107}},
		{"UnperceivableStereoFilter", nil, []int{102, 101, 103, 104, 105, 106}},
		{"ConformerRMSDFilter", nil, []int{102, 103, 105, 106, 107}},
		{"ConformerRMSDFilter", foreign.Kwargs{"heavy_atoms_only": false}, []int{102, 103, 104, 105, 106, 107}},
		{"ConformerRMSDFilter", foreign.Kwargs{"max_conformers": 1}, []int{102, 103, 105, 106}},
		{"MinimumConformersFilter", foreign.Kwargs{"min_conformers": 2}, []int{102, 101, 104, 106, 107}},
	}
	for _, c := range cases {
		f := newFilter(Te, ip, c.class, c.kw)
		out, err := foreign.Call[*foreign.Handle](coll, "filter", f)
		require.NoError(Te, err, c.class)
		assert.Equal(Te, c.want, recordIDs(Te, out), "%s %v", c.class, c.kw)
		require.NoError(Te, out.Release())
	}
	//the input is never modified
	assert.Len(Te, recordIDs(Te, coll), 7)

	_, err = foreign.ImportCall[*foreign.Handle](ip, filters, "ResultRecordFilter", nil)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	_, err = foreign.ImportCall[*foreign.Handle](ip, filters, "ElementFilter", nil)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	_, err = foreign.ImportCall[*foreign.Handle](ip, filters, "RecordStatusFilter", foreign.Kwargs{"status": "done"})
	assert.True(Te, errors.Is(err, foreign.ErrExternal))

	td := parseFile(Te, ip, "TorsionDriveResultCollection", "td-collection.json")
	_, err = foreign.Call[*foreign.Handle](td, "filter", newFilter(Te, ip, "ConformerRMSDFilter", nil))
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	out, err := foreign.Call[*foreign.Handle](td, "filter", newFilter(Te, ip, "RecordStatusFilter", foreign.Kwargs{"status": "complete"}), newFilter(Te, ip, "ConnectivityFilter", nil))
	require.NoError(Te, err)
	defer out.Release()
	assert.Equal(Te, []int{201}, recordIDs(Te, out))
}

const hydrogen = `{"type": "OptimizationResultCollection", "provenance": {}, "entries": {"local": [
{"type": "optimization", "record_id": 1, "cmiles": "[H:1][H:2]", "inchi_key": "UFHFLCQGNIYNRP-UHFFFAOYSA-N",
 "record": {"status": "complete", "symbols": ["H", "H"], "geometry": [0, 0, 0, 0.74, 0, 0], "connectivity": [[0, 1, 1]]}},
{"type": "optimization", "record_id": 2, "cmiles": "[H:1][H:2]", "inchi_key": "UFHFLCQGNIYNRP-UHFFFAOYSA-N",
 "record": {"status": "complete", "symbols": ["H", "H"], "geometry": [0, 0, 0, 0, 0.74, 0], "connectivity": [[0, 1, 1]]}}]}}`

func TestConformerRMSDHydrogens(Te *testing.T) {
	_, ip := newInterp(Te)
	cls, err := ip.Import(results, "OptimizationResultCollection")
	require.NoError(Te, err)
	defer cls.Release()
	coll, err := foreign.Call[*foreign.Handle](cls, "parse_raw", hydrogen)
	require.NoError(Te, err)
	defer coll.Release()

	_, err = foreign.Call[*foreign.Handle](coll, "filter", newFilter(Te, ip, "ConformerRMSDFilter", nil))
	var ferr *foreign.Error
	require.True(Te, errors.As(err, &ferr))
	assert.Equal(Te, foreign.KindExternal, ferr.Kind)
	assert.Contains(Te, err.Error(), "no heavy atoms")

	//the two conformers are the same molecule, rotated
	out, err := foreign.Call[*foreign.Handle](coll, "filter", newFilter(Te, ip, "ConformerRMSDFilter", foreign.Kwargs{"heavy_atoms_only": false}))
	require.NoError(Te, err)
	defer out.Release()
	assert.Equal(Te, []int{1}, recordIDs(Te, out))
}

func TestFilterOrder(Te *testing.T) {
	_, ip := newInterp(Te)
	coll := parseFile(Te, ip, "OptimizationResultCollection", "opt-collection.json")
	status := newFilter(Te, ip, "RecordStatusFilter", foreign.Kwargs{"status": "complete"})
	rmsd := newFilter(Te, ip, "ConformerRMSDFilter", foreign.Kwargs{"max_conformers": 10})

	sr, err := foreign.Call[*foreign.Handle](coll, "filter", status, rmsd)
	require.NoError(Te, err)
	defer sr.Release()
	rs, err := foreign.Call[*foreign.Handle](coll, "filter", rmsd, status)
	require.NoError(Te, err)
	defer rs.Release()
	//the errored conformer hides the complete one when duplicates are removed first
	assert.Equal(Te, []int{101, 103, 105, 106, 107}, recordIDs(Te, sr))
	assert.Equal(Te, []int{103, 105, 106, 107}, recordIDs(Te, rs))

	prov, err := foreign.GetAttr[map[string]any](sr, "provenance")
	require.NoError(Te, err)
	applied := prov["applied-filters"].(map[string]any)
	assert.Equal(Te, map[string]any{"status": "complete"}, applied["RecordStatusFilter-0"])
	assert.Equal(Te, int64(10), applied["ConformerRMSDFilter-1"].(map[string]any)["max_conformers"])
	prov, err = foreign.GetAttr[map[string]any](coll, "provenance")
	require.NoError(Te, err)
	assert.NotContains(Te, prov, "applied-filters")
}

func TestToRecords(Te *testing.T) {
	_, ip := newInterp(Te)
	coll := parseFile(Te, ip, "TorsionDriveResultCollection", "td-collection.json")
	recs, err := foreign.Call[[][]any](coll, "to_records")
	require.NoError(Te, err)
	require.Len(Te, recs, 2)
	for i, r := range recs {
		rec := r[0].(map[string]any)
		mol := r[1].(*foreign.Handle)
		assert.Equal(Te, int64(201+i), rec["id"])
		n, err := foreign.GetAttr[int](mol, "n_conformers")
		require.NoError(Te, err)
		assert.Equal(Te, 2, n)
		n, err = foreign.GetAttr[int](mol, "n_bonds")
		require.NoError(Te, err)
		assert.Equal(Te, 3, n)
		require.NoError(Te, mol.Release())
	}
}

func TestRelease(Te *testing.T) {
	b, ip := newInterp(Te)
	start := b.Live()
	mol, err := foreign.ImportCall[*foreign.Handle](ip, "openff.toolkit", "Molecule", nil)
	require.NoError(Te, err)
	clone, err := mol.Clone()
	require.NoError(Te, err)
	require.NoError(Te, mol.Release())
	_, err = foreign.GetAttr[int](clone, "n_atoms")
	require.NoError(Te, err)
	require.NoError(Te, clone.Release())
	assert.Equal(Te, start, b.Live())

	_, err = ip.Import("openff.toolkit", "NoSuchClass")
	assert.True(Te, errors.Is(err, foreign.ErrNoSuchAttribute))
	_, err = ip.Import("openff.interchange", "Interchange")
	assert.True(Te, errors.Is(err, foreign.ErrStartup))
}
