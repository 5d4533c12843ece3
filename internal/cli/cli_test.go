/*
 * cli_test.go, part of gopenff.
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

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/gopenff/internal/zio"
	"github.com/rmera/gopenff/qcsubmit"
)

const (
	testDir = "../../test"
	archive = "file://../../test/archive"
)

func run(Te *testing.T, args ...string) (code int, out, errOut string) {
	Te.Helper()
	var o, e bytes.Buffer
	code = Execute(append([]string{"--backend", "native", "--log-level", "error"}, args...), &o, &e)
	return code, o.String(), e.String()
}

//recordIDs reads a collection file and returns its record ids, sorted.
func recordIDs(Te *testing.T, path string) []int64 {
	Te.Helper()
	data, err := zio.ReadFile(path)
	require.NoError(Te, err)
	var c struct {
		Entries map[string][]struct {
			RecordID int64 `json:"record_id"`
		} `json:"entries"`
	}
	require.NoError(Te, json.Unmarshal(data, &c))
	var ret []int64
	for _, l := range c.Entries {
		for _, e := range l {
			ret = append(ret, e.RecordID)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func TestDownload(Te *testing.T) {
	out := filepath.Join(Te.TempDir(), "opt.json.gz")
	code, stdout, stderr := run(Te, "--address", archive, "download", "-k", "opt", "-d", "opt-set", "-o", out)
	require.Equal(Te, 0, code, stderr)
	assert.Contains(Te, stdout, out+": ")
	assert.NotEmpty(Te, recordIDs(Te, out))

	code, _, stderr = run(Te, "--address", archive, "download", "-d", "no-such-set", "-o", out)
	assert.Equal(Te, 1, code)
	assert.Contains(Te, stderr, "gopenff download:")

	code, _, stderr = run(Te, "download", "-d", "opt-set")
	assert.Equal(Te, 1, code)
	assert.Contains(Te, stderr, "out")
}

func TestDatasets(Te *testing.T) {
	code, stdout, stderr := run(Te, "--address", archive, "datasets")
	require.Equal(Te, 0, code, stderr)
	assert.Contains(Te, stdout, "NAME")
	assert.Contains(Te, stdout, "opt-set")
	assert.Contains(Te, stdout, "td-set")
}

func TestFilter(Te *testing.T) {
	dir := Te.TempDir()
	out := filepath.Join(dir, "filtered.json.zst")
	prov := filepath.Join(dir, "provenance.json")
	chart := filepath.Join(dir, "filters.png")
	code, stdout, stderr := run(Te, "filter", "--in", filepath.Join(testDir, "opt-collection.json"), "--out", out,
		"--remove-records", "104,105", "--provenance", prov, "--plot", chart)
	require.Equal(Te, 0, code, stderr)
	assert.Equal(Te, []int64{101, 103, 106}, recordIDs(Te, out))
	assert.Contains(Te, stdout, "ConformerRMSDFilter")
	assert.Contains(Te, stdout, out+": 3 entries")

	data, err := os.ReadFile(prov)
	require.NoError(Te, err)
	var p qcsubmit.Provenance
	require.NoError(Te, json.Unmarshal(data, &p))
	require.Len(Te, p.Steps, 6)
	assert.Equal(Te, "RecordIDFilter", p.Steps[0].Name)
	assert.Equal(Te, []int{2, 1, 0, 1, 0, 0}, p.Removed())
	info, err := os.Stat(chart)
	require.NoError(Te, err)
	assert.NotZero(Te, info.Size())

	code, _, stderr = run(Te, "filter", "--in", filepath.Join(testDir, "opt-collection.json"), "--out", out, "--status", "error")
	require.Equal(Te, 0, code, stderr)
	assert.Equal(Te, []int64{102}, recordIDs(Te, out))
}

func TestFilterTorsionDrives(Te *testing.T) {
	out := filepath.Join(Te.TempDir(), "td.json")
	code, _, stderr := run(Te, "filter", "-k", "td", "--in", filepath.Join(testDir, "td-collection.json"), "--out", out)
	require.Equal(Te, 0, code, stderr)
	assert.Equal(Te, []int64{201}, recordIDs(Te, out))
}

func TestFilterScript(Te *testing.T) {
	dir := Te.TempDir()
	script := filepath.Join(dir, "odd.star")
	require.NoError(Te, os.WriteFile(script, []byte("def keep(entry):\n    return entry.record_id % 2 == 1\n"), 0o644))
	out := filepath.Join(dir, "odd.json")
	code, _, stderr := run(Te, "filter", "--in", filepath.Join(testDir, "opt-collection.json"), "--out", out,
		"--max-conformers", "0", "--connectivity-tolerance", "0", "--stereo=false", "--iodine", "--script", script)
	require.Equal(Te, 0, code, stderr)
	assert.Equal(Te, []int64{101, 103, 105, 107}, recordIDs(Te, out))
}

func TestFilterErrors(Te *testing.T) {
	dir := Te.TempDir()
	in := filepath.Join(testDir, "opt-collection.json")
	out := filepath.Join(dir, "out.json")
	for name, args := range map[string][]string{
		"status":       {"--status", "finished"},
		"kind":         {"-k", "protein"},
		"extra filter": {"--extra-filter", "NoModule"},
		"unknown host": {"--extra-filter", "nowhere.filters:Filter"},
		"script":       {"--script", filepath.Join(dir, "missing.star")},
	} {
		code, _, stderr := run(Te, append([]string{"filter", "--in", in, "--out", out}, args...)...)
		assert.Equal(Te, 1, code, name)
		assert.NotEmpty(Te, stderr, name)
	}
	_, err := os.Stat(out)
	assert.True(Te, os.IsNotExist(err), "nothing is written on errors")
	code, _, _ := run(Te, "filter", "-k", "td", "--in", in, "--out", out)
	assert.Equal(Te, 1, code, "an optimization collection is not a torsion drive one")
}

func TestMerge(Te *testing.T) {
	out := filepath.Join(Te.TempDir(), "merged.offxml")
	code, stdout, stderr := run(Te, "merge", "--base", filepath.Join(testDir, "ff.offxml"), "--from", filepath.Join(testDir, "ff2.offxml"), "-o", out)
	require.Equal(Te, 0, code, stderr)
	assert.Equal(Te, out+": 9 ProperTorsions parameters\n", stdout)
	data, err := os.ReadFile(out)
	require.NoError(Te, err)
	assert.Contains(Te, string(data), `id="t10"`)

	code, _, stderr = run(Te, "merge", "--base", filepath.Join(testDir, "ff.offxml"), "--from", filepath.Join(testDir, "ff2.offxml"), "--handler", "Impropers", "-o", out)
	assert.Equal(Te, 1, code)
	assert.Contains(Te, stderr, "gopenff merge:")
}

func TestForceFields(Te *testing.T) {
	cfg := filepath.Join(Te.TempDir(), "gopenff.yaml")
	require.NoError(Te, os.WriteFile(cfg, []byte("runtime:\n  backend: native\n  search_paths: [../../test]\n"), 0o644))
	var out, errOut bytes.Buffer
	code := Execute([]string{"-c", cfg, "forcefields"}, &out, &errOut)
	require.Equal(Te, 0, code, errOut.String())
	assert.Contains(Te, out.String(), "ff.offxml\n")
	assert.Contains(Te, out.String(), "ff2.offxml\n")

	Te.Setenv("GOPENFF_RUNTIME_SEARCH_PATHS", testDir)
	code, stdout, stderr := run(Te, "forcefields")
	require.Equal(Te, 0, code, stderr)
	assert.Contains(Te, stdout, "ff2.offxml")
}

func TestStartupError(Te *testing.T) {
	Te.Setenv("GOPENFF_RUNTIME_PYTHON", filepath.Join(Te.TempDir(), "no-python"))
	var out, errOut bytes.Buffer
	code := Execute([]string{"--backend", "python", "--log-level", "fatal", "forcefields"}, &out, &errOut)
	assert.Equal(Te, 1, code)
	assert.Contains(Te, errOut.String(), "gopenff forcefields:")

	code = Execute([]string{"--backend", "perl", "forcefields"}, &out, &errOut)
	assert.Equal(Te, 1, code)
}
