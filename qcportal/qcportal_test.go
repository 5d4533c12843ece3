/*
 * qcportal_test.go, part of gopenff.
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

package qcportal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/foreign/foreigntest"
	"github.com/rmera/gopenff/foreign/native"
)

const archive = "file://../test/archive"

func newInterp(Te *testing.T) *foreign.Interpreter {
	ip := foreign.NewInterpreter(native.New(native.Options{}))
	Te.Cleanup(func() { ip.Close() })
	return ip
}

func TestPortalClient(Te *testing.T) {
	ip := newInterp(Te)
	c, err := NewPortalClient(ip, archive)
	require.NoError(Te, err)
	defer c.Release()
	addr, err := c.Address()
	require.NoError(Te, err)
	assert.Equal(Te, archive, addr)
	ds, err := c.ListDatasets()
	require.NoError(Te, err)
	assert.ElementsMatch(Te, []DatasetInfo{
		{Name: "opt-set", Type: "optimization"},
		{Name: "opt-set-2", Type: "optimization"},
		{Name: "td-set", Type: "torsiondrive"},
	}, ds)

	remote, err := NewPortalClient(ip, "")
	require.NoError(Te, err)
	defer remote.Release()
	addr, err = remote.Address()
	require.NoError(Te, err)
	assert.Equal(Te, DefaultAddress, addr)
	_, err = remote.ListDatasets()
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
}

func TestRecordStatus(Te *testing.T) {
	for _, s := range []string{"complete", "Complete", " ERROR "} {
		_, err := ParseRecordStatus(s)
		assert.NoError(Te, err, s)
	}
	_, err := ParseRecordStatus("done")
	assert.True(Te, errors.Is(err, foreign.ErrConversion))
	var st RecordStatus
	require.NoError(Te, st.Set("Waiting"))
	assert.Equal(Te, Waiting, st)
	assert.Equal(Te, "waiting", st.String())

	ip := newInterp(Te)
	for _, s := range RecordStatuses {
		h, err := s.MarshalForeign(ip)
		require.NoError(Te, err)
		back, err := RecordStatusFromHandle(h.(*foreign.Handle))
		require.NoError(Te, err)
		assert.Equal(Te, s, back)
		require.NoError(Te, h.(*foreign.Handle).Release())
	}
	_, err = RecordStatus("done").MarshalForeign(ip)
	assert.True(Te, errors.Is(err, foreign.ErrConversion))
}

//The status is sent as the enumeration member, and the member is released after the call.
func TestStatusArgument(Te *testing.T) {
	b := foreigntest.New()
	ip := foreign.NewInterpreter(b)
	b.ReturnObject(foreign.OpGetAttr, "complete", "RecordStatusEnum")
	f, err := foreign.ImportCall[*foreign.Handle](ip, "openff.qcsubmit.results.filters", "RecordStatusFilter", foreign.Kwargs{"status": Complete})
	require.NoError(Te, err)
	c, _ := b.Last(foreign.OpCall)
	member, ok := c.Kwargs["status"].(foreign.Ref)
	require.True(Te, ok)
	assert.Equal(Te, "RecordStatusEnum", member.Class)
	assert.Contains(Te, b.Released(), member)
	require.NoError(Te, f.Release())
	assert.Equal(Te, 0, b.Live())
}

func TestTorsiondriveRecord(Te *testing.T) {
	ip := newInterp(Te)
	rec, err := TorsiondriveRecordFromDict(ip, map[string]any{
		"id":     int64(201),
		"status": "complete",
		"specification": map[string]any{
			"program": "torsiondrive",
			"keywords": map[string]any{
				"dihedrals":    []any{[]any{int64(2), int64(0), int64(1), int64(3)}},
				"grid_spacing": []any{int64(90)},
			},
		},
		"final_energies": map[string]any{"[180]": -150.79, "[90]": -150.78, "[-90]": -150.7},
		"extra":          "ignored",
	})
	require.NoError(Te, err)
	assert.Equal(Te, int64(201), rec.ID)
	assert.Equal(Te, Complete, rec.Status)
	assert.Equal(Te, [][4]int{{2, 0, 1, 3}}, rec.Specification.Keywords.Dihedrals)
	assert.Equal(Te, []int{90}, rec.Specification.Keywords.GridSpacing)
	assert.Nil(Te, rec.Specification.Keywords.EnergyUpperLimit)
	scan, err := rec.Scan()
	require.NoError(Te, err)
	require.Len(Te, scan, 3)
	assert.Equal(Te, []int{-90}, scan[0].Angles)
	assert.Equal(Te, -150.79, scan[2].Energy)

	_, err = TorsiondriveRecordFromDict(ip, map[string]any{"specification": map[string]any{"keywords": map[string]any{"dihedrals": []any{[]any{int64(1), int64(2)}}}}})
	assert.True(Te, errors.Is(err, foreign.ErrConversion), "a dihedral has 4 atoms")

	bad := &TorsiondriveRecord{FinalEnergies: map[string]float64{"[a]": 1}}
	_, err = bad.Scan()
	assert.True(Te, errors.Is(err, foreign.ErrConversion))
}

func TestTorsiondriveRecordFromHandle(Te *testing.T) {
	b := foreigntest.New()
	ip := foreign.NewInterpreter(b)
	b.Return(foreign.OpCall, "dict", map[string]any{
		"id":             int64(7),
		"status":         "running",
		"final_energies": map[string]any{},
	})
	h, err := foreign.ImportCall[*foreign.Handle](ip, "qcportal.torsiondrive", "TorsiondriveRecord", nil)
	require.NoError(Te, err)
	defer h.Release()
	rec, err := TorsiondriveRecordFromHandle(h)
	require.NoError(Te, err)
	assert.Equal(Te, int64(7), rec.ID)
	assert.Equal(Te, Running, rec.Status)
	assert.False(Te, h.Released())
}
