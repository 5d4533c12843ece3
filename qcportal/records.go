/*
 * records.go, part of gopenff.
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
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/rmera/gopenff/foreign"
)

//RecordStatus is the state of a computation in a QCFractal server.
type RecordStatus string

const (
	Cancelled RecordStatus = "cancelled"
	Complete  RecordStatus = "complete"
	Deleted   RecordStatus = "deleted"
	Error     RecordStatus = "error"
	Invalid   RecordStatus = "invalid"
	Running   RecordStatus = "running"
	Waiting   RecordStatus = "waiting"
)

//RecordStatuses contains all the valid statuses, sorted.
var RecordStatuses = []RecordStatus{Cancelled, Complete, Deleted, Error, Invalid, Running, Waiting}

//ParseRecordStatus returns the status named s. Case is ignored.
func ParseRecordStatus(s string) (RecordStatus, error) {
	st := RecordStatus(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(RecordStatuses, st) {
		return "", foreign.Errorf(foreign.KindConversion, "RecordStatusEnum", "", "'%s' is not a valid record status", s)
	}
	return st, nil
}

func (S RecordStatus) String() string {
	return string(S)
}

//Set and Type make RecordStatus a command line flag value.
func (S *RecordStatus) Set(s string) error {
	st, err := ParseRecordStatus(s)
	if err != nil {
		return err
	}
	*S = st
	return nil
}

func (S *RecordStatus) Type() string {
	return "status"
}

//MarshalForeign returns the member of RecordStatusEnum for S.
func (S RecordStatus) MarshalForeign(ip *foreign.Interpreter) (any, error) {
	if !lo.Contains(RecordStatuses, S) {
		return nil, foreign.Errorf(foreign.KindConversion, "RecordStatusEnum", "", "'%s' is not a valid record status", string(S))
	}
	enum, err := ip.Import(module+".record_models", "RecordStatusEnum")
	if err != nil {
		return nil, err
	}
	defer enum.Release()
	return foreign.GetAttr[*foreign.Handle](enum, string(S))
}

//RecordStatusFromHandle returns the status held in h, a RecordStatusEnum member.
func RecordStatusFromHandle(h *foreign.Handle) (RecordStatus, error) {
	v, err := foreign.GetAttr[string](h, "value")
	if err != nil {
		return "", err
	}
	return ParseRecordStatus(v)
}

//TorsiondriveKeywords are the settings of a torsion drive.
type TorsiondriveKeywords struct {
	Dihedrals            [][4]int `foreign:"dihedrals"`
	GridSpacing          []int    `foreign:"grid_spacing"`
	DihedralRanges       [][2]int `foreign:"dihedral_ranges"`
	EnergyDecreaseThresh *float64 `foreign:"energy_decrease_thresh"`
	EnergyUpperLimit     *float64 `foreign:"energy_upper_limit"`
}

type TorsiondriveSpecification struct {
	Program  string               `foreign:"program"`
	Keywords TorsiondriveKeywords `foreign:"keywords"`
}

//TorsiondriveRecord is a torsion drive computation. The geometries are flat,
//in Bohr, with 3 values per atom.
type TorsiondriveRecord struct {
	ID            int64                     `foreign:"id"`
	Status        RecordStatus              `foreign:"status"`
	Specification TorsiondriveSpecification `foreign:"specification"`
	Symbols       []string                  `foreign:"symbols"`
	Connectivity  [][]int                   `foreign:"connectivity"`
	FinalEnergies map[string]float64        `foreign:"final_energies"`
	Geometries    [][]float64               `foreign:"geometries"`
}

//TorsiondriveRecordFromDict builds the record from the dictionary d.
func TorsiondriveRecordFromDict(ip *foreign.Interpreter, d map[string]any) (*TorsiondriveRecord, error) {
	return foreign.Convert[*TorsiondriveRecord](ip, d)
}

//TorsiondriveRecordFromHandle reads the record held in h. h is not released.
func TorsiondriveRecordFromHandle(h *foreign.Handle) (*TorsiondriveRecord, error) {
	d, err := foreign.Call[map[string]any](h, "dict")
	if err != nil {
		return nil, err
	}
	return TorsiondriveRecordFromDict(h.Interpreter(), d)
}

//GridPoint is one point of a torsion drive scan.
type GridPoint struct {
	Angles []int
	Energy float64
}

//Scan returns the final energies of the record, sorted by angles. The keys of the
//final energies are like "[-90]" or "[90, 180]".
func (T *TorsiondriveRecord) Scan() ([]GridPoint, error) {
	ret := make([]GridPoint, 0, len(T.FinalEnergies))
	for k, e := range T.FinalEnergies {
		fields := strings.Split(strings.Trim(k, "[] "), ",")
		angles := make([]int, 0, len(fields))
		for _, f := range fields {
			a, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, foreign.Errorf(foreign.KindConversion, "TorsiondriveRecord", "final_energies", "bad grid point %q", k)
			}
			angles = append(angles, a)
		}
		ret = append(ret, GridPoint{Angles: angles, Energy: e})
	}
	sort.Slice(ret, func(i, j int) bool {
		a, b := ret[i].Angles, ret[j].Angles
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return ret, nil
}
