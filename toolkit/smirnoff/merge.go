/*
 * merge.go, part of gopenff.
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

package smirnoff

import (
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/rmera/gopenff/foreign"
)

//splitID splits a parameter id like "t10x" into its prefix ("t"), its number (10) and its
//suffix ("x"). ok is false if the id has no number after the prefix.
func splitID(id string) (prefix string, num int, suffix string, ok bool) {
	start := strings.IndexFunc(id, isDigit)
	if start < 0 {
		return id, 0, "", false
	}
	end := start
	for end < len(id) && isDigit(rune(id[end])) {
		end++
	}
	num, err := strconv.Atoi(id[start:end])
	if err != nil {
		return id, 0, "", false
	}
	return id[:start], num, id[end:], true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

//CompareIDs compares two parameter ids, returning -1, 0 or 1. Ids are compared by their
//letter prefix, then by their number, as a number, then by their suffix, shorter first,
//so t2 < t10 < t10x < t10xx < t11. Ids without a number are compared as strings.
func CompareIDs(a, b string) int {
	pa, na, sa, oka := splitID(a)
	pb, nb, sb, okb := splitID(b)
	if !oka || !okb || pa != pb {
		return strings.Compare(a, b)
	}
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	case len(sa) != len(sb):
		if len(sa) < len(sb) {
			return -1
		}
		return 1
	}
	return strings.Compare(sa, sb)
}

//IDs returns the ids of the parameters of h, in order.
func IDs(h *ParameterHandler) ([]string, error) {
	params, err := h.Parameters()
	if err != nil {
		return nil, err
	}
	defer foreign.ReleaseAll(params...)
	return paramIDs(params)
}

//AppendParameters adds copies of the incoming parameters at the end of h, in order.
//An incoming parameter whose id is already used in h is renamed, appending "x" to its
//id until it is unique. The incoming parameters are not modified. AppendParameters returns
//the ids of h after the additions.
func AppendParameters(h *ParameterHandler, incoming []*Parameter) ([]string, error) {
	ids, err := IDs(h)
	if err != nil {
		return nil, err
	}
	used := lo.SliceToMap(ids, func(id string) (string, bool) { return id, true })
	for _, p := range incoming {
		id, err := p.ID()
		if err != nil {
			return nil, err
		}
		newID := id
		for used[newID] {
			newID += "x"
		}
		c, err := p.Copy()
		if err != nil {
			return nil, err
		}
		if newID != id {
			err = c.SetID(newID)
		}
		//the ids tell apart parameters with the same SMIRKS
		if err == nil {
			err = h.add(c)
		}
		if err = multierr.Append(err, c.Release()); err != nil {
			return nil, err
		}
		used[newID] = true
	}
	return IDs(h)
}

type byID struct {
	id string
	p  *Parameter
}

//PortParameters ports the parameters of src into dst, which keeps its section attributes.
//Parameters with ids present in both handlers take the version of src, parameters only in
//src are added (with AppendParameters' renaming rules), and parameters only in dst are removed.
//Parameters may share a SMIRKS. The final parameters are sorted with CompareIDs. PortParameters
//returns the final ids. If it fails, dst keeps its original parameters.
func PortParameters(dst, src *ParameterHandler) (ret []string, err error) {
	dparams, err := dst.Parameters()
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, foreign.ReleaseAll(dparams...)) }()
	sparams, err := src.Parameters()
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, foreign.ReleaseAll(sparams...)) }()
	dids, err := paramIDs(dparams)
	if err != nil {
		return nil, err
	}
	sids, err := paramIDs(sparams)
	if err != nil {
		return nil, err
	}
	common := lo.Intersect(dids, sids)
	kept := make([]*Parameter, 0, len(sparams))
	added := make([]*Parameter, 0)
	for i, p := range sparams {
		if lo.Contains(common, sids[i]) {
			kept = append(kept, p)
		} else {
			added = append(added, p)
		}
	}
	if err := dst.ClearParameters(); err != nil {
		return nil, err
	}
	ret, err = port(dst, kept, added)
	if err != nil {
		//dst gets back the parameters it had
		rerr := dst.ClearParameters()
		for _, p := range dparams {
			if rerr != nil {
				break
			}
			rerr = dst.add(p)
		}
		return nil, multierr.Append(err, rerr)
	}
	return ret, nil
}

//port adds copies of kept to the empty dst, appends added and sorts the result.
func port(dst *ParameterHandler, kept, added []*Parameter) ([]string, error) {
	for _, p := range kept {
		c, err := p.Copy()
		if err != nil {
			return nil, err
		}
		if err = multierr.Append(dst.add(c), c.Release()); err != nil {
			return nil, err
		}
	}
	if _, err := AppendParameters(dst, added); err != nil {
		return nil, err
	}
	return sortParameters(dst)
}

func paramIDs(params []*Parameter) ([]string, error) {
	ret := make([]string, len(params))
	for i, p := range params {
		id, err := p.ID()
		if err != nil {
			return nil, err
		}
		ret[i] = id
	}
	return ret, nil
}

//sortParameters sorts the parameters of h by id, and returns the sorted ids.
func sortParameters(h *ParameterHandler) (ret []string, err error) {
	params, err := h.Parameters()
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, foreign.ReleaseAll(params...)) }()
	ids, err := paramIDs(params)
	if err != nil {
		return nil, err
	}
	sorted := make([]byID, len(params))
	for i := range params {
		sorted[i] = byID{ids[i], params[i]}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return CompareIDs(sorted[i].id, sorted[j].id) < 0 })
	if err := h.ClearParameters(); err != nil {
		return nil, err
	}
	for _, s := range sorted {
		if err := h.add(s.p); err != nil {
			return nil, err
		}
	}
	return lo.Map(sorted, func(s byID, _ int) string { return s.id }), nil
}
