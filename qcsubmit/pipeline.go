/*
 * pipeline.go, part of gopenff.
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
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//AppliedFilter records one step of a pipeline.
type AppliedFilter struct {
	Index   int            `json:"index"`
	Name    string         `json:"name"`
	Params  map[string]any `json:"params"`
	Before  int            `json:"before"` //number of entries before the filter
	After   int            `json:"after"`
	Elapsed time.Duration  `json:"elapsed"`
}

//Provenance is the record of the filters applied to a collection.
type Provenance struct {
	RunID uuid.UUID       `json:"run_id"`
	Steps []AppliedFilter `json:"steps"`
}

//Removed returns the number of entries removed by each step.
func (P *Provenance) Removed() []int {
	ret := make([]int, len(P.Steps))
	for i, s := range P.Steps {
		ret[i] = s.Before - s.After
	}
	return ret
}

//Apply applies the filters to c, in order, and returns the resulting collection. c is not
//modified. The steps are recorded in the Provenance of the returned collection, after those
//of c, if any. If a filter fails, Apply returns the error and no collection.
func Apply(c *ResultCollection, filters ...Filter) (*ResultCollection, error) {
	log := c.h.Interpreter().Logger()
	prov := &Provenance{RunID: uuid.New()}
	if c.prov != nil {
		prov.Steps = append(prov.Steps, c.prov.Steps...)
	}
	h, err := c.h.Clone()
	if err != nil {
		return nil, err
	}
	cur := &ResultCollection{h: h, kind: c.kind}
	n, err := cur.NResults()
	if err != nil {
		return nil, multierr.Append(err, cur.Release())
	}
	for i, f := range filters {
		start := time.Now()
		next, err := f.Apply(cur)
		if err != nil {
			log.Error("filter failed", zap.Stringer("run", prov.RunID), zap.Int("index", i), zap.String("filter", f.Name()), zap.Error(err))
			return nil, multierr.Append(fmt.Errorf("qcsubmit: filter %d (%s): %w", i, f.Name(), err), cur.Release())
		}
		elapsed := time.Since(start)
		if err := cur.Release(); err != nil {
			return nil, multierr.Append(err, next.Release())
		}
		cur = next
		after, err := cur.NResults()
		if err != nil {
			return nil, multierr.Append(err, cur.Release())
		}
		prov.Steps = append(prov.Steps, AppliedFilter{
			Index:   len(prov.Steps),
			Name:    f.Name(),
			Params:  f.Params(),
			Before:  n,
			After:   after,
			Elapsed: elapsed,
		})
		log.Debug("filter applied", zap.Stringer("run", prov.RunID), zap.String("filter", f.Name()), zap.Int("before", n), zap.Int("after", after), zap.Duration("elapsed", elapsed))
		n = after
	}
	cur.prov = prov
	return cur, nil
}
