/*
 * plot_test.go, part of gopenff.
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

package provplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/gopenff/qcsubmit"
)

func provenance() *qcsubmit.Provenance {
	return &qcsubmit.Provenance{Steps: []qcsubmit.AppliedFilter{
		{Index: 0, Name: "RecordIDFilter", Before: 7, After: 5},
		{Index: 1, Name: "RecordStatusFilter", Before: 5, After: 4},
		{Index: 2, Name: "ConformerRMSDFilter", Before: 4, After: 3},
	}}
}

func TestPlot(Te *testing.T) {
	dir := Te.TempDir()
	for _, name := range []string{"steps.png", "steps.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(Te, Plot(provenance(), "Optimization set", path))
		info, err := os.Stat(path)
		require.NoError(Te, err)
		assert.NotZero(Te, info.Size())
	}
	assert.Error(Te, Plot(provenance(), "", filepath.Join(dir, "steps.xyz")), "unknown format")
	assert.Error(Te, Plot(&qcsubmit.Provenance{}, "", filepath.Join(dir, "empty.png")))
	assert.Error(Te, Plot(nil, "", filepath.Join(dir, "nil.png")))
}

func TestChart(Te *testing.T) {
	pl, err := Chart(provenance(), "t")
	require.NoError(Te, err)
	assert.Equal(Te, "t", pl.Title.Text)
	assert.Equal(Te, 0.0, pl.Y.Min)
	assert.GreaterOrEqual(Te, pl.Y.Max, 7.0)
}
