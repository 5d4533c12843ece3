/*
 * plot.go, part of gopenff.
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

//Package provplot draws the provenance of a filtered result collection: how many
//entries each filter kept and removed.
package provplot

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rmera/gopenff/qcsubmit"
)

//Chart returns a bar chart with the entries in the collection before the first step,
//and the entries kept and removed by each step.
func Chart(p *qcsubmit.Provenance, title string) (*plot.Plot, error) {
	if p == nil || len(p.Steps) == 0 {
		return nil, fmt.Errorf("provplot: no filters to plot")
	}
	kept := make(plotter.Values, len(p.Steps)+1)
	removed := make(plotter.Values, len(p.Steps)+1)
	names := make([]string, len(p.Steps)+1)
	kept[0] = float64(p.Steps[0].Before)
	names[0] = "input"
	for i, s := range p.Steps {
		kept[i+1] = float64(s.After)
		removed[i+1] = float64(s.Before - s.After)
		names[i+1] = fmt.Sprintf("%d %s", s.Index, s.Name)
	}
	pl := plot.New()
	pl.Title.Text = title
	pl.Y.Label.Text = "Entries"
	pl.Y.Min = 0
	w := vg.Points(12)
	kbars, err := plotter.NewBarChart(kept, w)
	if err != nil {
		return nil, err
	}
	kbars.Color = plotutil.Color(0)
	kbars.Offset = -w / 2
	rbars, err := plotter.NewBarChart(removed, w)
	if err != nil {
		return nil, err
	}
	rbars.Color = plotutil.Color(1)
	rbars.Offset = w / 2
	pl.Add(plotter.NewGrid(), kbars, rbars)
	pl.Legend.Add("kept", kbars)
	pl.Legend.Add("removed", rbars)
	pl.Legend.Top = true
	pl.NominalX(names...)
	pl.X.Tick.Label.Rotation = math.Pi / 4
	pl.X.Tick.Label.XAlign = draw.XRight
	pl.X.Tick.Label.YAlign = draw.YCenter
	return pl, nil
}

//Plot draws the chart for p and saves it to path. The format is given by the extension
//of path: png, svg, pdf, eps, jpg or tif.
func Plot(p *qcsubmit.Provenance, title, path string) error {
	pl, err := Chart(p, title)
	if err != nil {
		return err
	}
	width := vg.Length(len(p.Steps)+1) * 2 * vg.Centimeter
	if width < 12*vg.Centimeter {
		width = 12 * vg.Centimeter
	}
	if err := pl.Save(width, 10*vg.Centimeter, path); err != nil {
		return fmt.Errorf("provplot: %w", err)
	}
	return nil
}
