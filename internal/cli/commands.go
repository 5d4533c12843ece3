/*
 * commands.go, part of gopenff.
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
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/internal/zio"
	"github.com/rmera/gopenff/provplot"
	"github.com/rmera/gopenff/qcportal"
	"github.com/rmera/gopenff/qcsubmit"
	"github.com/rmera/gopenff/toolkit/smirnoff"
)

//DefaultElements are the elements allowed by the filter command, iodine aside.
var DefaultElements = []string{"H", "C", "N", "O", "S", "P", "F", "Cl", "Br"}

//save writes c to path and prints its size.
func save(cmd *cobra.Command, c *qcsubmit.ResultCollection, path string) error {
	s, err := c.JSON(2)
	if err != nil {
		return err
	}
	if err := zio.WriteFile(path, []byte(s)); err != nil {
		return err
	}
	n, err := c.NResults()
	if err != nil {
		return err
	}
	m, err := c.NMolecules()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries, %d molecules\n", path, n, m)
	return nil
}

func newDownloadCmd(a *app) *cobra.Command {
	var kind, spec, out string
	var datasets []string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the records of QCArchive datasets as a result collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := qcsubmit.ParseKind(kind)
			if err != nil {
				return err
			}
			ip, err := a.interp()
			if err != nil {
				return err
			}
			client, err := qcportal.NewPortalClient(ip, a.cfg.Portal.Address)
			if err != nil {
				return err
			}
			defer client.Release()
			c, err := qcsubmit.FromServer(ip, k, client, datasets, spec)
			if err != nil {
				return err
			}
			defer c.Release()
			return save(cmd, c, out)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&kind, "kind", "k", "opt", "kind of dataset: opt, td or basic")
	f.StringSliceVarP(&datasets, "dataset", "d", nil, "name of a dataset, can be repeated")
	f.StringVar(&spec, "spec", "default", "name of the QC specification")
	f.StringVarP(&out, "out", "o", "", "output file, compressed if it ends in .gz or .zst")
	cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newDatasetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets of the QCArchive server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ip, err := a.interp()
			if err != nil {
				return err
			}
			client, err := qcportal.NewPortalClient(ip, a.cfg.Portal.Address)
			if err != nil {
				return err
			}
			defer client.Release()
			l, err := client.ListDatasets()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE")
			for _, d := range l {
				fmt.Fprintf(w, "%s\t%s\n", d.Name, d.Type)
			}
			return w.Flush()
		},
	}
}

type filterOptions struct {
	kind       string
	in, out    string
	plot       string
	provenance string
	remove     []int64
	status     qcportal.RecordStatus
	tolerance  float64
	iodine     bool
	hbonds     bool
	stereo     bool
	maxConfs   int
	minConfs   int
	scripts    []string
	extra      []string
}

//filters builds the filters for a collection of kind k. The foreign filters must be
//released by the caller.
func (o *filterOptions) filters(ip *foreign.Interpreter, k qcsubmit.Kind) (fs []qcsubmit.Filter, foreignFs []*qcsubmit.ForeignFilter, err error) {
	defer func() {
		if err != nil {
			err = multierr.Append(err, foreign.ReleaseAll(foreignFs...))
		}
	}()
	add := func(f *qcsubmit.ForeignFilter, err error) error {
		if err != nil {
			return err
		}
		fs = append(fs, f)
		foreignFs = append(foreignFs, f)
		return nil
	}
	if len(o.remove) > 0 {
		fs = append(fs, &qcsubmit.RecordIDFilter{Remove: o.remove})
	}
	if err = add(qcsubmit.NewRecordStatusFilter(ip, o.status)); err != nil {
		return
	}
	if o.tolerance > 0 {
		if err = add(qcsubmit.NewConnectivityFilter(ip, o.tolerance)); err != nil {
			return
		}
	}
	if k != qcsubmit.TorsionDrive {
		if o.stereo {
			if err = add(qcsubmit.NewUnperceivableStereoFilter(ip)); err != nil {
				return
			}
		}
		elements := append([]string{}, DefaultElements...)
		if o.iodine {
			elements = append(elements, "I")
		}
		if err = add(qcsubmit.NewElementFilter(ip, elements)); err != nil {
			return
		}
		if o.hbonds {
			if err = add(qcsubmit.NewHydrogenBondFilter(ip)); err != nil {
				return
			}
		}
		if o.maxConfs > 0 {
			if err = add(qcsubmit.NewConformerRMSDFilter(ip, o.maxConfs)); err != nil {
				return
			}
		}
		if o.minConfs > 0 {
			if err = add(qcsubmit.NewMinimumConformersFilter(ip, o.minConfs)); err != nil {
				return
			}
		}
	}
	for _, e := range o.extra {
		i := strings.LastIndex(e, ":")
		if i <= 0 || i == len(e)-1 {
			err = fmt.Errorf("extra filter %q is not module:Class", e)
			return
		}
		if err = add(qcsubmit.NewResultRecordFilter(ip, e[:i], e[i+1:], nil)); err != nil {
			return
		}
	}
	for _, path := range o.scripts {
		var sf *qcsubmit.ScriptFilter
		if sf, err = qcsubmit.ReadScriptFilter(path); err != nil {
			return
		}
		fs = append(fs, sf)
	}
	return fs, foreignFs, nil
}

func newFilterCmd(a *app) *cobra.Command {
	o := &filterOptions{status: qcportal.Complete}
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Curate a result collection for a force field fit",
		Long: `Curate a result collection for a force field fit.

Optimizations go through the record status, connectivity, stereochemistry,
element and conformer RMSD filters. Torsion drives go through the record
status and connectivity filters only. In both cases, the records given with
--remove-records are removed first, and the filters given with --extra-filter
and --script are applied last.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			k, err := qcsubmit.ParseKind(o.kind)
			if err != nil {
				return err
			}
			data, err := zio.ReadFile(o.in)
			if err != nil {
				return err
			}
			ip, err := a.interp()
			if err != nil {
				return err
			}
			fs, foreignFs, err := o.filters(ip, k)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, foreign.ReleaseAll(foreignFs...)) }()
			c, err := qcsubmit.ParseRaw(ip, k, string(data))
			if err != nil {
				return err
			}
			defer c.Release()
			res, err := qcsubmit.Apply(c, fs...)
			if err != nil {
				return err
			}
			defer res.Release()
			prov := res.Provenance()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tFILTER\tBEFORE\tAFTER\tTIME")
			for _, s := range prov.Steps {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", s.Index, s.Name, s.Before, s.After, s.Elapsed)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			a.log.Info("collection filtered", zap.Stringer("run", prov.RunID), zap.Ints("removed", prov.Removed()))
			if err := save(cmd, res, o.out); err != nil {
				return err
			}
			if o.provenance != "" {
				data, err := json.MarshalIndent(prov, "", "  ")
				if err != nil {
					return err
				}
				if err := zio.WriteFile(o.provenance, data); err != nil {
					return err
				}
			}
			if o.plot != "" {
				return provplot.Plot(prov, filepath.Base(o.in), o.plot)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.kind, "kind", "k", "opt", "kind of collection: opt or td")
	f.StringVarP(&o.in, "in", "i", "", "input collection, may be compressed")
	f.StringVarP(&o.out, "out", "o", "", "output collection, compressed if it ends in .gz or .zst")
	f.Int64SliceVar(&o.remove, "remove-records", nil, "ids of records to remove")
	f.Var(&o.status, "status", "status of the records kept")
	f.Float64Var(&o.tolerance, "connectivity-tolerance", 1.2, "tolerance of the connectivity filter, 0 to skip it")
	f.BoolVar(&o.iodine, "iodine", false, "allow iodine")
	f.BoolVar(&o.hbonds, "hbonds", false, "remove records with intramolecular hydrogen bonds")
	f.BoolVar(&o.stereo, "stereo", true, "remove records with unperceivable stereochemistry")
	f.IntVar(&o.maxConfs, "max-conformers", 12, "conformers kept per molecule, 0 to keep all")
	f.IntVar(&o.minConfs, "min-conformers", 0, "remove molecules with fewer conformers, 0 to skip")
	f.StringSliceVar(&o.scripts, "script", nil, "Starlark filter script, can be repeated")
	f.StringSliceVar(&o.extra, "extra-filter", nil, "QCSubmit filter class as module:Class, can be repeated")
	f.StringVar(&o.plot, "plot", "", "save a chart of the filters to this file (png, svg or pdf)")
	f.StringVar(&o.provenance, "provenance", "", "save the record of the filters applied to this JSON file")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	var base, from, handler, out string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Port the parameters of one handler from a force field into another",
		Long: `Port the parameters of one handler from a force field into another.

Parameters present in both force fields take the version of --from. Those only
in --from are added, renamed with an "x" suffix if their id is taken, and those
only in --base are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ip, err := a.interp()
			if err != nil {
				return err
			}
			dst, err := smirnoff.Load(ip, base)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, dst.Release()) }()
			src, err := smirnoff.Load(ip, from)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, src.Release()) }()
			dh, err := dst.GetParameterHandler(handler)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, dh.Release()) }()
			sh, err := src.GetParameterHandler(handler)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, sh.Release()) }()
			ids, err := smirnoff.PortParameters(dh, sh)
			if err != nil {
				return err
			}
			if err := dst.ToFile(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s parameters\n", out, len(ids), handler)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&base, "base", "", "force field that receives the parameters")
	f.StringVar(&from, "from", "", "force field the parameters come from")
	f.StringVar(&handler, "handler", "ProperTorsions", "tag of the parameter handler")
	f.StringVarP(&out, "out", "o", "", "output force field")
	cmd.MarkFlagRequired("base")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newForceFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forcefields",
		Short: "List the force fields that can be loaded by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ip, err := a.interp()
			if err != nil {
				return err
			}
			l, err := smirnoff.AvailableForceFields(ip)
			if err != nil {
				return err
			}
			for _, name := range l {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
