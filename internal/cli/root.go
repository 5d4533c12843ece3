/*
 * root.go, part of gopenff.
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

//Package cli implements the gopenff command line tool.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/foreign/native"
	"github.com/rmera/gopenff/foreign/pybridge"
	"github.com/rmera/gopenff/internal/config"
	"github.com/rmera/gopenff/internal/logging"
)

//Version is set at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	configPath string
	backend    string
	logLevel   string
	address    string
}

//app holds what the commands share. The foreign runtime is started by the first
//command that needs it.
type app struct {
	opts rootOptions
	cfg  *config.Config
	log  *zap.Logger
	ip   *foreign.Interpreter
}

//newRoot returns the gopenff command with all its subcommands.
func newRoot(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gopenff",
		Short:         "Download, curate and merge OpenFF force field fitting data",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.opts.configPath, "config", "c", "", "configuration file (YAML)")
	pf.StringVar(&a.opts.backend, "backend", "", "foreign runtime: python or native (overrides the configuration)")
	pf.StringVar(&a.opts.logLevel, "log-level", "", "log level (overrides the configuration)")
	pf.StringVar(&a.opts.address, "address", "", "QCArchive server address (overrides the configuration)")
	cmd.AddCommand(
		newDownloadCmd(a),
		newDatasetsCmd(a),
		newFilterCmd(a),
		newMergeCmd(a),
		newForceFieldsCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.backend != "" {
		cfg.Runtime.Backend = a.opts.backend
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	if a.opts.address != "" {
		cfg.Portal.Address = a.opts.address
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	if a.log, err = logging.New(cfg.Log); err != nil {
		return err
	}
	a.log.Debug("configuration loaded", zap.String("command", cmd.Name()), zap.Any("runtime", cfg.Runtime))
	return nil
}

//interp returns the interpreter, starting the foreign runtime if needed.
func (a *app) interp() (*foreign.Interpreter, error) {
	if a.ip != nil {
		return a.ip, nil
	}
	var b foreign.Backend
	rt := a.cfg.Runtime
	switch rt.Backend {
	case config.BackendNative:
		b = native.New(native.Options{SearchPaths: rt.SearchPaths, Logger: a.log})
	default:
		br, err := pybridge.Start(pybridge.Config{
			Python:  rt.Python,
			Command: rt.Command,
			Script:  rt.Script,
			Env:     rt.Env,
			Modules: rt.Modules,
			Logger:  a.log,
		})
		if err != nil {
			return nil, err
		}
		b = br
	}
	a.ip = foreign.NewInterpreter(b, foreign.WithLogger(a.log))
	return a.ip, nil
}

func (a *app) close() error {
	var err error
	if a.ip != nil {
		err = a.ip.Close()
		a.ip = nil
	}
	a.log.Sync()
	return err
}

//Execute runs the root command with args and returns the exit code. Errors are
//logged, and also printed to errOut.
func Execute(args []string, out, errOut io.Writer) int {
	a := &app{log: zap.NewNop()}
	root := newRoot(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	cmd, err := root.ExecuteC()
	if errors.Is(err, foreign.ErrStartup) {
		a.log.Error("the foreign runtime could not be started", zap.String("backend", a.cfg.Runtime.Backend), zap.Error(err))
	}
	err = multierr.Append(err, a.close())
	if err == nil {
		return 0
	}
	fmt.Fprintf(errOut, "gopenff %s: %s\n", cmd.Name(), err)
	return 1
}
