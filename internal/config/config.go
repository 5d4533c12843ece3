/*
 * config.go, part of gopenff.
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

//Package config loads the settings of the gopenff tools from a YAML file and from
//GOPENFF_* environment variables, in that order of precedence reversed: the environment wins.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "GOPENFF"

//The foreign runtimes.
const (
	BackendPython = "python"
	BackendNative = "native"
)

const (
	DefaultBackend   = BackendPython
	DefaultPython    = "python3"
	DefaultAddress   = "https://api.qcarchive.molssi.org:443/"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

type Config struct {
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Portal  PortalConfig  `mapstructure:"portal"`
	Log     LogConfig     `mapstructure:"log"`
}

//RuntimeConfig selects and sets up the foreign runtime.
type RuntimeConfig struct {
	Backend     string   `mapstructure:"backend"`
	Python      string   `mapstructure:"python"`
	Command     []string `mapstructure:"command"` //replaces python, e.g. [conda, run, -n, openff, python]
	Script      string   `mapstructure:"script"`
	Env         []string `mapstructure:"env"`
	Modules     []string `mapstructure:"modules"`
	SearchPaths []string `mapstructure:"search_paths"` //for force field files, native runtime only
}

type PortalConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` //json or console
}

//keys lists every setting, so the environment can set those absent from the file.
var keys = []string{
	"runtime.backend", "runtime.python", "runtime.command", "runtime.script", "runtime.env",
	"runtime.modules", "runtime.search_paths", "portal.address", "log.level", "log.format",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		v.BindEnv(k)
	}
	return v
}

//Load reads the file at path, if path is not empty, applies the environment overrides
//and the defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//ApplyDefaults fills the unset fields of cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Runtime.Backend == "" {
		cfg.Runtime.Backend = DefaultBackend
	}
	if cfg.Runtime.Python == "" {
		cfg.Runtime.Python = DefaultPython
	}
	if cfg.Portal.Address == "" {
		cfg.Portal.Address = DefaultAddress
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Validate returns all the problems found in cfg.
func (C *Config) Validate() error {
	var err error
	switch C.Runtime.Backend {
	case BackendPython, BackendNative:
	default:
		err = multierr.Append(err, fmt.Errorf("config: runtime.backend must be %q or %q, not %q", BackendPython, BackendNative, C.Runtime.Backend))
	}
	for _, e := range C.Runtime.Env {
		if !strings.Contains(e, "=") {
			err = multierr.Append(err, fmt.Errorf("config: runtime.env entry %q is not KEY=value", e))
		}
	}
	if _, lerr := zapcore.ParseLevel(C.Log.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("config: log.level: %w", lerr))
	}
	if C.Log.Format != "json" && C.Log.Format != "console" {
		err = multierr.Append(err, fmt.Errorf("config: log.format must be json or console, not %q", C.Log.Format))
	}
	return err
}
