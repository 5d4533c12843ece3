/*
 * config_test.go, part of gopenff.
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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(Te *testing.T) {
	cfg, err := Load("")
	require.NoError(Te, err)
	assert.Equal(Te, BackendPython, cfg.Runtime.Backend)
	assert.Equal(Te, "python3", cfg.Runtime.Python)
	assert.Equal(Te, DefaultAddress, cfg.Portal.Address)
	assert.Equal(Te, "info", cfg.Log.Level)
	assert.Nil(Te, cfg.Runtime.Modules)
}

func TestLoad(Te *testing.T) {
	path := filepath.Join(Te.TempDir(), "gopenff.yaml")
	require.NoError(Te, os.WriteFile(path, []byte(`
runtime:
  backend: native
  command: [conda, run, -n, openff, python]
  search_paths: [/opt/ff, ./ff]
portal:
  address: file:///data/archive
log:
  level: debug
  format: json
`), 0644))
	cfg, err := Load(path)
	require.NoError(Te, err)
	assert.Equal(Te, BackendNative, cfg.Runtime.Backend)
	assert.Equal(Te, []string{"conda", "run", "-n", "openff", "python"}, cfg.Runtime.Command)
	assert.Equal(Te, []string{"/opt/ff", "./ff"}, cfg.Runtime.SearchPaths)
	assert.Equal(Te, "file:///data/archive", cfg.Portal.Address)
	assert.Equal(Te, "json", cfg.Log.Format)

	Te.Setenv("GOPENFF_LOG_LEVEL", "warn")
	Te.Setenv("GOPENFF_RUNTIME_PYTHON", "/usr/bin/python3.11")
	cfg, err = Load(path)
	require.NoError(Te, err)
	assert.Equal(Te, "warn", cfg.Log.Level, "the environment wins over the file")
	assert.Equal(Te, "/usr/bin/python3.11", cfg.Runtime.Python)

	_, err = Load(filepath.Join(Te.TempDir(), "nope.yaml"))
	assert.Error(Te, err)
}

func TestValidate(Te *testing.T) {
	cfg := &Config{Runtime: RuntimeConfig{Backend: "julia", Env: []string{"OE_LICENSE"}}, Log: LogConfig{Level: "loud", Format: "xml"}}
	ApplyDefaults(cfg)
	err := cfg.Validate()
	require.Error(Te, err)
	for _, s := range []string{"runtime.backend", "runtime.env", "log.level", "log.format"} {
		assert.Contains(Te, err.Error(), s)
	}
	Te.Setenv("GOPENFF_RUNTIME_BACKEND", "julia")
	_, err = Load("")
	assert.Error(Te, err)
}
