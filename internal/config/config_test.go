/*
 * config_test.go, part of chemlive.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/chemlive/modifier"
	"github.com/rmera/chemlive/opt"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	return name
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("VIS_URL", "ws://localhost:9000/ws")
	t.Setenv("VIS_TOKEN", "secret")
	t.Setenv("CHEMLIVE_CACHE_SIZE", "32")
	t.Setenv("CHEMLIVE_PUBLIC", "true")
	t.Setenv("ARCHIVE_S3_ENDPOINT", "minio:9000")
	t.Setenv("ARCHIVE_S3_USE_SSL", "false")
	C, err := Load([]string{"-cache", "64", "-cpus", "4"})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:9000/ws", C.URL)
	assert.Equal(t, "secret", C.Token)
	assert.True(t, C.Public)
	assert.Equal(t, 64, C.CacheSize)
	assert.Equal(t, 4, C.XTBCPUs)
	assert.Equal(t, time.Minute, C.ReconnectMax)
	assert.True(t, C.Archive)
	assert.True(t, C.S3.Enabled)
	assert.False(t, C.S3.UseSSL)
	assert.Equal(t, "chemlive-runs", C.S3.Bucket)
	require.Len(t, C.Defaults, 2)
	assert.Equal(t, modifier.DefaultDynamics(), C.Defaults[modifier.MolecularDynamics])
}

func TestLoadLocal(t *testing.T) {
	t.Setenv("VIS_URL", "")
	_, err := Load(nil)
	assert.Error(t, err)
	C, err := Load([]string{"-local", "water.xyz", "-kind", "MolecularDynamics", "-config-json", `{"n_steps": 10}`})
	require.NoError(t, err)
	assert.Equal(t, "water.xyz", C.Local)
	assert.Equal(t, "MolecularDynamics", C.Kind)
	assert.False(t, C.S3.Enabled)
	_, err = Load([]string{"-local", "water.xyz", "-cpus", "0"})
	assert.Error(t, err)
	_, err = Load([]string{"-no-such-flag"})
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	name := writeFile(t, `
MolecularDynamics:
  temperature: 350
  ceiling: 500
GeomOpt:
  optimizer: FIRE
  fmax: 0.02
`)
	d, err := LoadDefaults(name)
	require.NoError(t, err)
	md := d[modifier.MolecularDynamics]
	assert.Equal(t, 350.0, md.Temperature)
	assert.Equal(t, 500, md.Ceiling)
	assert.Equal(t, modifier.DefaultDynamics().TimeStep, md.TimeStep)
	o := d[modifier.GeomOpt]
	assert.Equal(t, opt.FIRE, o.Optimizer)
	assert.Equal(t, 0.02, o.FMax)
	assert.Equal(t, modifier.OptCeiling, o.Ceiling)
}

func TestLoadDefaultsErrors(t *testing.T) {
	_, err := LoadDefaults(writeFile(t, "Docking:\n  fmax: 0.1\n"))
	assert.Error(t, err)
	_, err = LoadDefaults(writeFile(t, "MolecularDynamics:\n  n_steps: 5000\n"))
	var cerr *modifier.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
	_, err = LoadDefaults(writeFile(t, "GeomOpt:\n  ceiling: 300\n"))
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "ceiling", cerr.Field)
	_, err = LoadDefaults(writeFile(t, "GeomOpt: [1, 2\n"))
	assert.Error(t, err)
	_, err = LoadDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
