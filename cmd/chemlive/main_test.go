/*
 * main_test.go, part of chemlive.
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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chem "github.com/rmera/chemlive"
	"github.com/rmera/chemlive/calc"
	"github.com/rmera/chemlive/internal/config"
	"github.com/rmera/chemlive/modifier"
)

const trimer = `3
argon trimer
Ar 0.0 0.0 0.0
Ar 1.3 0.0 0.0
Ar 0.6 1.0 0.1
`

func TestRunLocal(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.xyz")
	require.NoError(t, os.WriteFile(in, []byte(trimer), 0o644))
	defaults, err := config.LoadDefaults("")
	require.NoError(t, err)
	cfg := &config.Config{
		Local:      in,
		Kind:       string(modifier.GeomOpt),
		ConfigJSON: `{"fmax": 0.01}`,
		Out:        filepath.Join(dir, "out.xyz"),
		DataDir:    dir,
		Archive:    true,
		Defaults:   defaults,
	}
	require.NoError(t, runLocal(context.Background(), cfg, calc.NewLennardJones()))
	frames, err := chem.XYZFileRead(cfg.Out)
	require.NoError(t, err)
	require.Greater(t, len(frames), 2)
	assert.Equal(t, 3, frames[0].Len())
	runs, err := os.ReadDir(filepath.Join(dir, "runs"))
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	cfg.ConfigJSON = `{"optimizer": "CG"}`
	var cerr *modifier.ConfigurationError
	assert.ErrorAs(t, runLocal(context.Background(), cfg, calc.NewLennardJones()), &cerr)

	cfg.Local = filepath.Join(dir, "missing.xyz")
	assert.Error(t, runLocal(context.Background(), cfg, calc.NewLennardJones()))
}
