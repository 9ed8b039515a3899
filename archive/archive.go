/*
 * archive.go, part of chemlive.
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

// Package archive keeps a local copy of the frames each run produces: a stf
// trajectory and a plot of the energy profile, optionally uploaded to an
// S3-compatible object store once the run is over.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	chem "github.com/rmera/chemlive"
	"github.com/rmera/chemlive/modifier"
	"github.com/rmera/chemlive/traj/stf"
	v3 "github.com/rmera/chemlive/v3"
)

// Names of the files of each run, inside the run directory.
const (
	TrajectoryFile = "frames.stf"
	EnergyPlotFile = "energy.png"
)

// Store is where the files of a run go once the run is over.
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
}

// Recorder writes the frames of one run to a directory. It implements modifier.Archive.
type Recorder struct {
	ID       string
	Dir      string
	cfg      modifier.RunConfig
	w        *stf.StfW
	energies []float64
	store    Store
	logger   *log.Logger
	closed   bool
}

// NewRecorder returns a recorder for a run with the configuration cfg. Its files
// will be under a new directory in root, named after the id of the run. If store is not nil,
// the files are uploaded to it on Close. Uploads are reported to logger, or to the
// standard logger if logger is nil.
func NewRecorder(root string, cfg modifier.RunConfig, store Store, logger *log.Logger) (*Recorder, error) {
	id := fmt.Sprintf("%s-%s", cfg.Kind, uuid.Must(uuid.NewV7()))
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: creating run directory: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{ID: id, Dir: dir, cfg: cfg, store: store, logger: logger}, nil
}

// Factory returns a function that gives a new Recorder for each run, to be used as
// the NewArchive field of a modifier.Controller.
func Factory(root string, store Store, logger *log.Logger) func(context.Context, modifier.RunConfig) (modifier.Archive, error) {
	return func(_ context.Context, cfg modifier.RunConfig) (modifier.Archive, error) {
		R, err := NewRecorder(root, cfg, store, logger)
		if err != nil {
			return nil, err
		}
		return R, nil
	}
}

// Extend writes frames to the trajectory. The trajectory file is created with
// the first frame, so its header can carry the atomic numbers.
func (R *Recorder) Extend(ctx context.Context, frames []*chem.Snapshot) error {
	if R.closed {
		return fmt.Errorf("archive %s: recorder closed", R.ID)
	}
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if R.w == nil {
			if err := R.open(f.Numbers()); err != nil {
				return err
			}
		}
		var box *v3.Matrix
		if p := f.PBC(); p[0] || p[1] || p[2] {
			box = f.Cell()
		}
		if err := R.w.WNext(f.Positions(), box); err != nil {
			return fmt.Errorf("archive %s: %w", R.ID, err)
		}
		if e, ok := f.Energy(); ok {
			R.energies = append(R.energies, e)
		}
	}
	return nil
}

func (R *Recorder) open(numbers []int) error {
	header := map[string]string{
		"kind":  string(R.cfg.Kind),
		"model": string(R.cfg.Model),
		"run":   R.ID,
	}
	w, err := stf.NewWriter(filepath.Join(R.Dir, TrajectoryFile), numbers, header)
	if err != nil {
		return fmt.Errorf("archive %s: %w", R.ID, err)
	}
	R.w = w
	return nil
}

// Frames returns the number of frames written so far.
func (R *Recorder) Frames() int {
	if R.w == nil {
		return 0
	}
	return R.w.Frames()
}

// Energies returns the energies of the frames written so far which had one.
func (R *Recorder) Energies() []float64 {
	return R.energies
}

// Close finishes the trajectory, plots the energy profile, if there is one,
// and uploads the files to the store. The recorder can't be used after this call.
func (R *Recorder) Close(ctx context.Context) error {
	if R.closed {
		return nil
	}
	R.closed = true
	var errs []error
	files := make([]string, 0, 2)
	if R.w != nil {
		if err := R.w.Close(); err != nil {
			errs = append(errs, err)
		} else {
			files = append(files, TrajectoryFile)
		}
	}
	if len(R.energies) > 1 {
		title := fmt.Sprintf("%s (%s)", R.cfg.Kind, R.cfg.Model)
		if err := Plot(R.energies, title, filepath.Join(R.Dir, EnergyPlotFile)); err != nil {
			errs = append(errs, err)
		} else {
			files = append(files, EnergyPlotFile)
		}
	}
	if R.store != nil {
		for _, name := range files {
			content, err := os.ReadFile(filepath.Join(R.Dir, name))
			if err == nil {
				err = R.store.Put(ctx, R.ID, name, content)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("uploading %s: %w", name, err))
				continue
			}
			R.logger.Printf("archive %s: uploaded %s", R.ID, name)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("archive %s: %w", R.ID, err)
	}
	return nil
}
