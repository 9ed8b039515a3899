/*
 * controller.go, part of chemlive.
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

package modifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	chem "github.com/rmera/chemlive"
	"github.com/rmera/chemlive/calc"
	"github.com/rmera/chemlive/md"
	"github.com/rmera/chemlive/opt"
	"github.com/rmera/chemlive/session"
)

// State is the stage a run is in.
type State int

const (
	Validating State = iota
	Trimming
	Stepping
	Flushing
	Done
	Rejected
)

func (s State) String() string {
	switch s {
	case Validating:
		return "validating"
	case Trimming:
		return "trimming"
	case Stepping:
		return "stepping"
	case Flushing:
		return "flushing"
	case Done:
		return "done"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Report describes how a run went.
type Report struct {
	Kind      Kind
	State     State //the last state the run reached
	Start     int   //viewing index when the run started, where the bookmark is
	Removed   int   //frames deleted from the history before the run
	Frames    int   //frames sent to the session
	Converged bool  //for optimizations
	Elapsed   time.Duration
}

// Journal records the runs a controller performs.
type Journal interface {
	Start(ctx context.Context, cfg RunConfig) (int64, error)
	Finish(ctx context.Context, id int64, rep *Report, runErr error) error
}

// Archive keeps a copy of the frames of one run.
type Archive interface {
	Sink
	Close(ctx context.Context) error
}

// Controller performs runs on the structure of a session, and sends the frames they produce
// back to it. A Controller performs one run at a time; Run must not be called concurrently.
type Controller struct {
	Session  session.Session
	Backend  chem.Calculator    //backend for ModelDefault
	Defaults map[Kind]RunConfig //defaults for Handle, the built-in ones are used for missing kinds
	Journal  Journal            //optional
	Logger   *log.Logger        //log.Default() if nil
	//NewArchive, if not nil, is called at the start of each run to obtain an archive for its frames.
	NewArchive func(ctx context.Context, cfg RunConfig) (Archive, error)
}

func (C *Controller) logger() *log.Logger {
	if C.Logger == nil {
		return log.Default()
	}
	return C.Logger
}

// Handle runs a kind with a configuration in JSON, as sent by the service. Fields missing
// from raw take their default values.
func (C *Controller) Handle(ctx context.Context, kind string, raw json.RawMessage) (*Report, error) {
	cfg, ok := C.Defaults[Kind(kind)]
	if !ok {
		cfg, ok = Defaults(Kind(kind))
	}
	if !ok {
		return &Report{Kind: Kind(kind), State: Rejected}, &ConfigurationError{Field: "kind", Value: kind, Reason: "unknown run kind"}
	}
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return &Report{Kind: Kind(kind), State: Rejected}, &ConfigurationError{Field: "config", Value: string(raw), Reason: err.Error()}
		}
	}
	cfg.Kind = Kind(kind)
	return C.Run(ctx, cfg)
}

// backend resolves the model of a run.
func (C *Controller) backend(m Model) (chem.Calculator, error) {
	switch m {
	case ModelDefault:
		if C.Backend == nil {
			return nil, &ConfigurationError{Field: "model", Value: m, Reason: "no default backend available"}
		}
		return C.Backend, nil
	case ModelLJ:
		return calc.NewLennardJones(), nil
	}
	return nil, &ConfigurationError{Field: "model", Value: m, Reason: "unknown model"}
}

// Run performs one run with the configuration cfg on the structure at the viewing index of the
// session. Invalid configurations, and structures with more than MaxAtoms atoms, are rejected with
// a *ConfigurationError before the session is modified. Otherwise, the frames after the viewing index
// are deleted, a bookmark is set at the viewing index, and the frames produced by the run are sent to
// the session in batches of cfg.UploadInterval frames. Frames produced before an error are still sent.
// The returned report is never nil.
func (C *Controller) Run(ctx context.Context, cfg RunConfig) (rep *Report, err error) {
	rep = &Report{Kind: cfg.Kind, State: Validating}
	begin := time.Now()
	if C.Journal != nil {
		id, jerr := C.Journal.Start(ctx, cfg)
		if jerr != nil {
			C.logger().Printf("%s: can't journal run: %v", cfg.Kind, jerr)
		} else {
			defer func() {
				if jerr := C.Journal.Finish(context.WithoutCancel(ctx), id, rep, err); jerr != nil {
					C.logger().Printf("%s: can't journal the end of run %d: %v", cfg.Kind, id, jerr)
				}
			}()
		}
	}
	defer func() { rep.Elapsed = time.Since(begin) }()
	if err := cfg.Validate(); err != nil {
		rep.State = Rejected
		return rep, err
	}
	s, err := C.Session.Structure(ctx)
	if err != nil {
		return rep, fmt.Errorf("%s: fetching structure: %w", cfg.Kind, err)
	}
	if s.Len() > MaxAtoms {
		rep.State = Rejected
		return rep, &ConfigurationError{Field: "atoms", Value: s.Len(), Reason: fmt.Sprintf("must not exceed %d", MaxAtoms)}
	}
	backend, err := C.backend(cfg.Model)
	if err != nil {
		rep.State = Rejected
		return rep, err
	}

	rep.State = Trimming
	rep.Start, rep.Removed, err = Trim(ctx, C.Session)
	if err != nil {
		return rep, err
	}

	rep.State = Stepping
	var sink Sink = C.Session
	var arch Archive
	if C.NewArchive != nil {
		var aerr error
		if arch, aerr = C.NewArchive(ctx, cfg); aerr != nil {
			C.logger().Printf("%s: running without archive: %v", cfg.Kind, aerr)
			arch = nil
		} else {
			sink = Tee(C.Session, logged{arch, C.logger()})
		}
	}
	B, err := NewBatcher(sink, cfg.UploadInterval)
	if err != nil {
		return rep, err
	}
	defer func() {
		rep.State = Flushing
		ferr := B.Flush(context.WithoutCancel(ctx))
		rep.Frames = B.Sent()
		if arch != nil {
			if cerr := arch.Close(context.WithoutCancel(ctx)); cerr != nil {
				C.logger().Printf("%s: closing archive: %v", cfg.Kind, cerr)
			}
		}
		if err == nil && ferr != nil {
			err = fmt.Errorf("%s: sending the last frames: %w", cfg.Kind, ferr)
		}
		rep.State = Done
	}()
	s.SetCalculator(backend)
	if err = C.Session.UpsertBookmarks(ctx, map[int]string{rep.Start: cfg.Kind.label()}); err != nil {
		return rep, fmt.Errorf("%s: setting bookmark: %w", cfg.Kind, err)
	}
	C.logger().Printf("%s: starting at frame %d with %d atoms (%d frames removed)", cfg.Kind, rep.Start, s.Len(), rep.Removed)
	switch cfg.Kind {
	case MolecularDynamics:
		err = C.dynamics(ctx, cfg, s, B)
	case GeomOpt:
		rep.Converged, err = C.optimization(ctx, cfg, s, B)
	}
	if err != nil {
		return rep, fmt.Errorf("%s: %w", cfg.Kind, err)
	}
	return rep, nil
}

func (C *Controller) dynamics(ctx context.Context, cfg RunConfig, s *chem.Structure, B *Batcher) error {
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	dyn, err := md.NewLangevin(s, cfg.TimeStep, cfg.Temperature, cfg.Friction, rng)
	if err != nil {
		return err
	}
	for idx := 0; idx < cfg.NSteps; idx++ {
		if err := dyn.Step(ctx); err != nil {
			return err
		}
		if err := C.push(ctx, cfg, s, B, idx); err != nil {
			return err
		}
		if idx > cfg.Ceiling {
			C.logger().Printf("%s: stopped at the %d frames ceiling", cfg.Kind, cfg.Ceiling)
			break
		}
	}
	return nil
}

func (C *Controller) optimization(ctx context.Context, cfg RunConfig, s *chem.Structure, B *Batcher) (bool, error) {
	o, err := opt.New(cfg.Optimizer, s)
	if err != nil {
		return false, err
	}
	run := opt.Irun(ctx, o, cfg.FMax)
	for run.Next() {
		idx := run.Index()
		if err := C.push(ctx, cfg, s, B, idx); err != nil {
			return false, err
		}
		if idx > cfg.Ceiling {
			C.logger().Printf("%s: stopped at the %d steps ceiling, not converged", cfg.Kind, cfg.Ceiling)
			break
		}
	}
	return run.Converged(), run.Err()
}

// push takes a snapshot of s and gives it to the batcher, logging the progress of the run
// once per batch.
func (C *Controller) push(ctx context.Context, cfg RunConfig, s *chem.Structure, B *Batcher, idx int) error {
	snap, err := chem.NewSnapshot(s)
	if err != nil {
		return err
	}
	if err := B.Push(ctx, snap); err != nil {
		return err
	}
	if (idx+1)%cfg.UploadInterval == 0 {
		if e, ok := snap.Energy(); ok {
			C.logger().Printf("%s: frame %d, energy %.6f eV", cfg.Kind, idx, e)
		} else {
			C.logger().Printf("%s: frame %d", cfg.Kind, idx)
		}
	}
	return nil
}

// logged is a sink whose failures are logged instead of returned.
type logged struct {
	sink   Sink
	logger *log.Logger
}

func (l logged) Extend(ctx context.Context, frames []*chem.Snapshot) error {
	if err := l.sink.Extend(ctx, frames); err != nil {
		l.logger.Printf("archive: %v", err)
	}
	return nil
}
