/*
 * controller_test.go, part of chemlive.
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
	"errors"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chem "github.com/rmera/chemlive"
	"github.com/rmera/chemlive/calc"
	"github.com/rmera/chemlive/opt"
	"github.com/rmera/chemlive/session"
	v3 "github.com/rmera/chemlive/v3"
)

// spySession is a memory session that counts the calls that change it, and can be made
// to fail an Extend call.
type spySession struct {
	*session.Memory
	deletes      int
	upserts      int
	extends      int
	failExtendAt int
}

func (s *spySession) DeleteFrom(ctx context.Context, start int) error {
	s.deletes++
	return s.Memory.DeleteFrom(ctx, start)
}

func (s *spySession) UpsertBookmarks(ctx context.Context, marks map[int]string) error {
	s.upserts++
	return s.Memory.UpsertBookmarks(ctx, marks)
}

func (s *spySession) Extend(ctx context.Context, frames []*chem.Snapshot) error {
	s.extends++
	if s.extends == s.failExtendAt {
		return errors.New("connection reset")
	}
	return s.Memory.Extend(ctx, frames)
}

// countingBackend is a Lennard-Jones backend that counts its calls. If corruptAt is not
// zero, that call leaves the structure without a cell.
type countingBackend struct {
	mu        sync.Mutex
	calls     int
	corruptAt int
}

func (c *countingBackend) Calculate(ctx context.Context, s *chem.Structure) (*chem.Results, error) {
	r, err := calc.NewLennardJones().Calculate(ctx, s)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls == c.corruptAt {
		s.Cell = nil
	}
	return r, err
}

// constantForce pushes every atom along x, so no optimization can converge.
type constantForce struct{}

func (constantForce) Calculate(ctx context.Context, s *chem.Structure) (*chem.Results, error) {
	f := v3.Zeros(s.Len())
	var e float64
	for i := 0; i < s.Len(); i++ {
		f.Set(i, 0, 1)
		e -= s.Positions.At(i, 0)
	}
	return &chem.Results{Energy: &e, Forces: f}, nil
}

func argon(t *testing.T, natoms int) *chem.Snapshot {
	t.Helper()
	coords := make([]float64, 0, 3*natoms)
	numbers := make([]int, natoms)
	for i := 0; i < natoms; i++ {
		numbers[i] = 18
		//a zig-zag chain, so no two atoms are too close
		coords = append(coords, 1.2*float64(i), 0.6*float64(i%2), 0.1*float64(i%3))
	}
	pos, err := v3.NewMatrix(coords)
	require.NoError(t, err)
	s, err := chem.NewStructure(numbers, pos, nil, [3]bool{})
	require.NoError(t, err)
	snap, err := chem.NewSnapshot(s)
	require.NoError(t, err)
	return snap
}

// history returns a session with n copies of a 3-atom argon structure, viewing frame step.
func history(t *testing.T, n, step int) *spySession {
	t.Helper()
	frames := make([]*chem.Snapshot, n)
	for i := range frames {
		frames[i] = argon(t, 3)
	}
	s := &spySession{Memory: session.NewMemory(frames...)}
	require.NoError(t, s.SetStep(step))
	return s
}

func quietLogger() *log.Logger {
	return log.New(new(bytes.Buffer), "", 0)
}

func dynamicsConfig(nsteps, interval int) RunConfig {
	cfg := DefaultDynamics()
	cfg.NSteps = nsteps
	cfg.UploadInterval = interval
	cfg.Seed = 11
	return cfg
}

func TestDynamicsRun(t *testing.T) {
	ctx := context.Background()
	sess := history(t, 10, 4)
	backend := new(countingBackend)
	C := &Controller{Session: sess, Backend: backend, Logger: quietLogger()}
	rep, err := C.Run(ctx, dynamicsConfig(25, 10))
	require.NoError(t, err)
	assert.Equal(t, Done, rep.State)
	assert.Equal(t, 4, rep.Start)
	assert.Equal(t, 5, rep.Removed)
	assert.Equal(t, 25, rep.Frames)
	assert.Equal(t, []int{10, 10, 5}, sess.Batches())
	n, _ := sess.Len(ctx)
	assert.Equal(t, 5+25, n)
	b, _ := sess.Bookmarks(ctx)
	assert.Equal(t, map[int]string{4: "Molecular dynamics"}, b)
	assert.Positive(t, backend.calls)

	frames := sess.Frames()
	last := frames[len(frames)-1]
	_, hasEnergy := last.Energy()
	_, hasForces := last.Forces()
	assert.True(t, hasEnergy)
	assert.True(t, hasForces)
	//the frames are the trajectory, not copies of the same state
	assert.NotEqual(t, frames[5].Positions().RawMatrix().Data, last.Positions().RawMatrix().Data)
}

func TestOptimizationCeiling(t *testing.T) {
	for _, fmax := range []float64{0.05, 0.5} {
		sess := history(t, 1, 0)
		C := &Controller{Session: sess, Backend: constantForce{}, Logger: quietLogger()}
		cfg := DefaultOptimization()
		cfg.Optimizer = opt.FIRE
		cfg.FMax = fmax
		rep, err := C.Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.False(t, rep.Converged)
		//indexes 0 to 101, both included
		assert.Equal(t, 102, rep.Frames)
		n, _ := sess.Len(context.Background())
		assert.Equal(t, 1+102, n)
		b, _ := sess.Bookmarks(context.Background())
		assert.Equal(t, map[int]string{0: "Geometric optimization"}, b)
	}
}

func TestOptimizationConverges(t *testing.T) {
	pos, err := v3.NewMatrix([]float64{0, 0, 0, 1.3, 0, 0, 0.6, 1.0, 0.1})
	require.NoError(t, err)
	s, err := chem.NewStructure([]int{18, 18, 18}, pos, nil, [3]bool{})
	require.NoError(t, err)
	start, err := chem.NewSnapshot(s)
	require.NoError(t, err)
	sess := &spySession{Memory: session.NewMemory(start, start, start)}
	C := &Controller{Session: sess, Logger: quietLogger()}
	cfg := DefaultOptimization()
	cfg.Model = ModelLJ
	cfg.FMax = 0.01
	rep, err := C.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, rep.Converged)
	assert.Equal(t, 2, rep.Start)
	assert.Less(t, rep.Frames, 102)
	n, _ := sess.Len(context.Background())
	assert.Equal(t, 3+rep.Frames, n)
	last, _ := sess.Frames()[n-1].Forces()
	assert.Less(t, last.MaxVecNorm(), 0.01)
}

func TestRejections(t *testing.T) {
	ctx := context.Background()
	sess := history(t, 10, 4)
	backend := new(countingBackend)
	C := &Controller{Session: sess, Backend: backend, Logger: quietLogger()}
	var cerr *ConfigurationError

	rep, err := C.Run(ctx, dynamicsConfig(1001, 10))
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "n_steps", cerr.Field)
	assert.Equal(t, Rejected, rep.State)

	big := &spySession{Memory: session.NewMemory(argon(t, 1001))}
	C.Session = big
	rep, err = C.Run(ctx, dynamicsConfig(10, 10))
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "atoms", cerr.Field)
	assert.Equal(t, Rejected, rep.State)
	assert.Zero(t, big.deletes+big.upserts+big.extends)

	C.Session = sess
	//the operator can lower the ceilings, never raise them
	high := DefaultOptimization()
	high.Ceiling = 300
	rep, err = C.Run(ctx, high)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "ceiling", cerr.Field)
	assert.Equal(t, Rejected, rep.State)
	high = dynamicsConfig(10, 10)
	high.Ceiling = DynamicsCeiling + 1
	_, err = C.Run(ctx, high)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "ceiling", cerr.Field)

	bad := []RunConfig{dynamicsConfig(10, 0)}
	cfg := dynamicsConfig(10, 10)
	cfg.Model = "MACE-MP-0"
	bad = append(bad, cfg)
	cfg = dynamicsConfig(10, 10)
	cfg.TimeStep = 0
	bad = append(bad, cfg)
	cfg = DefaultOptimization()
	cfg.Optimizer = "MDMin"
	bad = append(bad, cfg)
	cfg = DefaultOptimization()
	cfg.FMax = -1
	bad = append(bad, cfg)
	cfg = DefaultOptimization()
	cfg.Kind = "Packmol"
	bad = append(bad, cfg)
	for _, c := range bad {
		_, err := C.Run(ctx, c)
		assert.ErrorAs(t, err, &cerr, "%+v", c)
	}

	//the default model needs a default backend
	C.Backend = nil
	_, err = C.Run(ctx, dynamicsConfig(10, 10))
	assert.ErrorAs(t, err, &cerr)

	n, _ := sess.Len(ctx)
	assert.Equal(t, 10, n)
	assert.Zero(t, sess.deletes+sess.upserts+sess.extends)
	assert.Zero(t, backend.calls)
}

func TestSnapshotFailureFlushes(t *testing.T) {
	sess := history(t, 1, 0)
	//step n of the dynamics ends with the call n+1, so the snapshot of step 6 fails.
	backend := &countingBackend{corruptAt: 7}
	C := &Controller{Session: sess, Backend: backend, Logger: quietLogger()}
	rep, err := C.Run(context.Background(), dynamicsConfig(20, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, chem.ErrInvalidStructureState)
	assert.Equal(t, Done, rep.State)
	assert.Equal(t, 5, rep.Frames)
	assert.Equal(t, []int{2, 2, 1}, sess.Batches())
	n, _ := sess.Len(context.Background())
	assert.Equal(t, 1+5, n)
}

func TestTransmissionFailure(t *testing.T) {
	sess := history(t, 1, 0)
	sess.failExtendAt = 2
	C := &Controller{Session: sess, Backend: new(countingBackend), Logger: quietLogger()}
	rep, err := C.Run(context.Background(), dynamicsConfig(25, 10))
	require.Error(t, err)
	assert.Equal(t, 10, rep.Frames)
	//the failed batch is not sent again, and the run stops there
	assert.Equal(t, 2, sess.extends)
	n, _ := sess.Len(context.Background())
	assert.Equal(t, 1+10, n)
}

func TestCancelledRunFlushes(t *testing.T) {
	sess := history(t, 1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	backend := &cancellingBackend{cancel: cancel, at: 8}
	C := &Controller{Session: sess, Backend: backend, Logger: quietLogger()}
	rep, err := C.Run(ctx, dynamicsConfig(50, 4))
	require.ErrorIs(t, err, context.Canceled)
	n, _ := sess.Len(context.Background())
	assert.Equal(t, 1+rep.Frames, n)
	assert.Positive(t, rep.Frames)
}

// cancellingBackend cancels the run's context at the given call.
type cancellingBackend struct {
	countingBackend
	cancel context.CancelFunc
	at     int
}

func (c *cancellingBackend) Calculate(ctx context.Context, s *chem.Structure) (*chem.Results, error) {
	r, err := c.countingBackend.Calculate(ctx, s)
	if c.calls == c.at {
		c.cancel()
	}
	return r, err
}

func TestHandle(t *testing.T) {
	ctx := context.Background()
	sess := history(t, 1, 0)
	C := &Controller{Session: sess, Logger: quietLogger()}
	rep, err := C.Handle(ctx, "MolecularDynamics", json.RawMessage(`{"model":"LJ","n_steps":7,"upload_interval":3,"seed":5}`))
	require.NoError(t, err)
	assert.Equal(t, MolecularDynamics, rep.Kind)
	assert.Equal(t, 7, rep.Frames)
	assert.Equal(t, []int{3, 3, 1}, sess.Batches())

	var cerr *ConfigurationError
	_, err = C.Handle(ctx, "Packmol", nil)
	assert.ErrorAs(t, err, &cerr)
	_, err = C.Handle(ctx, "GeomOpt", json.RawMessage(`{"ceiling":100000}`))
	assert.ErrorAs(t, err, &cerr)
	_, err = C.Handle(ctx, "GeomOpt", json.RawMessage(`{"fmax":"big"}`))
	assert.ErrorAs(t, err, &cerr)

	//operator defaults are used for missing fields
	C.Defaults = map[Kind]RunConfig{GeomOpt: DefaultOptimization()}
	d := C.Defaults[GeomOpt]
	d.Model = ModelLJ
	d.FMax = 0.5
	C.Defaults[GeomOpt] = d
	rep, err = C.Handle(ctx, "GeomOpt", nil)
	require.NoError(t, err)
	assert.True(t, rep.Converged)
}

type memJournal struct {
	started  []RunConfig
	finished []*Report
	errs     []error
}

func (j *memJournal) Start(ctx context.Context, cfg RunConfig) (int64, error) {
	j.started = append(j.started, cfg)
	return int64(len(j.started)), nil
}

func (j *memJournal) Finish(ctx context.Context, id int64, rep *Report, runErr error) error {
	j.finished = append(j.finished, rep)
	j.errs = append(j.errs, runErr)
	return nil
}

type memArchive struct {
	recordingSink
	closed bool
}

func (a *memArchive) Close(ctx context.Context) error {
	a.closed = true
	return nil
}

func TestJournalAndArchive(t *testing.T) {
	ctx := context.Background()
	sess := history(t, 1, 0)
	j := new(memJournal)
	var archives []*memArchive
	C := &Controller{
		Session: sess,
		Journal: j,
		Logger:  quietLogger(),
		NewArchive: func(ctx context.Context, cfg RunConfig) (Archive, error) {
			a := &memArchive{recordingSink: recordingSink{failAt: 2}}
			archives = append(archives, a)
			return a, nil
		},
	}
	cfg := dynamicsConfig(9, 3)
	cfg.Model = ModelLJ
	rep, err := C.Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 9, rep.Frames)
	require.Len(t, archives, 1)
	assert.True(t, archives[0].closed)
	//the failure of the archive doesn't affect the run
	assert.Len(t, archives[0].batches, 2)
	assert.Equal(t, 3, archives[0].calls)

	_, err = C.Run(ctx, dynamicsConfig(5000, 3))
	require.Error(t, err)
	require.Len(t, j.started, 2)
	require.Len(t, j.finished, 2)
	assert.Equal(t, Done, j.finished[0].State)
	assert.NoError(t, j.errs[0])
	assert.Equal(t, Rejected, j.finished[1].State)
	assert.Error(t, j.errs[1])
	assert.Len(t, archives, 1)
}

type fakeRegistrar struct {
	kinds    []string
	public   []bool
	defaults []any
}

func (f *fakeRegistrar) Register(ctx context.Context, kind string, public bool, defaults any) error {
	f.kinds = append(f.kinds, kind)
	f.public = append(f.public, public)
	f.defaults = append(f.defaults, defaults)
	return nil
}

func TestRegister(t *testing.T) {
	r := new(fakeRegistrar)
	custom := DefaultDynamics()
	custom.Temperature = 500
	require.NoError(t, Register(context.Background(), r, true, map[Kind]RunConfig{MolecularDynamics: custom}))
	assert.Equal(t, []string{"MolecularDynamics", "GeomOpt"}, r.kinds)
	assert.Equal(t, []bool{true, true}, r.public)
	raw, err := json.Marshal(r.defaults[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"default","temperature":500,"time_step":0.5,"n_steps":100,"friction":0.002,"upload_interval":10}`, string(raw))
	raw, _ = json.Marshal(r.defaults[1])
	assert.JSONEq(t, `{"model":"default","optimizer":"LBFGS","fmax":0.05,"upload_interval":10}`, string(raw))
}
