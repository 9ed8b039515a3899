/*
 * status_test.go, part of chemlive.
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

package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/chemlive/runlog"
)

type fakeRuns struct {
	entries []runlog.Entry
	asked   int
	err     error
}

func (f *fakeRuns) Recent(ctx context.Context, n int) ([]runlog.Entry, error) {
	f.asked = n
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.entries) {
		return f.entries[:n], nil
	}
	return f.entries, nil
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := &Service{
		Connected: func() bool { return true },
		Cache:     func() (int64, int64) { return 3, 4 },
	}
	rec := get(t, s.Router(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var h Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&h))
	assert.Equal(t, Health{Status: "ok", Connected: true, CacheHits: 3, CacheMisses: 4}, h)

	rec = get(t, (&Service{}).Router(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRuns(t *testing.T) {
	runs := &fakeRuns{entries: []runlog.Entry{{ID: 2, Kind: "GeomOpt", State: "done"}, {ID: 1, Kind: "MolecularDynamics", State: "rejected", Error: "n_steps"}}}
	s := &Service{Runs: runs, Logger: log.New(io.Discard, "", 0)}
	h := s.Router()

	rec := get(t, h, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultLimit, runs.asked)
	var got []runlog.Entry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "rejected", got[1].State)

	rec = get(t, h, "/runs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runs.asked)

	get(t, h, "/runs?limit=100000")
	assert.Equal(t, maxLimit, runs.asked)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/runs?limit=-3").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/nothing").Code)

	runs.err = errors.New("database is locked")
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/runs").Code)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, (&Service{}).Router(), "/runs").Code)
}

func TestRunsEmpty(t *testing.T) {
	rec := get(t, (&Service{Runs: &fakeRuns{}}).Router(), "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
