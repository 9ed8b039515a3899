/*
 * runlog.go, part of chemlive.
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

// Package runlog keeps a ledger of the runs performed, in a SQLite database,
// so an operator can see which runs failed and why.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rmera/chemlive/modifier"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    kind        TEXT NOT NULL,
    model       TEXT NOT NULL DEFAULT '',
    config      TEXT NOT NULL DEFAULT '{}',
    state       TEXT NOT NULL DEFAULT 'validating',
    start_index INTEGER NOT NULL DEFAULT 0,
    removed     INTEGER NOT NULL DEFAULT 0,
    frames      INTEGER NOT NULL DEFAULT 0,
    converged   INTEGER NOT NULL DEFAULT 0 CHECK(converged IN (0, 1)),
    error       TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    finished_at INTEGER,
    elapsed_ms  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Ledger records runs in a SQLite database. It implements modifier.Journal.
type Ledger struct {
	db *sql.DB
}

// Entry is one run of the ledger.
type Entry struct {
	ID         int64           `json:"id"`
	Kind       string          `json:"kind"`
	Model      string          `json:"model"`
	Config     json.RawMessage `json:"config"`
	State      string          `json:"state"`
	StartIndex int             `json:"start_index"`
	Removed    int             `json:"removed"`
	Frames     int             `json:"frames"`
	Converged  bool            `json:"converged"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Elapsed    time.Duration   `json:"elapsed_ns"`
}

// Open opens (creating it if needed) the ledger at path, with WAL journaling and a
// busy timeout, so the status server can read while a run is recorded.
func Open(path string) (*Ledger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("runlog: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own database otherwise.
		db.SetMaxOpenConns(1)
	}
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("runlog: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: exec schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: ping: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (L *Ledger) Close() error {
	return L.db.Close()
}

// Start records the beginning of a run and returns its id.
func (L *Ledger) Start(ctx context.Context, cfg modifier.RunConfig) (int64, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("runlog: encoding config: %w", err)
	}
	res, err := L.db.ExecContext(ctx,
		`INSERT INTO runs (kind, model, config, started_at) VALUES (?, ?, ?, ?)`,
		string(cfg.Kind), string(cfg.Model), string(raw), time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("runlog: start: %w", err)
	}
	return res.LastInsertId()
}

// Finish records how the run id ended.
func (L *Ledger) Finish(ctx context.Context, id int64, rep *modifier.Report, runErr error) error {
	if rep == nil {
		rep = &modifier.Report{}
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := L.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, start_index = ?, removed = ?, frames = ?, converged = ?,
		 error = ?, finished_at = ?, elapsed_ms = ? WHERE id = ?`,
		rep.State.String(), rep.Start, rep.Removed, rep.Frames, rep.Converged,
		msg, time.Now().UnixMilli(), rep.Elapsed.Milliseconds(), id)
	if err != nil {
		return fmt.Errorf("runlog: finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("runlog: finish: no run with id %d", id)
	}
	return nil
}

// Recent returns the last n runs, the newest first.
func (L *Ledger) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, errors.New("runlog: the number of runs must be positive")
	}
	rows, err := L.db.QueryContext(ctx,
		`SELECT id, kind, model, config, state, start_index, removed, frames, converged,
		 error, started_at, finished_at, elapsed_ms FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("runlog: recent: %w", err)
	}
	defer rows.Close()
	var ret []Entry
	for rows.Next() {
		var e Entry
		var config string
		var started, elapsed int64
		var finished sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Kind, &e.Model, &config, &e.State, &e.StartIndex, &e.Removed,
			&e.Frames, &e.Converged, &e.Error, &started, &finished, &elapsed); err != nil {
			return nil, fmt.Errorf("runlog: recent: %w", err)
		}
		e.Config = json.RawMessage(config)
		e.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			t := time.UnixMilli(finished.Int64)
			e.FinishedAt = &t
		}
		e.Elapsed = time.Duration(elapsed) * time.Millisecond
		ret = append(ret, e)
	}
	return ret, rows.Err()
}
