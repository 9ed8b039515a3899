/*
 * main.go, part of chemlive.
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

// Command chemlive offers molecular dynamics and geometry optimization runs to a
// remote visualization service, and streams the frames they produce back to it.
// With -local, it performs one run on a structure file instead, and writes the
// resulting frames to an XYZ file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	chem "github.com/rmera/chemlive"
	"github.com/rmera/chemlive/archive"
	"github.com/rmera/chemlive/calc"
	"github.com/rmera/chemlive/internal/config"
	"github.com/rmera/chemlive/internal/status"
	"github.com/rmera/chemlive/modifier"
	"github.com/rmera/chemlive/runlog"
	"github.com/rmera/chemlive/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	xtb := calc.NewXTB()
	xtb.Command = cfg.XTBCommand
	xtb.Method = cfg.XTBMethod
	xtb.NCPU = cfg.XTBCPUs
	backend, err := calc.NewCached(xtb, cfg.CacheSize)
	if err != nil {
		return err
	}
	if cfg.Local != "" {
		return runLocal(ctx, cfg, backend)
	}

	ledger, err := runlog.Open(filepath.Join(cfg.DataDir, "runs.db"))
	if err != nil {
		return err
	}
	defer ledger.Close()
	ctrl := &modifier.Controller{
		Backend:  backend,
		Defaults: cfg.Defaults,
		Journal:  ledger,
		Logger:   log.Default(),
	}
	if cfg.Archive {
		var store archive.Store
		if cfg.S3.Enabled {
			s3, err := archive.NewS3Store(archive.S3Config{
				Endpoint:  cfg.S3.Endpoint,
				Region:    cfg.S3.Region,
				AccessKey: cfg.S3.AccessKey,
				SecretKey: cfg.S3.SecretKey,
				Bucket:    cfg.S3.Bucket,
				Prefix:    cfg.S3.Prefix,
				UseSSL:    cfg.S3.UseSSL,
			})
			if err != nil {
				return err
			}
			store = s3
		}
		ctrl.NewArchive = archive.Factory(filepath.Join(cfg.DataDir, "runs"), store, ctrl.Logger)
	}

	var connected atomic.Bool
	if cfg.StatusAddr != "" {
		st := &status.Service{Runs: ledger, Connected: connected.Load, Cache: backend.Stats}
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           st.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
		}
		go func() {
			log.Printf("status server on %s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("status server: %v", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			srv.Shutdown(sctx)
		}()
	}

	backoff := time.Second
	for {
		client, err := session.Dial(ctx, session.Config{URL: cfg.URL, Token: cfg.Token, AuthToken: cfg.AuthToken})
		if err == nil {
			backoff = time.Second
			connected.Store(true)
			err = serve(ctx, client, ctrl, cfg)
			connected.Store(false)
			client.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("connection lost: %v, retrying in %s", err, backoff)
		select {
		case <-time.After(backoff):
			backoff = min(2*backoff, cfg.ReconnectMax)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// serve registers the run kinds with the service and performs the runs it requests,
// one at a time, until the connection is lost. A run in progress when that happens
// is abandoned.
func serve(ctx context.Context, client *session.Client, ctrl *modifier.Controller, cfg *config.Config) error {
	if err := modifier.Register(ctx, client, cfg.Public, cfg.Defaults); err != nil {
		return err
	}
	log.Printf("connected to %s, waiting for runs", cfg.URL)
	ctrl.Session = client
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-client.Done():
			return client.Err()
		case req, ok := <-client.Runs():
			if !ok {
				<-client.Done()
				return client.Err()
			}
			rctx, cancel := context.WithCancel(ctx)
			go func() {
				select {
				case <-client.Done():
					cancel()
				case <-rctx.Done():
				}
			}()
			rep, runErr := ctrl.Handle(rctx, req.Kind, req.Config)
			cancel()
			if runErr != nil {
				log.Printf("%s: run %d failed in state %s: %v", req.Kind, req.ID, rep.State, runErr)
			} else {
				log.Printf("%s: run %d done, %d frames in %s", req.Kind, req.ID, rep.Frames, rep.Elapsed.Round(time.Millisecond))
			}
			if err := client.Complete(ctx, req.ID, runErr); err != nil {
				return err
			}
		}
	}
}

// runLocal performs one run on the last structure of the file given with -local,
// against an in-memory history, and writes the whole history to the -out file.
func runLocal(ctx context.Context, cfg *config.Config, backend chem.Calculator) error {
	structures, err := chem.XYZFileRead(cfg.Local)
	if err != nil {
		return err
	}
	frames := make([]*chem.Snapshot, len(structures))
	for i, s := range structures {
		if frames[i], err = chem.NewSnapshot(s); err != nil {
			return fmt.Errorf("%s frame %d: %w", cfg.Local, i, err)
		}
	}
	mem := session.NewMemory(frames...)
	ctrl := &modifier.Controller{Session: mem, Backend: backend, Defaults: cfg.Defaults, Logger: log.Default()}
	if cfg.Archive {
		ctrl.NewArchive = archive.Factory(filepath.Join(cfg.DataDir, "runs"), nil, ctrl.Logger)
	}
	rep, err := ctrl.Handle(ctx, cfg.Kind, json.RawMessage(cfg.ConfigJSON))
	if err != nil {
		return err
	}
	out := make([]*chem.Structure, 0, len(mem.Frames()))
	for _, f := range mem.Frames() {
		out = append(out, f.Structure())
	}
	if err := chem.XYZFileWrite(cfg.Out, out...); err != nil {
		return err
	}
	log.Printf("%s: %d frames written to %s (converged: %t)", cfg.Kind, rep.Frames, cfg.Out, rep.Converged)
	return nil
}
