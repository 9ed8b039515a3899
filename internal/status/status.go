/*
 * status.go, part of chemlive.
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

// Package status serves a small HTTP surface to check on a running chemlive
// process: whether it is connected, and the last runs it performed.
package status

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rmera/chemlive/runlog"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// RunLister gives the last runs performed.
type RunLister interface {
	Recent(ctx context.Context, n int) ([]runlog.Entry, error)
}

// Service holds what the status endpoints report. Any of its fields may be nil.
type Service struct {
	Runs      RunLister
	Connected func() bool
	Cache     func() (hits, misses int64)
	Logger    *log.Logger
}

// Health is the body of GET /healthz.
type Health struct {
	Status      string `json:"status"`
	Connected   bool   `json:"connected"`
	CacheHits   int64  `json:"cache_hits"`
	CacheMisses int64  `json:"cache_misses"`
}

// RegisterHTTP adds the status endpoints to r.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/runs", s.handleRuns)
}

// Router returns a router with the status endpoints.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{Status: "ok"}
	if s.Connected != nil {
		h.Connected = s.Connected()
	}
	if s.Cache != nil {
		h.CacheHits, h.CacheMisses = s.Cache()
	}
	s.writeJSON(w, http.StatusOK, h)
}

func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		http.Error(w, "No run ledger", http.StatusServiceUnavailable)
		return
	}
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLimit)
	}
	entries, err := s.Runs.Recent(r.Context(), limit)
	if err != nil {
		s.logger().Printf("status: listing runs: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []runlog.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Service) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger().Printf("status: writing response: %v", err)
	}
}

func (s *Service) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}
