/*
 * batcher.go, part of chemlive.
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
	"context"

	chem "github.com/rmera/chemlive"
)

// Sink receives batches of frames.
type Sink interface {
	Extend(ctx context.Context, frames []*chem.Snapshot) error
}

// Batcher accumulates snapshots and sends them to a sink in batches of a fixed size.
// Batches are sent in order, one at a time, from the goroutine that calls Push or Flush.
// A batch is taken out of the buffer before it is sent, so a batch that fails to be
// sent is lost, and never sent again.
type Batcher struct {
	sink    Sink
	size    int
	buf     []*chem.Snapshot
	sent    int
	batches int
}

// NewBatcher returns a batcher that sends batches of size snapshots to sink.
func NewBatcher(sink Sink, size int) (*Batcher, error) {
	if size < 1 {
		return nil, &ConfigurationError{Field: "upload_interval", Value: size, Reason: "must be at least 1"}
	}
	return &Batcher{sink: sink, size: size, buf: make([]*chem.Snapshot, 0, size)}, nil
}

// Push adds snap to the buffer, and sends the buffer if it is full.
func (B *Batcher) Push(ctx context.Context, snap *chem.Snapshot) error {
	B.buf = append(B.buf, snap)
	if len(B.buf) < B.size {
		return nil
	}
	return B.Flush(ctx)
}

// Flush sends whatever is in the buffer. It does nothing if the buffer is empty.
func (B *Batcher) Flush(ctx context.Context) error {
	if len(B.buf) == 0 {
		return nil
	}
	frames := B.buf
	B.buf = make([]*chem.Snapshot, 0, B.size)
	if err := B.sink.Extend(ctx, frames); err != nil {
		return err
	}
	B.sent += len(frames)
	B.batches++
	return nil
}

// Sent returns the number of snapshots successfully sent.
func (B *Batcher) Sent() int { return B.sent }

// Batches returns the number of batches successfully sent.
func (B *Batcher) Batches() int { return B.batches }

// Pending returns the number of snapshots waiting in the buffer.
func (B *Batcher) Pending() int { return len(B.buf) }

type tee []Sink

// Tee returns a sink that gives each batch to every one of sinks, in order. It stops at,
// and returns, the first error.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Extend(ctx context.Context, frames []*chem.Snapshot) error {
	for _, s := range t {
		if err := s.Extend(ctx, frames); err != nil {
			return err
		}
	}
	return nil
}
