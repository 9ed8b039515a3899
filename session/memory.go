/*
 * memory.go, part of chemlive.
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

package session

import (
	"context"
	"fmt"
	"sync"

	chem "github.com/rmera/chemlive"
)

// Memory is a Session kept in the process memory. It is safe for concurrent use.
// Besides the frames, it records the size of every Extend call it receives.
type Memory struct {
	mu        sync.Mutex
	frames    []*chem.Snapshot
	step      int
	bookmarks map[int]string
	batches   []int
}

// NewMemory returns a session with the given frames, viewing the last one.
func NewMemory(frames ...*chem.Snapshot) *Memory {
	return &Memory{
		frames:    append([]*chem.Snapshot(nil), frames...),
		step:      max(len(frames)-1, 0),
		bookmarks: make(map[int]string),
	}
}

// Len returns the number of frames in the history.
func (M *Memory) Len(ctx context.Context) (int, error) {
	M.mu.Lock()
	defer M.mu.Unlock()
	return len(M.frames), nil
}

// Step returns the viewing index.
func (M *Memory) Step(ctx context.Context) (int, error) {
	M.mu.Lock()
	defer M.mu.Unlock()
	return M.step, nil
}

// SetStep sets the viewing index, as a user rewinding the viewer would.
func (M *Memory) SetStep(step int) error {
	M.mu.Lock()
	defer M.mu.Unlock()
	if step < 0 || step >= len(M.frames) {
		return fmt.Errorf("step %d of %d frames: %w", step, len(M.frames), ErrOutOfRange)
	}
	M.step = step
	return nil
}

// DeleteFrom deletes the frames from start to the end of the history. The viewing index
// is moved back to the last remaining frame if it was among the deleted ones.
func (M *Memory) DeleteFrom(ctx context.Context, start int) error {
	M.mu.Lock()
	defer M.mu.Unlock()
	if start < 0 || start > len(M.frames) {
		return fmt.Errorf("delete from %d of %d frames: %w", start, len(M.frames), ErrOutOfRange)
	}
	clear(M.frames[start:])
	M.frames = M.frames[:start]
	if M.step >= len(M.frames) {
		M.step = max(len(M.frames)-1, 0)
	}
	return nil
}

// Append adds frame at the end of the history.
func (M *Memory) Append(ctx context.Context, frame *chem.Snapshot) error {
	if frame == nil {
		return fmt.Errorf("append: nil frame: %w", chem.ErrInvalidStructureState)
	}
	M.mu.Lock()
	defer M.mu.Unlock()
	M.frames = append(M.frames, frame)
	return nil
}

// Extend adds frames, in order, at the end of the history.
func (M *Memory) Extend(ctx context.Context, frames []*chem.Snapshot) error {
	for i, f := range frames {
		if f == nil {
			return fmt.Errorf("extend: nil frame %d: %w", i, chem.ErrInvalidStructureState)
		}
	}
	M.mu.Lock()
	defer M.mu.Unlock()
	M.frames = append(M.frames, frames...)
	M.batches = append(M.batches, len(frames))
	return nil
}

// Structure returns a new structure with the geometry of the frame at the viewing index.
func (M *Memory) Structure(ctx context.Context) (*chem.Structure, error) {
	M.mu.Lock()
	defer M.mu.Unlock()
	if len(M.frames) == 0 {
		return nil, fmt.Errorf("structure of an empty session: %w", ErrOutOfRange)
	}
	return M.frames[M.step].Structure(), nil
}

// SetStructure replaces the frame at the viewing index, or appends it if the session is empty.
func (M *Memory) SetStructure(ctx context.Context, frame *chem.Snapshot) error {
	if frame == nil {
		return fmt.Errorf("set structure: nil frame: %w", chem.ErrInvalidStructureState)
	}
	M.mu.Lock()
	defer M.mu.Unlock()
	if len(M.frames) == 0 {
		M.frames = append(M.frames, frame)
		return nil
	}
	M.frames[M.step] = frame
	return nil
}

// Bookmarks returns a copy of the bookmarks.
func (M *Memory) Bookmarks(ctx context.Context) (map[int]string, error) {
	M.mu.Lock()
	defer M.mu.Unlock()
	ret := make(map[int]string, len(M.bookmarks))
	for k, v := range M.bookmarks {
		ret[k] = v
	}
	return ret, nil
}

// UpsertBookmarks merges marks into the bookmarks.
func (M *Memory) UpsertBookmarks(ctx context.Context, marks map[int]string) error {
	M.mu.Lock()
	defer M.mu.Unlock()
	for k, v := range marks {
		M.bookmarks[k] = v
	}
	return nil
}

// Frames returns the frames in the history. The snapshots are immutable, so they are not copied.
func (M *Memory) Frames() []*chem.Snapshot {
	M.mu.Lock()
	defer M.mu.Unlock()
	return append([]*chem.Snapshot(nil), M.frames...)
}

// Batches returns the sizes of the Extend calls received so far, in order.
func (M *Memory) Batches() []int {
	M.mu.Lock()
	defer M.mu.Unlock()
	return append([]int(nil), M.batches...)
}
