/*
 * session.go, part of chemlive.
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

/*
Package session defines the remote viewing session that chemlive runs report to, and
provides two implementations: Memory, an in-process session, and Client, which talks
to a remote visualization service over a websocket.

A session holds an ordered history of frames, a viewing index (the frame the user is
looking at), the live structure at that index, and a set of bookmarks (labels attached
to frame indexes).
*/
package session

import (
	"context"
	"errors"

	chem "github.com/rmera/chemlive"
)

// ErrOutOfRange is matched by the errors returned when a frame index is invalid.
var ErrOutOfRange = errors.New("frame index out of range")

// ErrClosed is returned by the operations of a session whose connection is gone.
var ErrClosed = errors.New("session closed")

// Session is the contract a viewing session fulfills.
type Session interface {
	//Len returns the number of frames in the history.
	Len(ctx context.Context) (int, error)
	//Step returns the viewing index.
	Step(ctx context.Context) (int, error)
	//DeleteFrom deletes the frames from index start, included, to the end of the history.
	DeleteFrom(ctx context.Context, start int) error
	//Append adds one frame at the end of the history.
	Append(ctx context.Context, frame *chem.Snapshot) error
	//Extend adds several frames, in order, at the end of the history.
	Extend(ctx context.Context, frames []*chem.Snapshot) error
	//Structure returns a new live structure with the geometry of the frame at the viewing index.
	Structure(ctx context.Context) (*chem.Structure, error)
	//SetStructure replaces the frame at the viewing index.
	SetStructure(ctx context.Context, frame *chem.Snapshot) error
	//Bookmarks returns a copy of the bookmarks.
	Bookmarks(ctx context.Context) (map[int]string, error)
	//UpsertBookmarks adds the given bookmarks, replacing existing labels for the same indexes.
	UpsertBookmarks(ctx context.Context, marks map[int]string) error
}
