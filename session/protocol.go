/*
 * protocol.go, part of chemlive.
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
	"encoding/json"
	"fmt"

	chem "github.com/rmera/chemlive"
)

// Message is the envelope of everything sent over the websocket, in both directions.
// A request carries a type, an id and, for some types, a payload. The answer to a request
// is a message of type "result" with the same id, and either a payload or an error.
// The service sends "run" messages to start a registered run kind; those are answered
// with a "run_done" message with the same id.
type Message struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Message types.
const (
	TypeLen             = "len"
	TypeStep            = "step"
	TypeDelete          = "delete"
	TypeAppend          = "append"
	TypeExtend          = "extend"
	TypeStructure       = "structure"
	TypeSetStructure    = "set_structure"
	TypeBookmarks       = "bookmarks"
	TypeUpsertBookmarks = "upsert_bookmarks"
	TypeRegister        = "register"
	TypeResult          = "result"
	TypeRun             = "run"
	TypeRunDone         = "run_done"
)

// IntValue is the payload of the len and step results.
type IntValue struct {
	Value int `json:"value"`
}

// DeletePayload is the payload of a delete request.
type DeletePayload struct {
	Start int `json:"start"`
}

// FramePayload is the payload of the append and set_structure requests, and of the structure result.
type FramePayload struct {
	Frame *chem.Snapshot `json:"frame"`
}

// FramesPayload is the payload of an extend request.
type FramesPayload struct {
	Frames []*chem.Snapshot `json:"frames"`
}

// BookmarksPayload is the payload of an upsert_bookmarks request and of the bookmarks result.
type BookmarksPayload struct {
	Bookmarks map[int]string `json:"bookmarks"`
}

// RegisterPayload is the payload of a register request.
type RegisterPayload struct {
	Kind     string          `json:"kind"`
	Public   bool            `json:"public"`
	Defaults json.RawMessage `json:"defaults,omitempty"`
}

// RunRequest is a run the service asks for: the kind registered, and the
// configuration the user chose, in JSON.
type RunRequest struct {
	ID     uint64
	Kind   string
	Config json.RawMessage
}

// RemoteError is an error reported by the service for a request.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("session %s: %s", e.Op, e.Message)
}
