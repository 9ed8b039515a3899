/*
 * client.go, part of chemlive.
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
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	chem "github.com/rmera/chemlive"
)

const (
	writeWait   = 10 * time.Second
	runsBacklog = 8
)

// Config holds what is needed to connect to the service.
type Config struct {
	URL       string //websocket URL, ws:// or wss://
	Token     string //sent as a bearer token, if not empty
	AuthToken string //sent in the X-Auth-Token header, if not empty
	Logger    *log.Logger
}

// Client is a Session backed by a remote service, reached through a websocket.
// All its methods are safe for concurrent use. Once the connection is lost, every
// operation fails with an error matching ErrClosed, and Done is closed.
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger
	nextID atomic.Uint64

	wmu sync.Mutex //serializes writes

	mu      sync.Mutex
	pending map[uint64]chan *Message
	err     error

	runs      chan *RunRequest
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the service and starts reading from it.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}
	if cfg.AuthToken != "" {
		header.Set("X-Auth-Token", cfg.AuthToken)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	C := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[uint64]chan *Message),
		runs:    make(chan *RunRequest, runsBacklog),
		done:    make(chan struct{}),
	}
	go C.readLoop()
	return C, nil
}

func (C *Client) readLoop() {
	defer close(C.runs)
	for {
		m := new(Message)
		if err := C.conn.ReadJSON(m); err != nil {
			C.shutdown(err)
			return
		}
		switch m.Type {
		case TypeResult:
			C.mu.Lock()
			ch, ok := C.pending[m.ID]
			delete(C.pending, m.ID)
			C.mu.Unlock()
			if !ok {
				C.logger.Printf("session: result for unknown request %d", m.ID)
				continue
			}
			ch <- m
		case TypeRun:
			req := &RunRequest{ID: m.ID, Kind: m.Kind, Config: m.Payload}
			select {
			case C.runs <- req:
			default:
				C.logger.Printf("session: too many pending runs, refusing %s run %d", m.Kind, m.ID)
				go C.Complete(context.Background(), m.ID, fmt.Errorf("too many pending runs"))
			}
		default:
			C.logger.Printf("session: ignoring message of type %q", m.Type)
		}
	}
}

// shutdown records err as the reason the client stopped, and releases everyone waiting.
func (C *Client) shutdown(err error) {
	C.closeOnce.Do(func() {
		C.mu.Lock()
		C.err = fmt.Errorf("%w: %v", ErrClosed, err)
		for id, ch := range C.pending {
			close(ch)
			delete(C.pending, id)
		}
		C.mu.Unlock()
		close(C.done)
		C.conn.Close()
	})
}

func (C *Client) write(m *Message) error {
	C.wmu.Lock()
	defer C.wmu.Unlock()
	if err := C.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return C.conn.WriteJSON(m)
}

// call sends a request of type typ with the given payload and waits for its result,
// which is decoded into result, if not nil.
func (C *Client) call(ctx context.Context, typ string, payload, result any) error {
	m := &Message{Type: typ, ID: C.nextID.Add(1)}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("session %s: %w", typ, err)
		}
		m.Payload = raw
	}
	ch := make(chan *Message, 1)
	C.mu.Lock()
	if C.err != nil {
		err := C.err
		C.mu.Unlock()
		return err
	}
	C.pending[m.ID] = ch
	C.mu.Unlock()
	if err := C.write(m); err != nil {
		C.shutdown(err)
		return C.Err()
	}
	var resp *Message
	select {
	case <-ctx.Done():
		C.mu.Lock()
		delete(C.pending, m.ID)
		C.mu.Unlock()
		return ctx.Err()
	case r, ok := <-ch:
		if !ok {
			return C.Err()
		}
		resp = r
	}
	if resp.Error != "" {
		return &RemoteError{Op: typ, Message: resp.Error}
	}
	if result != nil {
		if err := json.Unmarshal(resp.Payload, result); err != nil {
			return fmt.Errorf("session %s: decoding result: %w", typ, err)
		}
	}
	return nil
}

// Len returns the number of frames in the remote history.
func (C *Client) Len(ctx context.Context) (int, error) {
	var v IntValue
	err := C.call(ctx, TypeLen, nil, &v)
	return v.Value, err
}

// Step returns the remote viewing index.
func (C *Client) Step(ctx context.Context) (int, error) {
	var v IntValue
	err := C.call(ctx, TypeStep, nil, &v)
	return v.Value, err
}

// DeleteFrom deletes the remote frames from start on.
func (C *Client) DeleteFrom(ctx context.Context, start int) error {
	return C.call(ctx, TypeDelete, DeletePayload{Start: start}, nil)
}

// Append sends one frame.
func (C *Client) Append(ctx context.Context, frame *chem.Snapshot) error {
	return C.call(ctx, TypeAppend, FramePayload{Frame: frame}, nil)
}

// Extend sends several frames in one message.
func (C *Client) Extend(ctx context.Context, frames []*chem.Snapshot) error {
	return C.call(ctx, TypeExtend, FramesPayload{Frames: frames}, nil)
}

// Structure fetches the frame at the viewing index and returns it as a live structure.
func (C *Client) Structure(ctx context.Context) (*chem.Structure, error) {
	var p FramePayload
	if err := C.call(ctx, TypeStructure, nil, &p); err != nil {
		return nil, err
	}
	if p.Frame == nil {
		return nil, fmt.Errorf("session structure: empty frame: %w", chem.ErrInvalidStructureState)
	}
	return p.Frame.Structure(), nil
}

// SetStructure replaces the remote frame at the viewing index.
func (C *Client) SetStructure(ctx context.Context, frame *chem.Snapshot) error {
	return C.call(ctx, TypeSetStructure, FramePayload{Frame: frame}, nil)
}

// Bookmarks returns the remote bookmarks.
func (C *Client) Bookmarks(ctx context.Context) (map[int]string, error) {
	var p BookmarksPayload
	if err := C.call(ctx, TypeBookmarks, nil, &p); err != nil {
		return nil, err
	}
	if p.Bookmarks == nil {
		p.Bookmarks = make(map[int]string)
	}
	return p.Bookmarks, nil
}

// UpsertBookmarks merges marks into the remote bookmarks. The merge happens on the service,
// so there is no read-modify-write cycle.
func (C *Client) UpsertBookmarks(ctx context.Context, marks map[int]string) error {
	return C.call(ctx, TypeUpsertBookmarks, BookmarksPayload{Bookmarks: marks}, nil)
}

// Register binds a run kind to this client. Runs of that kind requested by users
// will be delivered through Runs. defaults is the default configuration of the
// kind, which the service can show to users. If public is true, the kind is
// offered to every session of the service, not only the one the client is in.
func (C *Client) Register(ctx context.Context, kind string, public bool, defaults any) error {
	raw, err := json.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("session register %s: %w", kind, err)
	}
	return C.call(ctx, TypeRegister, RegisterPayload{Kind: kind, Public: public, Defaults: raw}, nil)
}

// Runs returns the channel through which run requests arrive. It is closed when the connection is lost.
func (C *Client) Runs() <-chan *RunRequest {
	return C.runs
}

// Complete tells the service that the run with the given id is over, and whether it failed.
func (C *Client) Complete(ctx context.Context, id uint64, runErr error) error {
	m := &Message{Type: TypeRunDone, ID: id}
	if runErr != nil {
		m.Error = runErr.Error()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-C.done:
		return C.Err()
	default:
	}
	return C.write(m)
}

// Done returns a channel that is closed when the connection is lost or closed.
func (C *Client) Done() <-chan struct{} {
	return C.done
}

// Err returns the reason the client stopped, or nil if it is still connected.
func (C *Client) Err() error {
	C.mu.Lock()
	defer C.mu.Unlock()
	return C.err
}

// Close closes the connection.
func (C *Client) Close() error {
	C.wmu.Lock()
	err := C.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	C.wmu.Unlock()
	C.shutdown(fmt.Errorf("closed by client"))
	return err
}
