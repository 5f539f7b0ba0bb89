// Package cliclient is the CLI text protocol's client half: it drives a
// clisocket.LineConn with cliproto's command/response grammar, performs
// the mandatory ping handshake, and routes asynchronous EVENT: lines to a
// caller-supplied handler while command/response exchanges stay strictly
// request-then-reply (spec §4.5 "Connection handshake").
package cliclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huegli/atticd/internal/cliproto"
	"github.com/huegli/atticd/internal/clisocket"
)

// HandshakeTimeout bounds the mandatory post-connect ping (spec §4.5
// "must issue ping within 1s and receive OK:pong within 1s").
const HandshakeTimeout = time.Second

// EventHandler receives parsed EVENT: lines.
type EventHandler func(cliproto.Event)

// Client is one CLI text-protocol session.
type Client struct {
	conn *clisocket.LineConn

	mu      sync.Mutex
	replies chan cliproto.Response
	events  EventHandler
	readErr error
}

// Connect dials path (or, if path is empty, the newest socket discovered
// via clisocket.Discover), performs the ping handshake, and starts the
// background line reader.
func Connect(ctx context.Context, path string) (*Client, error) {
	if path == "" {
		discovered, err := clisocket.Discover()
		if err != nil {
			return nil, err
		}

		path = discovered
	}

	conn, err := clisocket.Dial(path)
	if err != nil {
		return nil, err
	}

	c := &Client{conn: conn, replies: make(chan cliproto.Response, 1)}

	go c.readLoop()

	handshakeCtx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()

	resp, err := c.Send(handshakeCtx, cliproto.NewPingCommand())
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("cliclient: handshake: %w", err)
	}

	if resp.Kind != cliproto.OK || resp.Payload != "pong" {
		conn.Close()

		return nil, fmt.Errorf("cliclient: handshake: unexpected reply %q", resp.Payload)
	}

	return c, nil
}

// SetEventHandler registers the callback for EVENT: lines.
func (c *Client) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = h
}

// Close closes the underlying socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			close(c.replies)

			return
		}

		parsed, err := cliproto.ParseInbound(line)
		if err != nil {
			continue
		}

		switch v := parsed.(type) {
		case cliproto.Response:
			c.replies <- v
		case cliproto.Event:
			c.mu.Lock()
			h := c.events
			c.mu.Unlock()

			if h != nil {
				h(v)
			}
		}
	}
}

// Send writes cmd and waits for the next OK:/ERR: reply, honoring ctx's
// deadline. EVENT: lines that arrive first are dispatched to the event
// handler and do not satisfy this wait, matching the protocol's one-
// outstanding-request-at-a-time usage (spec §4.5).
func (c *Client) Send(ctx context.Context, cmd cliproto.Command) (cliproto.Response, error) {
	// Discard a reply left over from a request whose previous Send call
	// returned via ctx.Done() before readLoop delivered it, so it doesn't
	// get mistaken for this request's reply below.
	select {
	case <-c.replies:
	default:
	}

	if err := c.conn.WriteLine("CMD:" + cliproto.FormatBody(cmd)); err != nil {
		return cliproto.Response{}, fmt.Errorf("cliclient: write: %w", err)
	}

	select {
	case resp, ok := <-c.replies:
		if !ok {
			c.mu.Lock()
			err := c.readErr
			c.mu.Unlock()

			return cliproto.Response{}, fmt.Errorf("cliclient: connection closed: %w", err)
		}

		return resp, nil
	case <-ctx.Done():
		return cliproto.Response{}, ctx.Err()
	}
}
