// Package aespclient is the AESP client: control-channel request/response
// correlation, a pending-response table, and video/audio streams opened
// atomically alongside Control.
//
// Grounded on the teacher's cmd/samoyed-appserver/agwlib.go, which dials a
// TNC, runs a single listen goroutine that decodes frames and dispatches
// them to callback functions, and reattaches on disconnect. This package
// keeps that read-loop-plus-callback shape but replaces the teacher's
// package-level globals (s_tnc_sock, s_tnc_host, ...) with fields on a
// Client value, and replaces its giant character-keyed switch with typed
// request/response helpers.
package aespclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/huegli/atticd/internal/framer"
	"github.com/huegli/atticd/internal/logx"
	"github.com/huegli/atticd/internal/wire"
)

// State is the client's connection lifecycle (spec §4.4 "Client state
// machine").
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// DefaultResponseTimeout is how long a request waits for its matching
// response before failing when Config.ResponseTimeout is unset; a context
// deadline that expires sooner ends the wait first (spec §4.4 "Request
// timeout").
const DefaultResponseTimeout = 5 * time.Second

// Config configures a Client.
type Config struct {
	Host            string
	Ports           Ports
	ResponseTimeout time.Duration
	Log             *logx.Logger
}

// Ports mirrors aespserver.Ports without importing the server package, so
// a client binary need not link server code.
type Ports struct {
	Control int
	Video   int
	Audio   int
}

// EventHandler receives server-originated messages that are not the
// response to a pending request and not a PONG or ERROR, both of which are
// handled internally: unsolicited BREAKPOINT hits (spec §4.4 "Asynchronous
// events").
type EventHandler func(msg wire.Message)

// ErrorHandler receives every ERROR frame the server sends, whether or not
// it also completes a pending request (spec §4.4 step 4, §6 "one callback
// for errors").
type ErrorHandler func(wire.ErrorPayload)

// StateHandler is invoked once per transition into or out of Connected
// (spec §4.4 state machine, §6).
type StateHandler func(State)

type pendingWaiter struct {
	ch chan pendingResult
}

type pendingResult struct {
	msg wire.Message
	err error
}

// errSuperseded is delivered to a waiter that is still pending when a new
// request for the same response type is issued (SPEC_FULL.md's "replace"
// policy decision for the pending-response table).
type errSuperseded struct{ respType wire.MessageType }

func (e *errSuperseded) Error() string {
	return fmt.Sprintf("aespclient: %s request superseded by a newer request before a response arrived", e.respType.Name())
}

// Client is one control-channel connection plus, on demand, video and
// audio stream connections.
type Client struct {
	cfg Config
	log *logx.Logger

	mu    sync.Mutex
	state State
	conn  net.Conn

	pendingMu sync.Mutex
	pending   map[wire.MessageType]*pendingWaiter

	eventHandler EventHandler
	errorHandler ErrorHandler
	stateHandler StateHandler

	video *streamConn
	audio *streamConn
}

// New builds a Client that is not yet connected.
func New(cfg Config) *Client {
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = DefaultResponseTimeout
	}

	if cfg.Log == nil {
		cfg.Log = logx.New("aespclient")
	}

	return &Client{
		cfg:     cfg,
		log:     cfg.Log,
		state:   Disconnected,
		pending: make(map[wire.MessageType]*pendingWaiter),
	}
}

// SetEventHandler registers the callback for asynchronous, unsolicited
// server messages (spec's supplemented "typed event callback" feature).
// It must be called before Connect to avoid missing early events.
func (c *Client) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandler = h
}

// SetErrorHandler registers the callback for server ERROR frames, invoked
// whether or not the ERROR also completes a pending request (spec §4.4
// step 4, §6). It must be called before Connect to avoid missing early
// errors.
func (c *Client) SetErrorHandler(h ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorHandler = h
}

// SetStateHandler registers the callback fired once per transition into or
// out of Connected (spec §4.4 state machine, §6). It must be called before
// Connect to avoid missing the first transition.
func (c *Client) SetStateHandler(h StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stateHandler = h
}

// State reports the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	old := c.state
	c.state = s
	h := c.stateHandler
	c.mu.Unlock()

	if h != nil && (s == Connected) != (old == Connected) {
		h(s)
	}
}

func (c *Client) controlAddr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Ports.Control))
}

// Connect dials the control channel, then whichever of the video and audio
// channels were requested, and starts their read loops. All requested
// channels must succeed: if video or audio fails to dial or subscribe,
// every channel already opened during this call is closed and Connect
// returns the error (spec §4.4 "connect(video, audio)" atomic all-or-
// nothing semantics).
func (c *Client) Connect(ctx context.Context, video, audio bool) error {
	c.setState(Connecting)

	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", c.controlAddr())
	if err != nil {
		c.setState(Disconnected)

		return fmt.Errorf("aespclient: connect control channel: %w", err)
	}

	var videoConn, audioConn *streamConn

	if video {
		videoConn, err = c.openStream(ctx, c.cfg.Ports.Video, wire.TypeVideoSubscribe)
		if err != nil {
			conn.Close()
			c.setState(Disconnected)

			return fmt.Errorf("aespclient: connect video channel: %w", err)
		}
	}

	if audio {
		audioConn, err = c.openStream(ctx, c.cfg.Ports.Audio, wire.TypeAudioSubscribe)
		if err != nil {
			conn.Close()

			if videoConn != nil {
				videoConn.close()
			}

			c.setState(Disconnected)

			return fmt.Errorf("aespclient: connect audio channel: %w", err)
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.video = videoConn
	c.audio = audioConn
	c.mu.Unlock()

	c.setState(Connected)

	go c.readLoop()

	return nil
}

// Close tears down the control channel and any open streams.
func (c *Client) Close() error {
	c.setState(Disconnecting)

	c.mu.Lock()
	conn := c.conn
	video := c.video
	audio := c.audio
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	if video != nil {
		video.close()
	}

	if audio != nil {
		audio.close()
	}

	c.setState(Disconnected)

	return nil
}

func (c *Client) readLoop() {
	f := framer.New()
	buf := make([]byte, 64*1024)

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			f.Push(buf[:n])

			for {
				msg, ferr, ok := f.Next()
				if ferr != nil {
					c.failAllPending(ferr)
					c.setState(Disconnected)

					return
				}

				if !ok {
					break
				}

				c.dispatch(msg)
			}
		}

		if err != nil {
			c.failAllPending(err)
			c.setState(Disconnected)

			return
		}
	}
}

func (c *Client) dispatch(msg wire.Message) {
	switch msg.Type {
	case wire.TypePong:
		// Spec §4.4 step 1: PONG is swallowed internally, never surfaced to
		// the event callback, even when nothing is waiting for it (a stray
		// or duplicate server pong).
		c.deliver(msg)

		return

	case wire.TypeError:
		c.handleError(msg)

		return

	case wire.TypeBreakpointListOrHit:
		// Open Question #2: a LIST response and an unsolicited HIT share a
		// type byte. If something is waiting for this type, it's the LIST
		// response; otherwise it's a HIT notification.
		if c.deliver(msg) {
			return
		}

		c.emit(msg)

		return
	}

	if c.deliver(msg) {
		return
	}

	c.emit(msg)
}

// handleError fails any pending request on the same channel with a
// server-error failure and invokes the error callback, per spec §4.4 step
// 4 and §6.
func (c *Client) handleError(msg wire.Message) {
	payload, ok := wire.ParseError(msg.Payload)
	if !ok {
		payload = wire.ErrorPayload{Message: "malformed ERROR payload"}
	}

	c.failPendingWithServerError(payload)

	c.mu.Lock()
	h := c.errorHandler
	c.mu.Unlock()

	if h != nil {
		h(payload)
	}
}

// failPendingWithServerError fails every currently pending request with a
// "server error" failure instead of letting it time out (spec §4.4 step
// 4). ERROR carries no indication of which request it answers, so every
// outstanding waiter is failed.
func (c *Client) failPendingWithServerError(payload wire.ErrorPayload) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	err := fmt.Errorf("aespclient: server error %d: %s", payload.Code, payload.Message)

	for respType, w := range c.pending {
		w.ch <- pendingResult{err: err}
		delete(c.pending, respType)
	}
}

// deliver hands msg to a pending waiter for msg.Type, if any, and reports
// whether one was found.
func (c *Client) deliver(msg wire.Message) bool {
	c.pendingMu.Lock()
	w, ok := c.pending[msg.Type]
	if ok {
		delete(c.pending, msg.Type)
	}
	c.pendingMu.Unlock()

	if !ok {
		return false
	}

	w.ch <- pendingResult{msg: msg}

	return true
}

func (c *Client) emit(msg wire.Message) {
	c.mu.Lock()
	h := c.eventHandler
	c.mu.Unlock()

	if h != nil {
		h(msg)
	}
}

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for respType, w := range c.pending {
		w.ch <- pendingResult{err: fmt.Errorf("aespclient: connection closed waiting for %s: %w", respType.Name(), err)}
		delete(c.pending, respType)
	}
}

// register installs a waiter for respType, replacing and superseding any
// waiter already registered for the same type (the "replace" pending-
// response policy).
func (c *Client) register(respType wire.MessageType) *pendingWaiter {
	w := &pendingWaiter{ch: make(chan pendingResult, 1)}

	c.pendingMu.Lock()
	if old, ok := c.pending[respType]; ok {
		old.ch <- pendingResult{err: &errSuperseded{respType: respType}}
	}

	c.pending[respType] = w
	c.pendingMu.Unlock()

	return w
}

func (c *Client) unregister(respType wire.MessageType, w *pendingWaiter) {
	c.pendingMu.Lock()
	if c.pending[respType] == w {
		delete(c.pending, respType)
	}
	c.pendingMu.Unlock()
}

// call sends req on the control channel and waits for the next message of
// respType, honoring ctx's deadline or the client's configured response
// timeout, whichever is sooner.
func (c *Client) call(ctx context.Context, req wire.Message, respType wire.MessageType) (wire.Message, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return wire.Message{}, fmt.Errorf("aespclient: not connected")
	}

	w := c.register(respType)

	if _, err := conn.Write(wire.Encode(req)); err != nil {
		c.unregister(respType, w)

		return wire.Message{}, fmt.Errorf("aespclient: write %s: %w", req.Type.Name(), err)
	}

	timeout := c.cfg.ResponseTimeout

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-w.ch:
		return res.msg, res.err
	case <-ctx.Done():
		c.unregister(respType, w)

		return wire.Message{}, ctx.Err()
	case <-timer.C:
		c.unregister(respType, w)

		return wire.Message{}, fmt.Errorf("aespclient: timed out waiting for %s", respType.Name())
	}
}
