// Package aespserver implements the AESP server (spec §4.3): three TCP
// listeners (Control/Video/Audio), per-client connection state, automatic
// PING/PONG handling, delegate dispatch, and broadcast fan-out to
// subscribers.
//
// Grounded on the teacher's src/server.go (AGWPE network server): one
// accept-loop goroutine per listener, one read-loop goroutine per
// connection, a registry of currently-connected clients mutated under a
// lock. Where the teacher used fixed-size global arrays
// (client_sock[MAX_NET_CLIENTS]), this uses per-channel maps keyed by
// ClientID owned by the Server value, so multiple independent servers
// (e.g. one per test) never share state.
package aespserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/huegli/atticd/internal/logx"
	"github.com/huegli/atticd/internal/wire"
)

// Ports is the triple of TCP ports the server listens on, defaulting to
// spec §6's 47800/47801/47802.
type Ports struct {
	Control int
	Video   int
	Audio   int
}

// DefaultPorts returns the spec-default listener ports.
func DefaultPorts() Ports {
	return Ports{Control: 47800, Video: 47801, Audio: 47802}
}

// Config configures a Server.
type Config struct {
	Host  string // defaults to "" (all interfaces) if empty
	Ports Ports
	Log   *logx.Logger
}

// Server is the AESP protocol core: it owns the three listeners and the
// per-channel subscriber maps, and exposes Broadcaster to whatever
// implements Delegate (normally the emulator).
type Server struct {
	cfg      Config
	delegate Delegate
	log      *logx.Logger

	listeners [3]net.Listener // indexed by Channel

	mu          sync.Mutex // guards subscribers; broadcast clones under this lock
	subscribers [3]map[ClientID]*clientConn

	frameNumber atomic.Uint64

	wg sync.WaitGroup
}

// New builds a Server bound to no sockets yet; call Start to begin
// listening.
func New(cfg Config, delegate Delegate) *Server {
	if cfg.Log == nil {
		cfg.Log = logx.New("aespserver")
	}

	s := &Server{cfg: cfg, delegate: delegate, log: cfg.Log}
	for ch := range s.subscribers {
		s.subscribers[ch] = make(map[ClientID]*clientConn)
	}

	return s
}

func (s *Server) portFor(ch Channel) int {
	switch ch {
	case Control:
		return s.cfg.Ports.Control
	case Video:
		return s.cfg.Ports.Video
	default:
		return s.cfg.Ports.Audio
	}
}

// Start binds all three listeners and begins accepting connections. Per
// spec §9 "Listener lifecycle", binding fails atomically: if any port
// fails to bind, every listener already bound during this call is released
// before Start returns its error.
func (s *Server) Start(ctx context.Context) error {
	for ch := Control; ch <= Audio; ch++ {
		addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.portFor(ch)))

		lc := net.ListenConfig{Control: setReuseAddr}

		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			s.closeListeners()

			return fmt.Errorf("aespserver: listen on %s channel %s: %w", ch, addr, err)
		}

		s.listeners[ch] = ln
	}

	for ch := Control; ch <= Audio; ch++ {
		s.wg.Add(1)

		go s.acceptLoop(ch)
	}

	return nil
}

// setReuseAddr mirrors the teacher's server.go, which sets SO_REUSEADDR so
// a restarted server doesn't have to wait out TIME_WAIT on its old socket.
func setReuseAddr(network, address string, c syscall.RawConn) error {
	return c.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
}

func (s *Server) closeListeners() {
	for ch := Control; ch <= Audio; ch++ {
		if s.listeners[ch] != nil {
			_ = s.listeners[ch].Close()
			s.listeners[ch] = nil
		}
	}
}

// Stop closes all listeners and all currently-open connections. Accept
// loops and per-connection goroutines observe the closed listener/socket
// and exit on their own; Stop waits for them.
func (s *Server) Stop() {
	s.closeListeners()

	s.mu.Lock()
	for ch := range s.subscribers {
		for _, c := range s.subscribers[ch] {
			c.close()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) acceptLoop(ch Channel) {
	defer s.wg.Done()

	ln := s.listeners[ch]

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		id := NewClientID()
		cc := newClientConn(id, ch, conn)

		s.mu.Lock()
		s.subscribers[ch][id] = cc
		s.mu.Unlock()

		s.delegate.OnConnect(id, ch)

		s.wg.Add(1)

		go s.serveConn(cc)
	}
}

func (s *Server) serveConn(cc *clientConn) {
	defer s.wg.Done()

	go cc.writeLoop()

	cc.readLoop(func(msg wire.Message) {
		s.handleMessage(cc, msg)
	})

	cc.close()

	s.mu.Lock()
	delete(s.subscribers[cc.channel], cc.id)
	s.mu.Unlock()

	s.delegate.OnDisconnect(cc.id, cc.channel)
}

// handleMessage applies the server's one piece of automatic behaviour
// (PING -> PONG) and otherwise forwards to the delegate, translating a
// delegate error into a targeted ERROR frame (spec §4.3).
func (s *Server) handleMessage(cc *clientConn, msg wire.Message) {
	if msg.Type == wire.TypePing {
		cc.enqueueUnicast(wire.Encode(wire.NewMessage(wire.TypePong, nil)))

		return
	}

	if err := s.delegate.OnMessage(context.Background(), cc.id, cc.channel, msg); err != nil {
		errPayload := wire.EncodeError(wire.ErrorPayload{Code: 1, Message: err.Error()})
		cc.enqueueUnicast(wire.Encode(wire.NewMessage(wire.TypeError, errPayload)))
		s.log.Warn("delegate error", "client", cc.id, "channel", cc.channel, "type", msg.Type.Name(), "err", err)
	}
}

// Send unicasts msg to one client on one channel (Broadcaster interface).
func (s *Server) Send(clientID ClientID, channel Channel, msg wire.Message) error {
	s.mu.Lock()
	cc, ok := s.subscribers[channel][clientID]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("aespserver: no subscriber %s on %s", clientID, channel)
	}

	cc.enqueueUnicast(wire.Encode(msg))

	return nil
}

func (s *Server) snapshot(channel Channel) []*clientConn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*clientConn, 0, len(s.subscribers[channel]))
	for _, c := range s.subscribers[channel] {
		out = append(out, c)
	}

	return out
}

// BroadcastFrame wraps pixels in FRAME_RAW, increments the frame counter,
// and fans it out to every current Video subscriber (Broadcaster
// interface, spec Property 6).
func (s *Server) BroadcastFrame(pixels []byte) {
	s.frameNumber.Add(1)

	encoded := wire.Encode(wire.NewMessage(wire.TypeFrameRaw, pixels))
	for _, cc := range s.snapshot(Video) {
		cc.enqueueBroadcast(encoded)
	}
}

// BroadcastAudio wraps samples in AUDIO_PCM and fans it out to every
// current Audio subscriber (Broadcaster interface).
func (s *Server) BroadcastAudio(samples []byte) {
	encoded := wire.Encode(wire.NewMessage(wire.TypeAudioPCM, samples))
	for _, cc := range s.snapshot(Audio) {
		cc.enqueueBroadcast(encoded)
	}
}

// ClientCounts reports current subscriber counts per channel.
func (s *Server) ClientCounts() ClientCounts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ClientCounts{
		Control: len(s.subscribers[Control]),
		Video:   len(s.subscribers[Video]),
		Audio:   len(s.subscribers[Audio]),
	}
}

// CurrentFrameNumber reports the most recently broadcast video frame
// number.
func (s *Server) CurrentFrameNumber() uint64 {
	return s.frameNumber.Load()
}

var _ Broadcaster = (*Server)(nil)
