package aespclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/huegli/atticd/internal/framer"
	"github.com/huegli/atticd/internal/wire"
)

// streamConn is a video or audio connection opened atomically during
// Connect and torn down on Close (spec §4.4 "connect(video, audio)"). Its
// read loop starts the first time FrameStream/AudioStream is called; a
// streamConn the client never asked for at Connect time is simply nil, and
// FrameStream/AudioStream report that by returning an immediately-closed
// channel (spec Property 7 "subscription filtering").
type streamConn struct {
	mu      sync.Mutex
	conn    net.Conn
	closed  bool
	started bool
}

// openStream dials port and sends subscribe, for use during Connect's
// atomic video/audio setup.
func (c *Client) openStream(ctx context.Context, port int, subscribe wire.MessageType) (*streamConn, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(c.cfg.Host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("aespclient: connect stream: %w", err)
	}

	if _, err := conn.Write(wire.Encode(wire.NewMessage(subscribe, nil))); err != nil {
		conn.Close()

		return nil, fmt.Errorf("aespclient: subscribe: %w", err)
	}

	return &streamConn{conn: conn}, nil
}

func readStream(conn net.Conn, want wire.MessageType, out chan<- []byte) {
	defer close(out)

	f := framer.New()
	buf := make([]byte, 256*1024)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			f.Push(buf[:n])

			for {
				msg, ferr, ok := f.Next()
				if ferr != nil {
					return
				}

				if !ok {
					break
				}

				if msg.Type == want {
					out <- msg.Payload
				}
			}
		}

		if err != nil {
			return
		}
	}
}

// FrameStream returns a channel of raw frame payloads read from the video
// connection opened by Connect(ctx, true, ...). If video was not requested
// at Connect time, it returns a channel that is already closed with no
// elements (spec Property 7). It starts the stream's one read loop; call
// it once per connection and reconnect via Connect to restart the stream.
func (c *Client) FrameStream(_ context.Context) (<-chan []byte, error) {
	c.mu.Lock()
	sc := c.video
	c.mu.Unlock()

	return startStreamReader(sc, wire.TypeFrameRaw)
}

// AudioStream returns a channel of raw PCM payloads read from the audio
// connection opened by Connect(ctx, ..., true). If audio was not requested
// at Connect time, it returns a channel that is already closed with no
// elements (spec Property 7).
func (c *Client) AudioStream(_ context.Context) (<-chan []byte, error) {
	c.mu.Lock()
	sc := c.audio
	c.mu.Unlock()

	return startStreamReader(sc, wire.TypeAudioPCM)
}

func startStreamReader(sc *streamConn, want wire.MessageType) (<-chan []byte, error) {
	if sc == nil {
		out := make(chan []byte)
		close(out)

		return out, nil
	}

	sc.mu.Lock()
	if sc.started {
		sc.mu.Unlock()

		return nil, fmt.Errorf("aespclient: stream already started")
	}

	sc.started = true
	conn := sc.conn
	sc.mu.Unlock()

	out := make(chan []byte, 4)

	go readStream(conn, want, out)

	return out, nil
}

func (s *streamConn) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	_ = s.conn.Close()
}
