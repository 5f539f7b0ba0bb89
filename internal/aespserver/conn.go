package aespserver

import (
	"net"
	"sync"

	"github.com/huegli/atticd/internal/framer"
	"github.com/huegli/atticd/internal/wire"
)

// outboundQueueSize bounds each connection's per-socket write queue (spec
// §5 "Backpressure"). Broadcast frames are dropped, never queued past this,
// for a subscriber that can't keep up; unicast sends that find the queue
// full close the connection instead of dropping, per spec §5.
const outboundQueueSize = 64

// clientConn is one accepted TCP connection on one channel: its own reader
// goroutine feeding a framer, and its own writer goroutine draining a
// bounded outbound queue, so writes to this socket are always serialized
// and a slow peer never blocks anyone else (spec §4.3 "Concurrency
// policy").
type clientConn struct {
	id      ClientID
	channel Channel
	conn    net.Conn

	outbound chan []byte
	done     chan struct{}

	closeOnce sync.Once
}

func newClientConn(id ClientID, channel Channel, conn net.Conn) *clientConn {
	return &clientConn{
		id:       id,
		channel:  channel,
		conn:     conn,
		outbound: make(chan []byte, outboundQueueSize),
		done:     make(chan struct{}),
	}
}

// enqueueUnicast queues an encoded frame for an addressed response. If the
// queue is already full, the connection is considered unresponsive and is
// closed rather than silently dropping a response the caller is relying on
// (spec §5 "Unicast responses are never dropped").
func (c *clientConn) enqueueUnicast(frame []byte) bool {
	select {
	case c.outbound <- frame:
		return true
	default:
		c.close()

		return false
	}
}

// enqueueBroadcast queues an encoded frame for a broadcast. If the queue is
// full, the frame is dropped for this subscriber only; the broadcaster
// itself is never blocked (spec §5 "Backpressure").
func (c *clientConn) enqueueBroadcast(frame []byte) {
	select {
	case c.outbound <- frame:
	default:
	}
}

func (c *clientConn) writeLoop() {
	for {
		select {
		case frame, ok := <-c.outbound:
			if !ok {
				return
			}

			if _, err := c.conn.Write(frame); err != nil {
				c.close()

				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop reads raw bytes into a framer and calls handle for each decoded
// message. It returns once the connection ends, fatally or otherwise.
func (c *clientConn) readLoop(handle func(wire.Message)) {
	f := framer.New()
	buf := make([]byte, 64*1024)

	for {
		n, err := c.conn.Read(buf)
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

				handle(msg)
			}
		}

		if err != nil {
			return
		}
	}
}

func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
