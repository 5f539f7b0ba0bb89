// Package framer implements the AESP stream framer (spec §4.2): it owns a
// per-connection byte buffer and extracts complete frames from whatever
// bytes arrive off the wire, one at a time, recovering from malformed
// traffic where the protocol allows it.
//
// Grounded on the read-loop structure of the teacher's cmd_listen_thread in
// server.go: accumulate into a buffer, peek the header, only consume once a
// full frame is present.
package framer

import (
	"encoding/binary"

	"github.com/huegli/atticd/internal/wire"
)

// FatalError wraps a wire decode error that leaves the connection
// unrecoverable (spec §4.2 step 2, and ErrPayloadTooLarge via Decode).
// Callers must close the connection on receiving one.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Framer incrementally assembles complete wire.Message frames out of a
// byte stream. It is not safe for concurrent use; per spec §4.2, a single
// connection's bytes arrive in order on one reader, so this never needs
// its own locking.
type Framer struct {
	buf []byte
}

// New returns an empty Framer.
func New() *Framer {
	return &Framer{}
}

// Push appends newly-read bytes to the internal buffer.
func (f *Framer) Push(data []byte) {
	f.buf = append(f.buf, data...)
}

// Next attempts to extract one complete frame from the buffered bytes.
//
//   - (msg, nil, true): a frame was decoded; call Next again immediately,
//     there may be another complete frame already buffered.
//   - (zero, nil, false): not enough bytes yet; Push more and retry.
//   - (zero, err, false): the connection cannot be trusted further; err is
//     always a *FatalError wrapping invalid magic, an oversized payload, or
//     another decode error that wire.Fatal reports as fatal. Close the
//     connection.
//
// Recoverable decode errors (unsupported version, unknown message type)
// are handled internally: the malformed frame is dropped and Next keeps
// looking at the following bytes, per spec §4.2 step 4.
func (f *Framer) Next() (wire.Message, error, bool) {
	for {
		if len(f.buf) < wire.HeaderSize {
			return wire.Message{}, nil, false
		}

		// Peek the header without consuming, to decide up front whether
		// this connection is salvageable before we know whether the full
		// frame has arrived. Magic and size are checked here, on the
		// header alone, rather than waiting for a length that may never
		// be satisfiable if the header itself is garbage.
		magic := uint16(f.buf[0])<<8 | uint16(f.buf[1])
		if magic != wire.Magic {
			return wire.Message{}, &FatalError{Err: &wire.ErrInvalidMagic{Received: magic}}, false
		}

		length := binary.BigEndian.Uint32(f.buf[4:8])
		if length > wire.MaxPayloadSize {
			return wire.Message{}, &FatalError{Err: &wire.ErrPayloadTooLarge{Size: length}}, false
		}

		total := wire.HeaderSize + int(length)
		if len(f.buf) < total {
			return wire.Message{}, nil, false
		}

		frame := f.buf[:total]

		msg, consumed, err := wire.Decode(frame)
		if err == nil {
			f.buf = f.buf[consumed:]

			return msg, nil, true
		}

		if wire.Fatal(err) {
			return wire.Message{}, &FatalError{Err: err}, false
		}

		// ErrUnsupportedVersion or ErrUnknownMessageType: the header told
		// us the frame's true length even though we can't interpret its
		// type or version, so we can safely discard exactly that many
		// bytes and keep going.
		f.buf = f.buf[total:]
	}
}

// Pending reports how many bytes are currently buffered without yet
// forming a complete frame. Useful for logging/diagnostics only.
func (f *Framer) Pending() int {
	return len(f.buf)
}
