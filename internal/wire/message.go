package wire

import "encoding/binary"

// Message is a single decoded AESP frame: a type tag plus its opaque
// payload. It carries no behaviour of its own; typed payload parsers in
// payloads.go interpret Payload according to Type.
type Message struct {
	Type    MessageType
	Payload []byte
}

// NewMessage builds a Message. It does not copy payload; callers that hand
// over a buffer they intend to reuse must copy first.
func NewMessage(t MessageType, payload []byte) Message {
	return Message{Type: t, Payload: payload}
}

// Encode produces the 8+len(Payload) wire bytes for msg. Total: there is no
// error path, matching spec §4.1's encode contract. Callers are responsible
// for keeping Payload under MaxPayloadSize; Encode does not enforce it
// because a Message built by this package's own constructors is always
// within range, and a hand-built oversized Message is a programmer error
// best caught by Decode on the receiving end, not silently truncated here.
func Encode(msg Message) []byte {
	buf := make([]byte, HeaderSize+len(msg.Payload))
	buf[0] = MagicHigh
	buf[1] = MagicLow
	buf[2] = Version
	buf[3] = byte(msg.Type)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(msg.Payload)))
	copy(buf[8:], msg.Payload)

	return buf
}

// Decode parses one frame from the front of data. On success it returns the
// message and the number of bytes consumed (always HeaderSize+payload
// length). On failure it returns a typed error from errors.go; see Fatal
// for which errors are recoverable per connection.
func Decode(data []byte) (Message, int, error) {
	if len(data) < HeaderSize {
		return Message{}, 0, &ErrInsufficientData{Expected: HeaderSize, Received: len(data)}
	}

	magic := uint16(data[0])<<8 | uint16(data[1])
	if magic != Magic {
		return Message{}, 0, &ErrInvalidMagic{Received: magic}
	}

	version := data[2]
	if version != Version {
		return Message{}, 0, &ErrUnsupportedVersion{Received: version}
	}

	// Size guard runs before the payload is touched or even known to be
	// present, so an attacker-controlled length never drives an
	// allocation (spec Property 5), and before the unknown-type check so
	// a too-large frame is rejected regardless of its type byte.
	length := binary.BigEndian.Uint32(data[4:8])
	if length > MaxPayloadSize {
		return Message{}, 0, &ErrPayloadTooLarge{Size: length}
	}

	total := HeaderSize + int(length)
	if len(data) < total {
		return Message{}, 0, &ErrInsufficientData{Expected: total, Received: len(data)}
	}

	typ := MessageType(data[3])
	if typ.Category() == CategoryUnknown {
		return Message{}, 0, &ErrUnknownMessageType{Raw: data[3]}
	}

	payload := make([]byte, length)
	copy(payload, data[HeaderSize:total])

	return Message{Type: typ, Payload: payload}, total, nil
}
