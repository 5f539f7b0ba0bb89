package wire

import "fmt"

// ErrInsufficientData means fewer than 8+length bytes are available yet.
// Not fatal: the caller (the framer) should wait for more bytes.
type ErrInsufficientData struct {
	Expected int
	Received int
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("wire: insufficient data: expected %d bytes, got %d", e.Expected, e.Received)
}

// ErrInvalidMagic means the first two bytes were not 0xAE50. Per spec §4.1
// this is unrecoverable for the connection: there is no safe way to
// resynchronise without risking misinterpreting payload content as a magic
// sequence.
type ErrInvalidMagic struct {
	Received uint16
}

func (e *ErrInvalidMagic) Error() string {
	return fmt.Sprintf("wire: invalid magic: got 0x%04X, want 0x%04X", e.Received, Magic)
}

// ErrUnsupportedVersion means byte 2 was not Version. Recoverable: the
// framer discards this one frame and continues.
type ErrUnsupportedVersion struct {
	Received byte
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("wire: unsupported version: got 0x%02X, want 0x%02X", e.Received, Version)
}

// ErrUnknownMessageType means byte 3 named a type outside the four defined
// ranges. Recoverable, same as ErrUnsupportedVersion.
type ErrUnknownMessageType struct {
	Raw byte
}

func (e *ErrUnknownMessageType) Error() string {
	return fmt.Sprintf("wire: unknown message type: 0x%02X", e.Raw)
}

// ErrPayloadTooLarge means the header's length field exceeds
// MaxPayloadSize. Unrecoverable: the buffer cannot be trusted, so the
// payload is never allocated.
type ErrPayloadTooLarge struct {
	Size uint32
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("wire: payload too large: %d bytes (max %d)", e.Size, MaxPayloadSize)
}

// Fatal reports whether a Decode error leaves the connection in a state
// where no further frames can be trusted (spec §4.1/§7). Both
// ErrUnsupportedVersion and ErrUnknownMessageType are NOT fatal: only the
// one malformed frame is discarded and the connection continues.
func Fatal(err error) bool {
	switch err.(type) {
	case *ErrInvalidMagic, *ErrPayloadTooLarge:
		return true
	default:
		return false
	}
}
