package aespserver

import (
	"context"

	"github.com/huegli/atticd/internal/wire"
)

// Delegate is the capability set the emulator implements so the server can
// hand it inbound traffic (spec §4.3, §6 "Delegate interface"). Expressed
// as an interface rather than a mutable singleton, per SPEC_FULL.md's
// design notes, so multiple servers (e.g. in tests) never share global
// delegate state the way the teacher's server.go does with its
// package-level client_sock array.
//
// Implementations are called on server goroutines and must return
// promptly or hand work off to their own queue (spec §6).
type Delegate interface {
	// OnMessage is invoked for every successfully decoded inbound message,
	// after the server's automatic PING/PONG handling. A returned error is
	// translated into a targeted ERROR message back to the same client on
	// the same channel (spec §4.3 "Failure semantics"); it never tears
	// down the connection.
	OnMessage(ctx context.Context, clientID ClientID, channel Channel, msg wire.Message) error

	// OnConnect fires once a client has been registered in the channel's
	// subscriber map.
	OnConnect(clientID ClientID, channel Channel)

	// OnDisconnect fires once a client has been removed from the
	// subscriber map and its socket closed.
	OnDisconnect(clientID ClientID, channel Channel)
}

// Broadcaster is the capability set the server exposes to the emulator
// (spec §4.3 "Broadcast capability set", §6 "Server control surface").
type Broadcaster interface {
	// Send unicasts msg to one specific client on one specific channel.
	Send(clientID ClientID, channel Channel, msg wire.Message) error

	// BroadcastFrame wraps pixels in FRAME_RAW, increments the frame
	// counter, and writes to every current Video subscriber.
	BroadcastFrame(pixels []byte)

	// BroadcastAudio wraps samples in AUDIO_PCM and writes to every
	// current Audio subscriber.
	BroadcastAudio(samples []byte)

	// ClientCounts reports current subscriber counts per channel.
	ClientCounts() ClientCounts

	// CurrentFrameNumber reports the most recently broadcast video frame
	// number (monotonically increasing, starts at 0 before any frame is
	// sent).
	CurrentFrameNumber() uint64
}
