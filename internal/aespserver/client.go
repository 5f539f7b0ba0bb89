package aespserver

import "github.com/google/uuid"

// ClientID is the server-minted 128-bit opaque identity for a connected
// peer on one channel (spec §3 "Client identity"). The same remote address
// gets a distinct ClientID per channel it subscribes to.
type ClientID = uuid.UUID

// NewClientID mints a fresh client identity, grounded on
// SilvaMendes-go-rtpengine's use of uuid.New() to identify RTP sessions.
func NewClientID() ClientID {
	return uuid.New()
}
